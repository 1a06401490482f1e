package client

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	var phone *string

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&phone,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	c.Phone = phone
	return &c, nil
}

func (r *PgRepository) CreateClient(ctx context.Context, c *Client) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO clients (id, name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING id, name, email, phone, created_at, updated_at
	`, c.ID, c.Name, c.Email, c.Phone)

	created, err := scanClient(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return err
	}

	*c = *created
	return nil
}

func (r *PgRepository) GetClientByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM clients
		WHERE id = $1
	`, id)
	return scanClient(row)
}

func (r *PgRepository) ListClients(ctx context.Context, limit, offset int) ([]Client, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM clients`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM clients
		ORDER BY name COLLATE "C" ASC, id ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := make([]Client, 0, limit)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}
