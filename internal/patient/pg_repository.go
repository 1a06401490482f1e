package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/vetclinic-scheduling/internal/client"
)

const patientColumns = `id, name, species, breed, age, weight, medical_history_summary, owner_id, created_at, updated_at`

var sortColumns = map[SortField]string{
	SortByName:      `name COLLATE "C"`,
	SortByCreatedAt: "created_at",
	SortByAge:       "age",
	SortBySpecies:   `species COLLATE "C"`,
}

type PgRepository struct {
	pool    *pgxpool.Pool
	clients *client.PgRepository
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool, clients: client.NewPgRepository(pool)}
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Species,
		&p.Breed,
		&p.Age,
		&p.Weight,
		&p.MedicalHistorySummary,
		&p.OwnerID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrDuplicatePatient
		case "23503":
			return client.ErrClientNotFound
		}
	}
	return err
}

func (r *PgRepository) GetClientByID(ctx context.Context, id uuid.UUID) (*client.Client, error) {
	return r.clients.GetClientByID(ctx, id)
}

func (r *PgRepository) CreatePatient(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO patients (`+patientColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+patientColumns,
		p.ID, p.Name, p.Species, p.Breed, p.Age, p.Weight, p.MedicalHistorySummary, p.OwnerID)

	created, err := scanPatient(row)
	if err != nil {
		return mapWriteError(err)
	}

	*p = *created
	return nil
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

func (r *PgRepository) UpdatePatient(ctx context.Context, p *Patient) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE patients
		SET name = $2,
		    species = $3,
		    breed = $4,
		    age = $5,
		    weight = $6,
		    medical_history_summary = $7,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+patientColumns,
		p.ID, p.Name, p.Species, p.Breed, p.Age, p.Weight, p.MedicalHistorySummary)

	updated, err := scanPatient(row)
	if err != nil {
		return mapWriteError(err)
	}

	*p = *updated
	return nil
}

func (r *PgRepository) DeletePatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `DELETE FROM patients WHERE id = $1 RETURNING `+patientColumns, id)
	p, err := scanPatient(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrPatientInUse
		}
		return nil, err
	}
	return p, nil
}

func (r *PgRepository) CountAppointmentsForPatient(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM appointments WHERE patient_id = $1`, id).Scan(&n)
	return n, err
}

func (r *PgRepository) ListPatients(ctx context.Context, q ListQuery) ([]Patient, int, error) {
	var where []string
	var args []any

	if q.OwnerID != nil {
		args = append(args, *q.OwnerID)
		where = append(where, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if q.Species != "" {
		args = append(args, "%"+escapeLike(q.Species)+"%")
		where = append(where, fmt.Sprintf("species ILIKE $%d", len(args)))
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM patients`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = sortColumns[SortByCreatedAt]
	}
	order := fmt.Sprintf(" ORDER BY %s %s, id ASC", col, dir)

	args = append(args, q.Limit, q.Offset())
	sql := `SELECT ` + patientColumns + ` FROM patients` + whereSQL + order +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	result := make([]Patient, 0, q.Limit)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
