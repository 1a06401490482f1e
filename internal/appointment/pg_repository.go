package appointment

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/vetclinic-scheduling/internal/patient"
	"github.com/hackgods/vetclinic-scheduling/internal/staff"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool *pgxpool.Pool
	db   querier
	// inTx is set on the copy handed to InBookingTx callbacks.
	inTx bool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool, db: pool}
}

const appointmentColumns = `a.id, a.patient_id, a.staff_id, a.appointment_date, a.type, a.reason, a.notes, a.status, a.created_at, a.updated_at`

const detailColumns = appointmentColumns + `,
	p.id, p.name, p.species, p.breed, p.age, p.weight, p.medical_history_summary, p.owner_id, p.created_at, p.updated_at,
	s.id, s.name, s.email, s.role`

const detailFrom = `
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN staff_users s ON s.id = a.staff_id`

var orderColumns = map[SortField]string{
	SortByAppointmentDate: "a.appointment_date",
	SortByPatientName:     `p.name COLLATE "C"`,
	SortByVetName:         `s.name COLLATE "C"`,
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.StaffID,
		&a.AppointmentDate,
		&a.Type,
		&a.Reason,
		&a.Notes,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail
	var p patient.Patient
	var s staff.Summary

	err := row.Scan(
		&d.ID,
		&d.PatientID,
		&d.StaffID,
		&d.AppointmentDate,
		&d.Type,
		&d.Reason,
		&d.Notes,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
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
		&s.ID,
		&s.Name,
		&s.Email,
		&s.Role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	d.Patient = &p
	d.Staff = &s
	return &d, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrReferenceNotFound
	}
	return err
}

// bookingLockKey folds a staff member and minute bucket into an advisory lock id.
func bookingLockKey(staffID uuid.UUID, bucket time.Time) int64 {
	h := fnv.New64a()
	_, _ = h.Write(staffID[:])
	_, _ = fmt.Fprintf(h, ":%d", bucket.Unix())
	return int64(h.Sum64())
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	err := r.db.QueryRow(ctx, `
		SELECT id, name, species, breed, age, weight, medical_history_summary, owner_id, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Species, &p.Breed, &p.Age, &p.Weight, &p.MedicalHistorySummary, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, patient.ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) GetStaffByID(ctx context.Context, id uuid.UUID) (*staff.User, error) {
	var u staff.User
	err := r.db.QueryRow(ctx, `
		SELECT id, email, name, role, password_hash, created_at, updated_at
		FROM staff_users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, staff.ErrStaffNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments a WHERE a.id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	row := r.db.QueryRow(ctx, `SELECT `+detailColumns+detailFrom+` WHERE a.id = $1`, id)
	return scanDetail(row)
}

// findActiveSQL takes staff id, bucket start, bucket end and an optional
// appointment id to skip, in that order.
const findActiveSQL = `
		SELECT ` + appointmentColumns + `
		FROM appointments a
		WHERE a.staff_id = $1
		  AND a.appointment_date >= $2
		  AND a.appointment_date < $3
		  AND a.status NOT IN ('cancelled', 'completed')
		  AND ($4::uuid IS NULL OR a.id <> $4)
		LIMIT 1`

func findActiveArgs(staffID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) []any {
	return []any{staffID, from, to, excludeID}
}

func (r *PgRepository) FindActiveAppointment(ctx context.Context, staffID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, findActiveSQL, findActiveArgs(staffID, from, to, excludeID)...)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments AS a (id, patient_id, staff_id, appointment_date, type, reason, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+appointmentColumns,
		a.ID, a.PatientID, a.StaffID, a.AppointmentDate, a.Type, a.Reason, a.Notes, a.Status)

	created, err := scanAppointment(row)
	if err != nil {
		return mapWriteError(err)
	}

	*a = *created
	return nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a *Appointment) error {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments AS a
		SET patient_id = $2,
		    staff_id = $3,
		    appointment_date = $4,
		    type = $5,
		    reason = $6,
		    notes = $7,
		    status = $8,
		    updated_at = now()
		WHERE a.id = $1
		RETURNING `+appointmentColumns,
		a.ID, a.PatientID, a.StaffID, a.AppointmentDate, a.Type, a.Reason, a.Notes, a.Status)

	updated, err := scanAppointment(row)
	if err != nil {
		return mapWriteError(err)
	}

	*a = *updated
	return nil
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `DELETE FROM appointments AS a WHERE a.id = $1 RETURNING `+appointmentColumns, id)
	return scanAppointment(row)
}

// listStatement holds the count and page queries for one ListQuery.
type listStatement struct {
	countSQL  string
	countArgs []any
	pageSQL   string
	pageArgs  []any
}

// buildListStatement numbers filter placeholders in a fixed order (patient,
// staff, status, dateFrom, dateTo) followed by LIMIT and OFFSET.
func buildListStatement(q ListQuery) listStatement {
	var where []string
	var args []any

	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if q.PatientID != nil {
		add("a.patient_id = $%d", *q.PatientID)
	}
	if q.StaffID != nil {
		add("a.staff_id = $%d", *q.StaffID)
	}
	if q.Status != nil {
		add("a.status = $%d", *q.Status)
	}
	if q.DateFrom != nil {
		add("a.appointment_date >= $%d", *q.DateFrom)
	}
	if q.DateTo != nil {
		add("a.appointment_date <= $%d", *q.DateTo)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	col, ok := orderColumns[q.SortBy]
	if !ok {
		col = orderColumns[SortByAppointmentDate]
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	order := fmt.Sprintf(" ORDER BY %s %s, a.appointment_date %s, a.id ASC", col, dir, dir)

	pageArgs := append(append([]any{}, args...), q.Limit, q.Offset())

	return listStatement{
		countSQL:  `SELECT count(*) FROM appointments a` + whereSQL,
		countArgs: args,
		pageSQL: `SELECT ` + detailColumns + detailFrom + whereSQL + order +
			fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(pageArgs)-1, len(pageArgs)),
		pageArgs: pageArgs,
	}
}

func (r *PgRepository) ListAppointments(ctx context.Context, q ListQuery) ([]Detail, int, error) {
	stmt := buildListStatement(q)

	var total int
	if err := r.db.QueryRow(ctx, stmt.countSQL, stmt.countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	rows, err := r.db.Query(ctx, stmt.pageSQL, stmt.pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	result := make([]Detail, 0, q.Limit)
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

// InBookingTx opens a transaction holding a transaction-scoped advisory lock
// on (staffID, bucket). Nested calls reuse the open transaction.
func (r *PgRepository) InBookingTx(ctx context.Context, staffID uuid.UUID, bucket time.Time, fn func(ctx context.Context, tx Repository) error) error {
	if r.inTx {
		if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, bookingLockKey(staffID, bucket)); err != nil {
			return fmt.Errorf("advisory lock: %w", err)
		}
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin booking tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, bookingLockKey(staffID, bucket)); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}

	txRepo := &PgRepository{pool: r.pool, db: tx, inTx: true}
	if err := fn(ctx, txRepo); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit booking tx: %w", err)
	}
	return nil
}

// WithAppointmentLocked runs fn in a transaction holding a row lock on the
// appointment. Nested calls reuse the open transaction.
func (r *PgRepository) WithAppointmentLocked(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, tx Repository, current *Appointment) error) error {
	lockRow := func(ctx context.Context, txRepo *PgRepository) error {
		current, err := scanAppointment(txRepo.db.QueryRow(ctx,
			`SELECT `+appointmentColumns+` FROM appointments a WHERE a.id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		return fn(ctx, txRepo, current)
	}

	if r.inTx {
		return lockRow(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := lockRow(ctx, &PgRepository{pool: r.pool, db: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update tx: %w", err)
	}
	return nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
