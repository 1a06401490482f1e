package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/vetclinic-scheduling/internal/appointment"
	"github.com/hackgods/vetclinic-scheduling/internal/auth"
	"github.com/hackgods/vetclinic-scheduling/internal/client"
	"github.com/hackgods/vetclinic-scheduling/internal/config"
	"github.com/hackgods/vetclinic-scheduling/internal/db"
	"github.com/hackgods/vetclinic-scheduling/internal/logger"
	"github.com/hackgods/vetclinic-scheduling/internal/staff"
)

// seedPassword is shared by every generated staff account so the simulator
// can log in as any of them.
const seedPassword = "seed-password-123"

var species = []string{"Dog", "Cat", "Rabbit", "Parrot", "Hamster", "Guinea Pig", "Ferret", "Tortoise"}

var breeds = []string{"Mixed", "Labrador", "Siamese", "Beagle", "Persian", "Lop", "Budgie", "Terrier"}

var visitTypes = []string{"Checkup", "Vaccination", "Dental", "Surgery", "Follow-up", "Grooming"}

var reasons = []string{"Annual exam", "Limping on front leg", "Skin irritation", "Not eating", "Booster shot", "Post-op check"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config load error")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info().Msg("seed starting")

	if cfg.PostgresDSN == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if _, err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	gofakeit.Seed(time.Now().UnixNano())
	bg := context.Background()

	staffIDs, err := seedStaff(bg, log, staff.NewPgRepository(pool), 40)
	if err != nil {
		log.Fatal().Err(err).Msg("seed staff")
	}
	clientIDs, err := seedClients(bg, log, client.NewPgRepository(pool), 1500)
	if err != nil {
		log.Fatal().Err(err).Msg("seed clients")
	}
	patientIDs, err := seedPatients(bg, log, pool, clientIDs, 3000)
	if err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedAppointments(bg, log, appointment.NewPgRepository(pool), staffIDs, patientIDs, 5000); err != nil {
		log.Fatal().Err(err).Msg("seed appointments")
	}

	log.Info().Msg("seed complete")
}

// seedStaff creates one administrator plus count users spread across the
// other roles. Existing e-mail addresses are skipped.
func seedStaff(ctx context.Context, log zerolog.Logger, repo *staff.PgRepository, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding staff users")

	hash, err := auth.HashPassword(seedPassword)
	if err != nil {
		return nil, err
	}

	roles := []staff.Role{staff.RoleClinician, staff.RoleClinician, staff.RoleTechnician, staff.RoleFrontDesk}
	users := []staff.User{{Email: "admin@clinic.test", Name: "Clinic Administrator", Role: staff.RoleAdministrator}}
	for i := 0; i < count; i++ {
		users = append(users, staff.User{
			Email: gofakeit.Email(),
			Name:  gofakeit.Name(),
			Role:  roles[i%len(roles)],
		})
	}

	var ids []uuid.UUID
	for i := range users {
		u := users[i]
		u.PasswordHash = hash
		if err := repo.CreateUser(ctx, &u); err != nil {
			if errors.Is(err, staff.ErrEmailTaken) {
				continue
			}
			return nil, err
		}
		ids = append(ids, u.ID)
	}

	log.Info().Int("created", len(ids)).Str("admin", users[0].Email).Msg("staff users seeded")
	return ids, nil
}

func seedClients(ctx context.Context, log zerolog.Logger, repo *client.PgRepository, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding clients")

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		phone := gofakeit.Phone()
		c := client.Client{
			Name:  gofakeit.Name(),
			Email: gofakeit.Email(),
			Phone: &phone,
		}
		if err := repo.CreateClient(ctx, &c); err != nil {
			if errors.Is(err, client.ErrEmailTaken) {
				continue
			}
			return nil, err
		}
		ids = append(ids, c.ID)
	}

	log.Info().Int("created", len(ids)).Msg("clients seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, log zerolog.Logger, pool *pgxpool.Pool, owners []uuid.UUID, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding patients")
	if len(owners) == 0 {
		return nil, errors.New("no clients to own patients")
	}

	const batchSize = 500
	ids := make([]uuid.UUID, 0, count)

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			breed := breeds[gofakeit.Number(0, len(breeds)-1)]
			weight := gofakeit.Float64Range(0.2, 60)

			tag, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, species, breed, age, weight, owner_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
				ON CONFLICT (name, owner_id) DO NOTHING
			`, id, gofakeit.PetName(), species[gofakeit.Number(0, len(species)-1)], breed,
				gofakeit.Number(0, 20), weight, owners[gofakeit.Number(0, len(owners)-1)])
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			if tag.RowsAffected() == 1 {
				ids = append(ids, id)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Debug().Int("done", end).Int("total", count).Msg("patients batch committed")
	}

	log.Info().Int("created", len(ids)).Msg("patients seeded")
	return ids, nil
}

// seedAppointments books appointments starting tomorrow. Every staff member
// gets distinct minutes, so a run against an empty schedule never double
// books anyone.
func seedAppointments(ctx context.Context, log zerolog.Logger, repo *appointment.PgRepository, staffIDs, patientIDs []uuid.UUID, count int) error {
	log.Info().Int("count", count).Msg("seeding appointments")
	if len(staffIDs) == 0 || len(patientIDs) == 0 {
		return errors.New("no staff or patients to book")
	}

	start := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	statuses := []appointment.Status{
		appointment.StatusScheduled, appointment.StatusScheduled, appointment.StatusConfirmed,
		appointment.StatusCancelled, appointment.StatusCompleted, appointment.StatusNoShow,
	}

	for i := 0; i < count; i++ {
		staffIdx := i % len(staffIDs)
		slot := i / len(staffIDs)
		// 8:00 onwards, 20 minutes apart, 30 visits per day
		date := start.Add(time.Duration(slot/30)*24*time.Hour + 8*time.Hour + time.Duration(slot%30)*20*time.Minute)

		visit := visitTypes[gofakeit.Number(0, len(visitTypes)-1)]
		reason := reasons[gofakeit.Number(0, len(reasons)-1)]

		a := appointment.Appointment{
			PatientID:       patientIDs[gofakeit.Number(0, len(patientIDs)-1)],
			StaffID:         staffIDs[staffIdx],
			AppointmentDate: date,
			Type:            &visit,
			Reason:          &reason,
			Status:          statuses[gofakeit.Number(0, len(statuses)-1)],
		}
		if err := repo.CreateAppointment(ctx, &a); err != nil {
			return err
		}

		if (i+1)%1000 == 0 {
			log.Debug().Int("done", i+1).Int("total", count).Msg("appointments progress")
		}
	}

	log.Info().Msg("appointments seeded")
	return nil
}
