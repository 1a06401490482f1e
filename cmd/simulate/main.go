package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/vetclinic-scheduling/internal/config"
	"github.com/hackgods/vetclinic-scheduling/internal/db"
	"github.com/hackgods/vetclinic-scheduling/internal/logger"
)

type SimConfig struct {
	APIBaseURL   string
	Email        string
	Password     string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	UpdateRatio  float64
	ReadRatio    float64
	PatientLimit int
	StaffLimit   int
	// HorizonMinutes bounds how far ahead bookings land. A small horizon
	// makes workers collide on the same staff minute more often.
	HorizonMinutes int
	PostgresDSN    string
}

type DataPool struct {
	Patients []uuid.UUID
	Staff    []uuid.UUID

	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, lo, hi, p50, p95 time.Duration) {
	om.mu.Lock()
	latencies := slices.Clone(om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0, 0
	}
	slices.Sort(latencies)

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	percentile := func(p int) time.Duration {
		idx := len(latencies) * p / 100
		if idx >= len(latencies) {
			idx = len(latencies) - 1
		}
		return latencies[idx]
	}

	return sum / time.Duration(len(latencies)), latencies[0], latencies[len(latencies)-1], percentile(50), percentile(95)
}

type Metrics struct {
	Booking     OperationMetrics
	Update      OperationMetrics
	ReadByID    OperationMetrics
	ListByStaff OperationMetrics
	ListByDay   OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	token   string
	log     zerolog.Logger
	metrics Metrics
}

func main() {
	base, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config load error")
	}
	log := logger.New(base.LogLevel, base.LogFormat)
	log.Info().Msg("simulator starting")

	cfg := loadConfig(base)
	if err := validateConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	log.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("booking", cfg.BookingRatio).
		Float64("update", cfg.UpdateRatio).
		Float64("read", cfg.ReadRatio).
		Msg("simulation config")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("load data pool")
	}
	log.Info().Int("patients", len(dataPool.Patients)).Int("staff", len(dataPool.Staff)).Msg("data pool loaded")

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}

	if err := sim.login(ctx); err != nil {
		log.Fatal().Err(err).Msg("login")
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig(base config.Config) SimConfig {
	cfg := SimConfig{
		APIBaseURL:     getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Email:          getEnv("SIM_EMAIL", "admin@clinic.test"),
		Password:       getEnv("SIM_PASSWORD", "seed-password-123"),
		Duration:       getDuration("SIM_DURATION", 30*time.Second),
		Workers:        getInt("SIM_WORKERS", 10),
		BookingRatio:   getFloat("SIM_BOOKING_RATIO", 0.5),
		UpdateRatio:    getFloat("SIM_UPDATE_RATIO", 0.2),
		ReadRatio:      getFloat("SIM_READ_RATIO", 0.3),
		PatientLimit:   getInt("SIM_PATIENT_LIMIT", 4000),
		StaffLimit:     getInt("SIM_STAFF_LIMIT", 50),
		HorizonMinutes: getInt("SIM_HORIZON_MINUTES", 600),
		PostgresDSN:    base.PostgresDSN,
	}

	total := cfg.BookingRatio + cfg.UpdateRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.UpdateRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return errors.New("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return errors.New("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return errors.New("SIM_DURATION must be > 0")
	}
	if cfg.HorizonMinutes <= 0 {
		return errors.New("SIM_HORIZON_MINUTES must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	var err error
	dataPool.Patients, err = loadIDs(ctx, pool, `SELECT id FROM patients LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	dataPool.Staff, err = loadIDs(ctx, pool, `SELECT id FROM staff_users WHERE role = 'clinician' LIMIT $1`, cfg.StaffLimit)
	if err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}

	if len(dataPool.Patients) == 0 {
		return nil, errors.New("no patients loaded")
	}
	if len(dataPool.Staff) == 0 {
		return nil, errors.New("no clinicians loaded")
	}

	return dataPool, nil
}

func loadIDs(ctx context.Context, pool *pgxpool.Pool, query string, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Simulator) login(ctx context.Context) error {
	body, _ := json.Marshal(map[string]string{"email": s.config.Email, "password": s.config.Password})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login returned %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	s.token = out.Token
	return nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.log.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng)
		case r < s.config.BookingRatio+s.config.UpdateRatio:
			s.doUpdate(ctx, rng)
		default:
			switch rng.Intn(3) {
			case 0:
				s.doReadByID(ctx, rng)
			case 1:
				s.doListByStaff(ctx, rng)
			case 2:
				s.doListByDay(ctx, rng)
			}
		}
	}
}

// randomDate returns a whole minute inside the booking horizon, starting
// tomorrow at 08:00 UTC.
func (s *Simulator) randomDate(rng *rand.Rand) time.Time {
	start := time.Now().UTC().Truncate(24 * time.Hour).Add(32 * time.Hour)
	return start.Add(time.Duration(rng.Intn(s.config.HorizonMinutes)) * time.Minute)
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	body, _ := json.Marshal(map[string]string{
		"patientId":       s.pool.Patients[rng.Intn(len(s.pool.Patients))].String(),
		"staffId":         s.pool.Staff[rng.Intn(len(s.pool.Staff))].String(),
		"appointmentDate": s.randomDate(rng).Format(time.RFC3339),
		"type":            "Checkup",
	})

	start := time.Now()
	resp, err := s.do(ctx, http.MethodPost, "/appointments", body)
	latency := time.Since(start)

	success, conflict := false, false
	if err == nil {
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusCreated:
			success = true
			var appt struct {
				ID uuid.UUID `json:"id"`
			}
			if json.NewDecoder(resp.Body).Decode(&appt) == nil && appt.ID != uuid.Nil {
				s.pool.AddAppointment(appt.ID)
			}
		case http.StatusConflict:
			conflict = true
		}
	}

	s.metrics.Booking.Record(latency, success, conflict)
}

// doUpdate moves an existing appointment to a new minute or status, which
// goes through the same conflict check as a booking.
func (s *Simulator) doUpdate(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}

	patch := map[string]string{"appointmentDate": s.randomDate(rng).Format(time.RFC3339)}
	if rng.Intn(4) == 0 {
		patch = map[string]string{"status": "confirmed"}
	}
	body, _ := json.Marshal(patch)

	start := time.Now()
	resp, err := s.do(ctx, http.MethodPut, "/appointments/"+id.String(), body)
	latency := time.Since(start)

	success, conflict := false, false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
		conflict = resp.StatusCode == http.StatusConflict
	}

	s.metrics.Update.Record(latency, success, conflict)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}
	s.timedGet(ctx, "/appointments/"+id.String(), &s.metrics.ReadByID)
}

func (s *Simulator) doListByStaff(ctx context.Context, rng *rand.Rand) {
	staffID := s.pool.Staff[rng.Intn(len(s.pool.Staff))]
	s.timedGet(ctx, fmt.Sprintf("/appointments?staffId=%s&limit=20&sortBy=appointmentDate", staffID), &s.metrics.ListByStaff)
}

func (s *Simulator) doListByDay(ctx context.Context, rng *rand.Rand) {
	day := s.randomDate(rng).Format(time.DateOnly)
	s.timedGet(ctx, fmt.Sprintf("/appointments?dateFrom=%s&dateTo=%s&sortBy=vetName&limit=50", day, day), &s.metrics.ListByDay)
}

func (s *Simulator) timedGet(ctx context.Context, path string, om *OperationMetrics) {
	start := time.Now()
	resp, err := s.do(ctx, http.MethodGet, path, nil)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	om.Record(latency, success, false)
}

func (s *Simulator) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.client.Do(req)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Update", &s.metrics.Update)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("List by Staff", &s.metrics.ListByStaff)
	printOperationReport("List by Day", &s.metrics.ListByDay)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, lo, hi, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), lo.Round(time.Millisecond), hi.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
