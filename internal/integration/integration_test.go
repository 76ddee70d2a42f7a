package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"trivia-raffle-service/internal/app"
	"trivia-raffle-service/internal/domain"
	pginfra "trivia-raffle-service/internal/infra/postgres"
	pgmigrations "trivia-raffle-service/internal/infra/postgres/migrations"
	redisinfra "trivia-raffle-service/internal/infra/redis"
)

func TestDrawLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openBun(t, ctx, pgURL)
	defer db.Close()
	seedCompetition(t, ctx, db)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	ledger := pginfra.NewLedger(db)
	store := pginfra.NewDrawStore(db)
	audit := pginfra.NewAuditLog(db)
	source := pginfra.NewSubmissionSource(pool)
	candidates := app.NewLedgerCandidates(ledger)
	previews := redisinfra.NewPreviewCache(redisClient, candidates, 5*time.Minute)

	tickets := app.NewTicketService(ledger, source, source, audit, previews)
	draws := app.NewDrawService(candidates, store, audit, previews)

	actor := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	owner := domain.Actor{ID: "owner-1", Role: domain.RoleOwner}

	result, err := tickets.Recompute(ctx, actor, "comp-1", "u1", "Uma")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if result.TicketCount != 1 {
		t.Fatalf("expected 1 ticket, got %d", result.TicketCount)
	}
	// Idempotence against the real delete-then-reinsert transaction.
	if _, err := tickets.Recompute(ctx, actor, "comp-1", "u1", "Uma"); err != nil {
		t.Fatalf("recompute again: %v", err)
	}
	entries, err := ledger.EntriesByCompetition(ctx, "comp-1")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one automatic entry, got %d", len(entries))
	}

	preview, err := draws.Preview(ctx, "comp-1")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(preview) != 1 || preview[0].UserID != "u1" {
		t.Fatalf("unexpected preview %+v", preview)
	}

	snapshot, err := draws.Lock(ctx, actor, "comp-1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if snapshot.TotalTickets != 1 {
		t.Fatalf("expected snapshot total 1, got %d", snapshot.TotalTickets)
	}
	// The primary key constraint backs the double-lock guard.
	if _, err := draws.Lock(ctx, actor, "comp-1"); err != domain.ErrAlreadyLocked {
		t.Fatalf("expected already locked, got %v", err)
	}

	drawResult, err := draws.Run(ctx, actor, "comp-1", "audit-seed")
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if drawResult.WinnerID != "u1" || drawResult.DrawHash == "" {
		t.Fatalf("unexpected draw result %+v", drawResult)
	}
	// The conditional update backs the double-draw guard.
	if _, err := draws.Run(ctx, actor, "comp-1", ""); err != domain.ErrAlreadyDrawn {
		t.Fatalf("expected already drawn, got %v", err)
	}

	if err := draws.SetPublication(ctx, actor, "comp-1", domain.Publication{IsPublished: true, ShowWinnerName: true}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	public, err := draws.PublicResult(ctx, "comp-1")
	if err != nil {
		t.Fatalf("public result: %v", err)
	}
	if public.WinnerName != "Uma" {
		t.Fatalf("expected winner name shown, got %q", public.WinnerName)
	}

	if err := draws.Reset(ctx, owner, "comp-1", "verification run complete"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := store.Snapshot(ctx, "comp-1"); err != domain.ErrNoSnapshot {
		t.Fatalf("snapshot must be gone after reset, got %v", err)
	}

	var auditCount int
	if err := db.NewSelect().Table("audit_log").ColumnExpr("count(*)").Scan(ctx, &auditCount); err != nil {
		t.Fatalf("count audit: %v", err)
	}
	// recompute x2, lock, draw, publication, reset
	if auditCount != 6 {
		t.Fatalf("expected 6 audit records, got %d", auditCount)
	}
}

func openBun(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedCompetition(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	rules := domain.RuleConfig{
		Mode:              domain.ModeMinCorrect,
		MinCorrectAnswers: 2,
		Tickets:           domain.TicketsConfig{BaseTickets: 1},
	}
	data, err := json.Marshal(rules)
	if err != nil {
		t.Fatalf("marshal rules: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO competitions (id, rules) VALUES (?, ?::jsonb)`, "comp-1", string(data)); err != nil {
		t.Fatalf("insert competition: %v", err)
	}

	now := time.Now()
	verdicts := []string{"correct", "correct", "incorrect"}
	for i, verdict := range verdicts {
		_, err := db.ExecContext(ctx,
			`INSERT INTO submissions (id, competition_id, user_id, verdict, submitted_at) VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), "comp-1", "u1", verdict, now.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("insert submission: %v", err)
		}
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "raffle", "POSTGRES_PASSWORD": "rafflepass", "POSTGRES_DB": "raffledb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://raffle:rafflepass@%s:%s/raffledb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
