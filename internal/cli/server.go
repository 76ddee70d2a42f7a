package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"trivia-raffle-service/internal/app"
	"trivia-raffle-service/internal/config"
	"trivia-raffle-service/internal/domain"
	"trivia-raffle-service/internal/infra/memory"
	pginfra "trivia-raffle-service/internal/infra/postgres"
	redisinfra "trivia-raffle-service/internal/infra/redis"
	transport "trivia-raffle-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the raffle service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	previewTTL := config.TTLDuration(cfg.Draw.PreviewTTL, 2*time.Minute)

	var (
		ledger      app.TicketLedger
		drawStore   app.DrawStore
		auditLog    app.AuditLog
		rules       app.RuleSource
		submissions app.SubmissionSource
	)
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		ledger = pginfra.NewLedger(db)
		drawStore = pginfra.NewDrawStore(db)
		auditLog = pginfra.NewAuditLog(db)
		source := pginfra.NewSubmissionSource(pool)
		rules = source
		submissions = source
	} else {
		log.Printf("postgres not configured, running with in-memory stores and sample data")
		ledger = memory.NewLedger()
		drawStore = memory.NewDrawStore()
		auditLog = memory.NewAuditLog()
		source := memory.NewStaticSubmissionSource(sampleRules(), sampleSubmissions())
		rules = source
		submissions = source
	}

	candidates := app.NewLedgerCandidates(ledger)
	var previews app.PreviewCache
	if redisClient != nil {
		previews = redisinfra.NewPreviewCache(redisClient, candidates, previewTTL)
	} else {
		previews = memory.NewPreviewCache(candidates, previewTTL)
	}

	tickets := app.NewTicketService(ledger, rules, submissions, auditLog, previews)
	draws := app.NewDrawService(candidates, drawStore, auditLog, previews)

	handler := transport.NewHandler(tickets, draws)
	wsHandler := transport.NewWSHandler(draws)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting raffle service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleRules and sampleSubmissions seed the in-memory dev mode; production
// reads both from the dashboard's Postgres tables.
func sampleRules() map[string]domain.RuleConfig {
	return map[string]domain.RuleConfig{
		"comp-1": {
			Mode:              domain.ModeMinCorrect,
			MinCorrectAnswers: 2,
			Tickets: domain.TicketsConfig{
				BaseTickets: 1,
			},
			AllowManualAdjustments: true,
		},
	}
}

func sampleSubmissions() map[string][]domain.GradedSubmission {
	now := time.Now()
	return map[string][]domain.GradedSubmission{
		"comp-1": {
			{SubmissionID: "sub-1", CompetitionID: "comp-1", UserID: "u1", Verdict: domain.VerdictCorrect, SubmittedAt: now.Add(-2 * time.Hour)},
			{SubmissionID: "sub-2", CompetitionID: "comp-1", UserID: "u1", Verdict: domain.VerdictCorrect, SubmittedAt: now.Add(-1 * time.Hour)},
			{SubmissionID: "sub-3", CompetitionID: "comp-1", UserID: "u1", Verdict: domain.VerdictIncorrect, SubmittedAt: now.Add(-30 * time.Minute)},
		},
	}
}
