package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ledger-service/internal/config"
	"ledger-service/internal/domain"
	"ledger-service/internal/handler/middleware"
	hrest "ledger-service/internal/handler/rest"
	"ledger-service/internal/pub"
	"ledger-service/internal/repository"
	"ledger-service/internal/service"
	"ledger-service/internal/usecase"
	"ledger-service/pkg/utils"
)

// NewLedgerHTTPServer wires the ledger service and blocks serving HTTP.
// The session verifier is the boundary to the session service; a nil
// verifier disables authentication (dev profile).
func NewLedgerHTTPServer(cfg config.AppConfig, verifier middleware.SessionVerifier) {
	// --- DB connection ---
	dbpool, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// --- Engine logger ---
	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zlog.Sync()

	// --- Redis client ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})

	// --- Kafka writer ---
	kafkaWriter := pub.NewTransferEventsWriter(cfg.KafkaBrokers)
	defer kafkaWriter.Close()

	// --- Store ---
	retryPolicy := repository.DefaultRetryPolicy()
	retryPolicy.MaxAttempts = cfg.RetryMaxAttempts
	retryPolicy.BackoffBase = cfg.RetryBackoffBase

	store := repository.NewPostgresStore(dbpool, retryPolicy, zlog)

	schemaCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = store.EnsureSchema(schemaCtx)
	cancel()
	if err != nil {
		log.Fatalf("failed to ensure ledger schema: %v", err)
	}

	// --- Usecases ---
	idGen := utils.NewTransactionIDGenerator()
	publisher := pub.NewTransferEventPublisher(rdb, kafkaWriter, zlog)
	policy := domain.RecipientPolicy{RestrictToCustomers: cfg.RestrictPeerRecipients}

	transferUC := usecase.NewTransferUsecase(store, idGen, policy, publisher, zlog)
	txnUC := usecase.NewTransactionUsecase(store, rdb, zlog)

	// --- Seed demo accounts in a goroutine (dev profile, non-blocking) ---
	if cfg.SeedDemo {
		seeder := service.NewSystemSeeder(store)
		go func() {
			if err := seeder.SeedSystem(context.Background()); err != nil {
				log.Printf("Demo seeding failed: %v", err)
			}
		}()
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	ledgerHandler := hrest.NewLedgerRestHandler(transferUC, txnUC)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SessionAuth(verifier))
		ledgerHandler.RegisterRoutes(r)
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Ledger HTTP server listening on %s", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("HTTP server failed: %v", err)
	}
}
