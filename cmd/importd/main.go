// Command importd runs the submitter HTTP API and the ingest worker in a
// single process, since the Event Bus is in-process-only and must be
// shared between the worker publishing events and the SSE handlers
// delivering them (SPEC_FULL.md §5).
//
// Grounded on the teacher's cmd/worker/main.go bootstrap (DB connection,
// goroutine launch, signal-based graceful shutdown) merged with its
// cmd/server/main.go counterpart for the HTTP listener.
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/lib/pq"

	"github.com/rowforge/tabular-import/internal/config"
	"github.com/rowforge/tabular-import/internal/eventbus"
	httptransport "github.com/rowforge/tabular-import/internal/transport/http"
	"github.com/rowforge/tabular-import/internal/ingestworker"
	"github.com/rowforge/tabular-import/internal/pkg/distlock"
	"github.com/rowforge/tabular-import/internal/queue"
	"github.com/rowforge/tabular-import/internal/repository/postgres"
	"github.com/rowforge/tabular-import/internal/rowprocessor"
	"github.com/rowforge/tabular-import/internal/service/importjob"
	"github.com/rowforge/tabular-import/internal/staging"
	"github.com/rowforge/tabular-import/internal/submitter"
)

func main() {
	log.Println("Starting tabular-import service...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("ping database: %v", err)
	}
	if _, err := db.Exec(postgres.Schema); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	log.Println("connected to database")

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("load AWS config: %v", err)
	}
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.QueueEndpointOverride != "" {
			o.BaseEndpoint = &cfg.QueueEndpointOverride
		}
	})
	wq := queue.NewSQSQueue(sqsClient, cfg.QueueURL, cfg.QueueLongPollSeconds, cfg.QueueVisibilitySeconds)

	store, err := staging.NewLocalStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("init staging store: %v", err)
	}

	jobs := postgres.NewJobRepo(db)
	writer := postgres.NewTableWriter(db)
	bus := eventbus.New()

	lockFactory := func(key string) distlock.DistLock {
		return distlock.NewPGAdvisoryLock(db, "import-job:"+key)
	}
	processor := rowprocessor.New(jobs, writer, bus, lockFactory, cfg.ProgressThrottle)

	submit := submitter.New(jobs, store, wq, cfg.MaxUploadBytes)

	worker := ingestworker.New(wq, jobs, store, bus, processor, cfg.BatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)
	log.Println("ingest worker started")

	handlers := httptransport.NewHandlers(jobs, submit, bus, cfg.SSEHeartbeat)
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: httptransport.NewRouter(handlers)}

	go func() {
		log.Printf("listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown error: %v", err)
	}

	worker.Drain(10 * time.Second)
	bus.Close()

	log.Println("stopped")
}
