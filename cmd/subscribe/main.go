package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/responsiv/subscribe-plugin/internal/api"
	apicron "github.com/responsiv/subscribe-plugin/internal/api/cron"
	"github.com/responsiv/subscribe-plugin/internal/config"
	"github.com/responsiv/subscribe-plugin/internal/domain/subscription"
	"github.com/responsiv/subscribe-plugin/internal/logger"
	"github.com/responsiv/subscribe-plugin/internal/service"
	"github.com/responsiv/subscribe-plugin/internal/testutil"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logg, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	clock := types.NewRealClock()

	// The billing ledger is an external system. Until an integration is
	// configured the binary runs against the in-process ledger, which keeps
	// the cron surface exercisable end to end.
	ledger := testutil.NewInMemoryLedger(clock)

	params := service.ServiceParams{
		Logger:         logg,
		Config:         cfg,
		Clock:          clock,
		Events:         service.NewPublisher(),
		PlanRepo:       testutil.NewInMemoryPlanStore(),
		MembershipRepo: testutil.NewInMemoryMembershipStore(),
		ServiceRepo:    testutil.NewInMemoryServiceStore(),
		StatusLogRepo:  testutil.NewInMemoryStatusLogStore(),
		DunningRepo:    testutil.NewInMemoryDunningStore(),
		Statuses:       subscription.SeedStatuses(),
		Ledger:         ledger,
	}

	service.NewEngine(params).Register()
	worker := service.NewWorker(params)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Cron.Schedule, func() {
		message := worker.Process(context.Background())
		logg.Infow("worker sweep finished", "message", message)
	}); err != nil {
		logg.Fatalw("failed to schedule worker sweep",
			"schedule", cfg.Cron.Schedule,
			"error", err,
		)
	}
	scheduler.Start()
	defer scheduler.Stop()

	handler := apicron.NewWorkerCronHandler(worker, logg)
	router := api.NewRouter(handler, logg)

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		logg.Infow("server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logg.Errorw("server shutdown failed", "error", err)
	}
	logg.Infow("server stopped")
}
