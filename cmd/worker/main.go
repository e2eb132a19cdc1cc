package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/healthqa/testcase-search/internal/bootstrap"
	"github.com/healthqa/testcase-search/internal/config"
	"github.com/healthqa/testcase-search/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, serviceName, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		app.Logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	app.Logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeWorkbookIngested(ctx, func(handlerCtx context.Context, workbookID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		if wb, err := app.Repo.GetWorkbook(processCtx, workbookID); err == nil {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(wb.CreatedAt))
		}

		workerMetrics.StartWorkbook()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, workbookID)
		workerMetrics.FinishWorkbook(serviceName, time.Since(start), processErr)

		if processErr != nil {
			app.Logger.Error("workbook processing failed", "workbook_id", workbookID, "error", processErr)
			return processErr
		}

		if wb, err := app.Repo.GetWorkbook(processCtx, workbookID); err == nil {
			workerMetrics.ObserveCasesExtracted(serviceName, wb.CaseCount)
		}
		app.Logger.Info("workbook processed", "workbook_id", workbookID)
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
