package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ticket2ics/internal/config"
	"ticket2ics/internal/handlers"
	"ticket2ics/internal/ics"
	"ticket2ics/internal/imageproc"
	"ticket2ics/internal/middleware"
	"ticket2ics/internal/pipeline"
	"ticket2ics/internal/storage"
	"ticket2ics/internal/vision"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()

	store, err := storage.NewFilesystemStore(cfg.StoragePath, logger)
	if err != nil {
		logger.Fatal("Failed to open task store", zap.Error(err))
	}

	pool := pipeline.NewWorkerPool(cfg.WorkerCount)
	pipe := pipeline.New(
		store,
		imageproc.NewProcessor(cfg.Image, logger),
		vision.NewClient(cfg.OpenAI),
		ics.NewGenerator(cfg.ReminderHours),
		pool,
		logger,
	)

	handler := handlers.NewTicketHandler(pipe, cfg.MaxFileSize, logger)
	auth := middleware.Auth(cfg.APIToken)

	mux := http.NewServeMux()
	mux.HandleFunc("/", handler.Root)
	mux.HandleFunc("/upload", handler.Upload)
	mux.HandleFunc("/process", handler.Process)
	mux.Handle("/result/", auth(http.HandlerFunc(handler.Result)))
	mux.HandleFunc("/ics/", handler.Calendar)
	mux.HandleFunc("/health", handler.Health)
	mux.Handle("/storage/", http.StripPrefix("/storage/", http.FileServer(http.Dir(cfg.StoragePath))))

	chain := middleware.TraceID(mux)
	chain = middleware.Logging(logger)(chain)
	chain = middleware.Recovery(logger)(chain)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           chain,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started",
			zap.String("address", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("storage", cfg.StoragePath),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	// Let in-flight pipeline runs reach a terminal status before exit.
	pipe.Drain()
	logger.Info("Shutdown complete")
}
