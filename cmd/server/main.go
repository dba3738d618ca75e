package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"camera-overlay/internal/overlay"
	"camera-overlay/internal/platform/config"
	"camera-overlay/internal/platform/logger"
	"camera-overlay/internal/platform/metrics"
	"camera-overlay/internal/server"
	"camera-overlay/internal/stream"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "5000")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	outputDir := config.GetEnv("HLS_OUTPUT_DIR", "hls_stream")
	ffmpegPath := config.GetEnv("FFMPEG_PATH", stream.DefaultFFmpegPath)
	origins := config.GetEnvList("CORS_ALLOWED_ORIGINS", []string{"*"})

	storeCfg := overlay.StoreConfig{
		Backend:         config.GetEnv("STORE_BACKEND", ""),
		MongoURI:        config.GetEnv("MONGO_URI", ""),
		MongoDatabase:   config.GetEnv("MONGO_DATABASE", "video"),
		MongoCollection: config.GetEnv("MONGO_COLLECTION", "overlays"),
		RedisAddr:       config.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   config.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:         config.GetEnvInt("REDIS_DB", 0),
		SQLitePath:      config.GetEnv("SQLITE_PATH", "overlays.db"),
	}

	log := logger.New(logLevel, logFormat)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.Error("create output directory", "dir", outputDir, "error", err)
		os.Exit(1)
	}

	store, err := overlay.OpenStore(context.Background(), storeCfg)
	if err != nil {
		log.Error("open overlay store", "backend", storeCfg.ResolvedBackend(), "error", err)
		os.Exit(1)
	}

	met := metrics.New()
	launcher := stream.NewLauncher(stream.Options{
		FFmpegPath: ffmpegPath,
		OutputDir:  outputDir,
	}, log, met, stream.WithSpawner(stream.ExecSpawner{Stdout: os.Stdout, Stderr: os.Stderr}))

	r := server.NewRouter(server.Deps{
		Overlays:       overlay.NewService(store),
		Launcher:       launcher,
		Log:            log,
		Metrics:        met,
		AllowedOrigins: origins,
	})

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"store_backend", storeCfg.ResolvedBackend(),
		"hls_output_dir", outputDir,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	if err := store.Close(); err != nil {
		log.Error("close overlay store", "error", err)
	}

	log.Info("server stopped")
}
