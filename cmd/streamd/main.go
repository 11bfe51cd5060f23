package main

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"

	"rxsql/internal/bridge"
	"rxsql/internal/config"
	"rxsql/internal/driver"
	"rxsql/internal/rdbc"
	"rxsql/internal/render"
	"rxsql/internal/server"
	"rxsql/internal/storage"
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	slog.Info("starting rxsql streamd", "env", cfg.AppEnv)

	factory, err := driver.FromURL(cfg.DatabaseURL,
		rdbc.Options{User: cfg.DatabaseUser, Password: cfg.DatabasePassword},
		driver.Config{MaxConcurrency: cfg.MaxDBConcurrency},
	)
	if err != nil {
		slog.Error("resolving database driver", "error", err)
		os.Exit(1)
	}

	br := &bridge.Configuration{
		Factory:  factory,
		Renderer: render.PassthroughRenderer{},
		Dialect:  dialectFor(cfg.DatabaseURL),
		Logger:   logger,
	}

	var store storage.Provider
	if cfg.StorageType == "s3" {
		client := s3.New(s3.Options{Region: cfg.AWSRegion})
		store = storage.NewS3(client, cfg.S3Bucket)
	} else {
		store = storage.NewLocal(cfg.LocalStoragePath)
	}

	hub := server.NewHub()
	handler := server.NewHandler(cfg, br, hub)
	export := &server.ExportHandler{Handler: handler, Store: store}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", handler.HandleToken)
	mux.HandleFunc("/stream", handler.HandleStream)
	mux.HandleFunc("/dashboard/stream", handler.HandleDashboard)
	mux.HandleFunc("/export", export.HandleExport)

	finalHandler := server.CORS(cfg.AllowedOrigins, cfg.AppEnv)(mux)

	slog.Info("streamd listening", "port", cfg.ServerPort)
	if err := http.ListenAndServe(":"+cfg.ServerPort, finalHandler); err != nil {
		slog.Error("server failed", "error", err)
	}
}

func dialectFor(url string) render.Dialect {
	switch {
	case strings.HasPrefix(url, "postgres://"):
		return render.Dialect{Family: render.FamilyPostgres}
	default:
		return render.Dialect{Family: render.FamilyMySQL}
	}
}
