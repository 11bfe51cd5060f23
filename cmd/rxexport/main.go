package main

import (
	"compress/gzip"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"rxsql/internal/binding"
	"rxsql/internal/bridge"
	"rxsql/internal/config"
	"rxsql/internal/driver"
	"rxsql/internal/rdbc"
	"rxsql/internal/reactive"
	"rxsql/internal/render"
	"rxsql/internal/sink"
	"rxsql/internal/storage"
)

var version = "dev"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "rxexport %s\n\n", version)
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  rxexport -query \"SELECT ...\" [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DATABASE_URL        Bridge connection URL (mysql://... or postgres://...)\n")
		fmt.Fprintf(os.Stderr, "  STORAGE_TYPE        \"local\" or \"s3\"\n")
		fmt.Fprintf(os.Stderr, "  LOCAL_STORAGE_PATH  Directory for local exports\n")
	}

	query := flag.String("query", "", "SQL query to export")
	format := flag.String("format", "csv", "Output format: csv, json, excel, pdf")
	fetch := flag.Int("fetch", 0, "Cursor fetch-size hint (0 = driver default)")
	blocking := flag.Bool("blocking", false, "Use the legacy blocking execution path")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rxexport %s\n", version)
		os.Exit(0)
	}

	_ = godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *query == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()

	factory, err := driver.FromURL(cfg.DatabaseURL,
		rdbc.Options{User: cfg.DatabaseUser, Password: cfg.DatabasePassword},
		driver.Config{MaxConcurrency: cfg.MaxDBConcurrency},
	)
	if err != nil {
		slog.Error("resolving database driver", "error", err)
		os.Exit(1)
	}

	br := &bridge.Configuration{
		Factory:       factory,
		Renderer:      render.PassthroughRenderer{},
		Dialect:       dialectFor(cfg.DatabaseURL),
		Logger:        logger,
		ForceBlocking: *blocking,
	}
	if *blocking {
		br.Executor = blockingExecutor(cfg)
	}

	var store storage.Provider
	if cfg.StorageType == "s3" {
		store = storage.NewS3(s3.New(s3.Options{Region: cfg.AWSRegion}), cfg.S3Bucket)
	} else {
		store = storage.NewLocal(cfg.LocalStoragePath)
	}

	ext := *format
	if ext == "excel" {
		ext = "xlsx"
	}
	key := fmt.Sprintf("exports/%s.%s", uuid.New().String(), ext)
	if cfg.Compression {
		key += ".gz"
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StreamTimeout)
	defer cancel()

	pub := bridge.NewRecordPublisher(br, &render.RawQuery{SQL: *query, Fetch: *fetch})

	res, err := runExport(ctx, store, key, *format, cfg.Compression, pub)
	if err != nil {
		slog.Error("export failed", "error", err)
		os.Exit(1)
	}

	slog.Info("export completed", "rows", res.Rows, "duration", res.Duration, "url", store.URL(key))
}

func runExport(ctx context.Context, store storage.Provider, key, format string, compress bool, pub reactive.Publisher[binding.Record]) (sink.Result, error) {
	storeWriter, outcome := store.StreamTo(ctx, key)
	if storeWriter == nil {
		return sink.Result{}, <-outcome
	}

	var out io.WriteCloser = storeWriter
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(storeWriter)
		out = gz
	}

	var enc sink.RecordEncoder
	switch format {
	case "json":
		enc = sink.NewJSONEncoder(out)
	case "excel":
		enc = sink.NewExcelEncoder(out)
	case "pdf":
		enc = sink.NewPDFEncoder(out)
	default:
		enc = sink.NewCSVEncoder(out)
	}

	res, runErr := sink.Run(ctx, pub, enc, 500)

	var gzErr error
	if gz != nil {
		gzErr = gz.Close()
	}
	storeErr := storeWriter.Close()
	uploadErr := <-outcome

	for _, err := range []error{runErr, gzErr, storeErr, uploadErr} {
		if err != nil {
			return sink.Result{}, err
		}
	}
	return res, nil
}

func blockingExecutor(cfg *config.Config) bridge.BlockingExecutor {
	db, err := openSQL(cfg)
	if err != nil {
		slog.Error("opening blocking database handle", "error", err)
		os.Exit(1)
	}
	return &driver.BlockingExecutor{DB: db, Renderer: render.PassthroughRenderer{}}
}

// openSQL opens the plain database/sql handle the blocking executor wraps.
// The SQL drivers are registered by the reactive driver package.
func openSQL(cfg *config.Config) (*sql.DB, error) {
	switch {
	case strings.HasPrefix(cfg.DatabaseURL, "postgres://"):
		return sql.Open("postgres", cfg.DatabaseURL)
	default:
		return sql.Open("mysql", strings.TrimPrefix(cfg.DatabaseURL, "mysql://"))
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
