package server

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"rxsql/internal/bridge"
	"rxsql/internal/render"
	"rxsql/internal/security"
	"rxsql/internal/sink"
	"rxsql/internal/storage"
)

// ExportHandler runs a query to completion and stores the encoded result.
// Requests are authenticated by HMAC signature.
type ExportHandler struct {
	Handler *Handler
	Store   storage.Provider
}

type exportRequest struct {
	Query  string `json:"query"`
	Format string `json:"format"`
}

type exportResponse struct {
	JobID string `json:"job_id"`
	Key   string `json:"key"`
	Rows  int64  `json:"rows"`
	URL   string `json:"url"`
}

func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := security.VerifyHMAC(
		h.Handler.Cfg.APISecret,
		r.Method, r.URL.Path, string(body),
		r.Header.Get("X-Timestamp"), r.Header.Get("X-Signature"),
	); err != nil {
		slog.Warn("export request rejected", "error", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req exportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := security.ValidateStreamQuery(req.Query); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	jobID := uuid.New().String()
	ext := req.Format
	switch ext {
	case "json", "excel", "pdf":
	default:
		ext = "csv"
	}
	if ext == "excel" {
		ext = "xlsx"
	}

	key := fmt.Sprintf("exports/%s.%s", jobID, ext)
	if h.Handler.Cfg.Compression {
		key += ".gz"
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Handler.Cfg.StreamTimeout)
	defer cancel()

	res, err := h.runExport(ctx, req, key)
	if err != nil {
		slog.Error("export failed", "job_id", jobID, "error", err)
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}

	slog.Info("export completed", "job_id", jobID, "rows", res.Rows, "duration", res.Duration)
	json.NewEncoder(w).Encode(exportResponse{
		JobID: jobID,
		Key:   key,
		Rows:  res.Rows,
		URL:   h.Store.URL(key),
	})
}

func (h *ExportHandler) runExport(ctx context.Context, req exportRequest, key string) (sink.Result, error) {
	storeWriter, outcome := h.Store.StreamTo(ctx, key)
	if storeWriter == nil {
		return sink.Result{}, <-outcome
	}

	var out io.WriteCloser = storeWriter
	var gz *gzip.Writer
	if h.Handler.Cfg.Compression {
		gz = gzip.NewWriter(storeWriter)
		out = gz
	}

	var enc sink.RecordEncoder
	switch req.Format {
	case "json":
		enc = sink.NewJSONEncoder(out)
	case "excel":
		enc = sink.NewExcelEncoder(out)
	case "pdf":
		enc = sink.NewPDFEncoder(out)
	default:
		enc = sink.NewCSVEncoder(out)
	}

	pub := bridge.NewRecordPublisher(h.Handler.Bridge, &render.RawQuery{SQL: req.Query, Fetch: h.Handler.Cfg.FetchSize})
	res, runErr := sink.Run(ctx, pub, enc, 500)

	var gzErr error
	if gz != nil {
		gzErr = gz.Close()
	}
	storeErr := storeWriter.Close()
	uploadErr := <-outcome

	if runErr != nil {
		return sink.Result{}, fmt.Errorf("export run: %w", runErr)
	}
	if gzErr != nil {
		return sink.Result{}, fmt.Errorf("gzip close: %w", gzErr)
	}
	if storeErr != nil {
		return sink.Result{}, fmt.Errorf("storage close: %w", storeErr)
	}
	if uploadErr != nil {
		return sink.Result{}, fmt.Errorf("upload: %w", uploadErr)
	}
	return res, nil
}
