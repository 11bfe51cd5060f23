package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"rxsql/internal/binding"
	"rxsql/internal/bridge"
	"rxsql/internal/config"
	"rxsql/internal/reactive"
	"rxsql/internal/render"
	"rxsql/internal/security"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler serves the stream token and stream endpoints.
type Handler struct {
	Cfg    *config.Config
	Bridge *bridge.Configuration
	Hub    *Hub
}

func NewHandler(cfg *config.Config, br *bridge.Configuration, hub *Hub) *Handler {
	return &Handler{Cfg: cfg, Bridge: br, Hub: hub}
}

// HandleToken exchanges a stream key for a short-lived JWT.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := r.Header.Get("X-Stream-Key")
	if err := security.VerifyStreamKey(h.Cfg.StreamKeyHash, key); err != nil {
		slog.Warn("stream key rejected", "error", err)
		http.Error(w, "Invalid stream key", http.StatusUnauthorized)
		return
	}

	token, err := IssueStreamToken(h.Cfg.JWTSecret, h.Cfg.JWTTTL)
	if err != nil {
		slog.Error("issuing stream token", "error", err)
		http.Error(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// HandleDashboard registers a dashboard connection with the hub.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("dashboard upgrade failed", "error", err)
		return
	}

	h.Hub.Register(conn)
	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.Hub.Unregister(conn)
			break
		}
	}
}

// HandleStream executes a validated SELECT and streams its records over the
// websocket as JSON, one message per record. Demand follows write
// completion: the next record is requested only after the previous message
// went out.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if err := VerifyStreamToken(h.Cfg.JWTSecret, r.URL.Query().Get("token")); err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	query := r.URL.Query().Get("query")
	if err := security.ValidateStreamQuery(query); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	streamID := uuid.New().String()
	slog.Info("stream started", "stream_id", streamID)
	h.Hub.Broadcast(StreamUpdate{Type: "stream_start", StreamID: streamID})

	pub := bridge.NewRecordPublisher(h.Bridge, &render.RawQuery{SQL: query, Fetch: h.Cfg.FetchSize})

	done := make(chan struct{})
	ws := &wsSubscriber{conn: conn, done: done}
	pub.Subscribe(ws)

	// Drain the client side so peer closes interrupt the stream.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				ws.cancel()
				return
			}
		}
	}()

	<-done

	if ws.err != nil {
		slog.Error("stream failed", "stream_id", streamID, "error", ws.err)
		h.Hub.Broadcast(StreamUpdate{Type: "stream_error", StreamID: streamID, Error: ws.err.Error()})
		return
	}
	slog.Info("stream completed", "stream_id", streamID, "rows", ws.rows)
	h.Hub.Broadcast(StreamUpdate{Type: "stream_complete", StreamID: streamID, Rows: ws.rows})
}

type wsSubscriber struct {
	conn *websocket.Conn
	done chan struct{}

	sub  reactive.Subscription
	rows int64
	err  error
	once sync.Once
}

func (s *wsSubscriber) cancel() {
	if s.sub != nil {
		s.sub.Cancel()
	}
	s.finish()
}

func (s *wsSubscriber) finish() {
	s.once.Do(func() { close(s.done) })
}

func (s *wsSubscriber) OnSubscribe(sub reactive.Subscription) {
	s.sub = sub
	sub.Request(1)
}

func (s *wsSubscriber) OnNext(rec binding.Record) {
	obj := make(map[string]any, len(rec.Fields()))
	for i, f := range rec.Fields() {
		v := rec.Get(i)
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		obj[f.Name] = v
	}

	payload, err := json.Marshal(obj)
	if err == nil {
		err = s.conn.WriteMessage(websocket.TextMessage, payload)
	}
	if err != nil {
		s.err = err
		s.sub.Cancel()
		s.finish()
		return
	}

	s.rows++
	s.sub.Request(1)
}

func (s *wsSubscriber) OnError(err error) {
	s.err = err
	s.finish()
}

func (s *wsSubscriber) OnComplete() {
	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream complete"))
	s.finish()
}
