package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tickvoice/tickvoice/internal/audio"
	"github.com/tickvoice/tickvoice/internal/config"
	"github.com/tickvoice/tickvoice/internal/provider"
	"github.com/tickvoice/tickvoice/internal/strategy"
	"github.com/tickvoice/tickvoice/internal/timeline"
	"github.com/tickvoice/tickvoice/internal/tools"
)

// Server accepts websocket connections and gives each one an isolated
// session handler.
type Server struct {
	cfg      *config.Config
	provider provider.LLMProvider
	registry *tools.Registry
	journal  *timeline.Service
	upgrader websocket.Upgrader
}

// New creates a server. The journal may be nil to disable exchange
// recording.
func New(cfg *config.Config, p provider.LLMProvider, registry *tools.Registry, journal *timeline.Service) *Server {
	return &Server{
		cfg:      cfg,
		provider: p,
		registry: registry,
		journal:  journal,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ListenAndServe blocks serving websocket connections on /ws until the
// context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Server listening", "addr", addr, "direct", s.cfg.Server.DirectAgent)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// handleWS upgrades the connection and runs its read loop. The loop is
// strictly sequential: each frame is fully processed and answered before
// the next read.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	slog.Info("Connection opened", "conn_id", connID)
	defer slog.Info("Connection closed", "conn_id", connID)

	strat := strategy.New(s.cfg.Server.DirectAgent, strategy.Options{
		Provider:    s.provider,
		Registry:    s.registry,
		Model:       s.cfg.Model.Name,
		MaxTokens:   s.cfg.Model.MaxTokens,
		Temperature: s.cfg.Model.Temperature,
		MaxTurns:    s.cfg.Model.MaxTurns,
	})
	proc := audio.NewProcessor(s.provider, s.cfg.Audio.Dir, s.cfg.Audio.TranscribeModel)
	handler := NewHandler(connID, newWSTransport(conn), strat, proc, s.journal)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("Connection read failed", "conn_id", connID, "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if err := handler.HandleFrame(r.Context(), string(data)); err != nil {
			slog.Warn("Connection write failed", "conn_id", connID, "error", err)
			return
		}
	}
}
