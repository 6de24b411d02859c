// Package server exposes the websocket endpoint and the per-connection
// session handler that bridges inbound frames to a conversation strategy.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tickvoice/tickvoice/internal/audio"
	"github.com/tickvoice/tickvoice/internal/session"
	"github.com/tickvoice/tickvoice/internal/strategy"
	"github.com/tickvoice/tickvoice/internal/timeline"
)

const audioFramePrefix = "data:"

// Handler owns one connection's conversation: it is the only component
// that sees raw inbound frames. Each connection gets its own Handler and
// Strategy; nothing is shared across connections.
type Handler struct {
	connID    string
	transport session.Transport
	strategy  strategy.Strategy
	audio     *audio.Processor
	journal   *timeline.Service
}

// NewHandler wires a per-connection handler.
func NewHandler(connID string, transport session.Transport, strat strategy.Strategy, proc *audio.Processor, journal *timeline.Service) *Handler {
	return &Handler{
		connID:    connID,
		transport: transport,
		strategy:  strat,
		audio:     proc,
		journal:   journal,
	}
}

// HandleFrame processes one inbound frame end to end: audio decoding,
// strategy dispatch, outbound reply, journaling. Failures become an error
// frame; only transport write errors propagate, since they mean the
// connection is gone.
func (h *Handler) HandleFrame(ctx context.Context, frame string) error {
	traceID := uuid.NewString()
	kind := timeline.KindText
	text := frame

	if strings.HasPrefix(frame, audioFramePrefix) {
		kind = timeline.KindAudio
		var err error
		text, err = h.audio.Process(ctx, frame)
		if err != nil {
			// Malformed audio drops the frame; the connection continues.
			slog.Warn("Dropping undecodable audio frame", "conn_id", h.connID, "error", err)
			h.record(traceID, kind, "", "error", "", err.Error())
			return nil
		}
		if text == "" {
			slog.Debug("Empty transcription, dropping frame", "conn_id", h.connID)
			return nil
		}
	}

	result, err := h.strategy.ProcessMessage(ctx, text)
	if err != nil {
		slog.Error("Failed to process message", "conn_id", h.connID, "trace_id", traceID, "error", err)
		h.record(traceID, kind, text, "error", "", err.Error())
		return h.transport.SendError(err.Error())
	}

	reply := fmt.Sprintf("[%s] %s", result.Status, result.Message)
	h.record(traceID, kind, text, string(result.Status), result.Message, "")
	return h.transport.SendMessage(reply)
}

func (h *Handler) record(traceID, kind, in, status, out, errText string) {
	if h.journal == nil {
		return
	}
	err := h.journal.RecordExchange(&timeline.Exchange{
		TraceID:   traceID,
		ConnID:    h.connID,
		Kind:      kind,
		ContentIn: in,
		Status:    status,
		Out:       out,
		ErrorText: errText,
	})
	if err != nil {
		slog.Warn("Failed to journal exchange", "conn_id", h.connID, "error", err)
	}
}
