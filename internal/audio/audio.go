// Package audio decodes inbound audio payloads and turns them into text.
package audio

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tickvoice/tickvoice/internal/provider"
)

// Transcriber converts an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, req *provider.AudioRequest) (*provider.AudioResponse, error)
}

// Processor decodes data-URI audio frames, stages them as temporary files,
// and transcribes them. Temp files are removed before Process returns on
// every path.
type Processor struct {
	transcriber Transcriber
	dir         string
	model       string
}

// NewProcessor creates a processor staging files under dir, or the system
// temp directory when dir is empty.
func NewProcessor(transcriber Transcriber, dir, model string) *Processor {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Processor{transcriber: transcriber, dir: dir, model: model}
}

// Process decodes a `data:<mime>;base64,<payload>` frame and returns the
// transcribed text. An empty decoded payload yields an empty string
// without a transcription call.
func (p *Processor) Process(ctx context.Context, frame string) (string, error) {
	_, payload, found := strings.Cut(frame, ",")
	if !found {
		return "", fmt.Errorf("malformed audio frame: no comma separator")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode audio payload: %w", err)
	}
	if len(data) == 0 {
		slog.Warn("Received empty audio payload")
		return "", nil
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}
	path := filepath.Join(p.dir, fmt.Sprintf("audio_%d%s", time.Now().UnixNano(), extension(frame)))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	defer os.Remove(path)

	resp, err := p.transcriber.Transcribe(ctx, &provider.AudioRequest{
		FilePath: path,
		Model:    p.model,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// extension maps the frame's mime type to a file extension the
// transcription API recognizes. Defaults to .webm.
func extension(frame string) string {
	header, _, _ := strings.Cut(frame, ",")
	header = strings.TrimPrefix(header, "data:")
	mime, _, _ := strings.Cut(header, ";")
	switch mime {
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/mp4", "audio/m4a":
		return ".m4a"
	default:
		return ".webm"
	}
}
