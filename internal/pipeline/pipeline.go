package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/faaalmv/saf-gda/internal/vision"
)

// Analysis is the output of one document pass: a normalized transcript and,
// when the page carries a decodable QR code, its raw payload.
type Analysis struct {
	Transcript     string
	BarcodePayload string // "" when no barcode decoded
}

// DecodeError marks input bytes that cannot be interpreted as an image.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %s", e.Reason)
}

// Pipeline turns raw image bytes into an Analysis using the injected
// recognition capability. Deterministic for identical input bytes.
type Pipeline struct {
	capability vision.Capability
	logger     *slog.Logger
	workDir    string
}

func New(capability vision.Capability, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{capability: capability, logger: logger, workDir: os.TempDir()}
}

// Analyze validates the bytes, materializes them for the external engines,
// and returns the transcript plus any barcode payload. The only typed
// failure is *DecodeError; engine failures pass through wrapped.
func (p *Pipeline) Analyze(ctx context.Context, imageBytes []byte) (Analysis, error) {
	ext, ok := sniffImage(imageBytes)
	if !ok {
		return Analysis{}, &DecodeError{Reason: "unrecognized image format"}
	}

	tmp, err := os.CreateTemp(p.workDir, "saf-doc-*."+ext)
	if err != nil {
		return Analysis{}, fmt.Errorf("stage document: %w", err)
	}
	path := tmp.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil {
			p.logger.Warn("stage cleanup failed", "path", path, "error", rmErr)
		}
	}()
	if _, err := tmp.Write(imageBytes); err != nil {
		_ = tmp.Close()
		return Analysis{}, fmt.Errorf("stage document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Analysis{}, fmt.Errorf("stage document: %w", err)
	}

	transcript, payload, err := p.capability.Recognize(ctx, path)
	if err != nil {
		return Analysis{}, fmt.Errorf("recognize %s: %w", filepath.Base(path), err)
	}
	return Analysis{Transcript: transcript, BarcodePayload: payload}, nil
}

// sniffImage checks magic bytes for the formats the vision engines accept.
func sniffImage(b []byte) (ext string, ok bool) {
	switch {
	case len(b) >= 8 && bytes.Equal(b[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return "png", true
	case len(b) >= 3 && bytes.Equal(b[:3], []byte{0xFF, 0xD8, 0xFF}):
		return "jpg", true
	case len(b) >= 4 && (bytes.Equal(b[:4], []byte("II*\x00")) || bytes.Equal(b[:4], []byte("MM\x00*"))):
		return "tif", true
	case len(b) >= 2 && bytes.Equal(b[:2], []byte("BM")):
		return "bmp", true
	default:
		return "", false
	}
}
