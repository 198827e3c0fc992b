package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Scan strategies. Full-page reads the whole document (PSM 3); zonal treats
// the input as a pre-cropped band of text (PSM 7, the lab variant).
const (
	ScanFullPage = "full-page"
	ScanZonal    = "zonal"
)

// Capability is the injected recognition engine: image file in, best-effort
// transcript and optional barcode payload out. A poor-quality image yields an
// empty transcript, not an error. The payload is "" when no barcode decodes.
type Capability interface {
	Recognize(ctx context.Context, path string) (transcript, barcodePayload string, err error)
}

type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Zbarimg   string // binary name or absolute path; if empty -> "zbarimg"

	Language     string // default "spa"
	TessdataDir  string
	ScanStrategy string // ScanFullPage | ScanZonal; default full-page
}

// Engine shells out to tesseract for text and zbarimg for QR payloads.
type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Zbarimg == "" {
		cfg.Zbarimg = "zbarimg"
	}
	if cfg.Language == "" {
		cfg.Language = "spa"
	}
	if cfg.ScanStrategy == "" {
		cfg.ScanStrategy = ScanFullPage
	}
	return &Engine{cfg: cfg, runner: execRunner{}, logger: logger}
}

// WithRunner swaps the exec runner; used by tests.
func (e *Engine) WithRunner(r Runner) *Engine {
	e.runner = r
	return e
}

func (e *Engine) Recognize(ctx context.Context, path string) (string, string, error) {
	txt, err := e.tesseractOCR(ctx, path)
	if err != nil {
		return "", "", err
	}
	payload := e.scanBarcode(ctx, path)
	return Normalize(txt), payload, nil
}

func (e *Engine) tesseractOCR(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", e.cfg.Language}
	switch e.cfg.ScanStrategy {
	case ScanZonal:
		args = append(args, "--psm", "7")
	default:
		args = append(args, "--psm", "3")
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang> --psm <n>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

// scanBarcode runs zbarimg and returns the first QR payload, or "" when the
// image carries no decodable code. zbarimg exits 4 on "no symbols found";
// that and a missing binary are both treated as no-payload.
func (e *Engine) scanBarcode(ctx context.Context, path string) string {
	out, _, err := e.runner.Run(ctx, e.cfg.Zbarimg, e.logger, "--raw", "-q", "-Sdisable", "-Sqrcode.enable", path)
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			e.logger.Warn("barcode scanner unavailable", "cmd", e.cfg.Zbarimg, "error", err)
		}
		return ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}
