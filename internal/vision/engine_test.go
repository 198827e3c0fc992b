package vision

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// stubRunner replays canned stdout per binary and records invocations.
type stubRunner struct {
	stdout map[string]string
	errs   map[string]error
	calls  map[string][]string
}

func newStubRunner() *stubRunner {
	return &stubRunner{
		stdout: make(map[string]string),
		errs:   make(map[string]error),
		calls:  make(map[string][]string),
	}
}

func (s *stubRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	s.calls[name] = args
	if err := s.errs[name]; err != nil {
		return nil, []byte("stub failure"), err
	}
	return []byte(s.stdout[name]), nil, nil
}

func testEngine(cfg Config, r Runner) *Engine {
	return NewEngine(cfg, slog.Default()).WithRunner(r)
}

func TestRecognizeNormalizesTranscript(t *testing.T) {
	r := newStubRunner()
	r.stdout["tesseract"] = "FACTURA\t\tGDA\r\n\r\n\r\n\r\nTotal:   1,200.00\n"

	e := testEngine(Config{}, r)
	transcript, payload, err := e.Recognize(context.Background(), "doc.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "FACTURA GDA\n\nTotal: 1,200.00"
	if transcript != want {
		t.Errorf("transcript: got %q, want %q", transcript, want)
	}
	if payload != "" {
		t.Errorf("payload: got %q, want empty", payload)
	}
}

func TestRecognizeReturnsBarcodePayload(t *testing.T) {
	r := newStubRunner()
	r.stdout["tesseract"] = "texto"
	r.stdout["zbarimg"] = "\nhttps://verificacfdi?id=3fa85f64-5717-4562-b3fc-2c963f66afa6\n"

	e := testEngine(Config{}, r)
	_, payload, err := e.Recognize(context.Background(), "doc.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(payload, "id=3fa85f64") {
		t.Errorf("payload: got %q, want QR content", payload)
	}
}

func TestRecognizeBarcodeFailureIsNotFatal(t *testing.T) {
	r := newStubRunner()
	r.stdout["tesseract"] = "texto"
	r.errs["zbarimg"] = errors.New("exit status 4") // no symbols found

	e := testEngine(Config{}, r)
	transcript, payload, err := e.Recognize(context.Background(), "doc.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transcript != "texto" || payload != "" {
		t.Errorf("got (%q, %q), want (texto, empty)", transcript, payload)
	}
}

func TestRecognizeTesseractFailureIsFatal(t *testing.T) {
	r := newStubRunner()
	r.errs["tesseract"] = errors.New("exit status 1")

	e := testEngine(Config{}, r)
	if _, _, err := e.Recognize(context.Background(), "doc.png"); err == nil {
		t.Fatal("expected error when tesseract fails")
	}
}

func TestScanStrategySelectsPageSegMode(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		wantPSM  string
	}{
		{"full page default", "", "3"},
		{"full page explicit", ScanFullPage, "3"},
		{"zonal", ScanZonal, "7"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := newStubRunner()
			e := testEngine(Config{ScanStrategy: test.strategy}, r)
			if _, _, err := e.Recognize(context.Background(), "doc.png"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			args := r.calls["tesseract"]
			found := false
			for i, a := range args {
				if a == "--psm" && i+1 < len(args) && args[i+1] == test.wantPSM {
					found = true
				}
			}
			if !found {
				t.Errorf("tesseract args %v missing --psm %s", args, test.wantPSM)
			}
		})
	}
}
