package extract

import (
	"testing"
	"time"

	"github.com/faaalmv/saf-gda/constants"
)

func TestOKResultShape(t *testing.T) {
	fields := ExtractFields("Total: 250.00", "")
	r := OKResult("job-1", 3, 1234500*time.Microsecond, fields)

	if r.Status != constants.StatusOK {
		t.Errorf("status: got %s, want OK", r.Status)
	}
	if r.ErrorMessage != nil {
		t.Errorf("error_message: got %q, want nil on OK", *r.ErrorMessage)
	}
	if r.WorkerID != 3 {
		t.Errorf("worker_id: got %d, want 3", r.WorkerID)
	}
	if r.ElapsedSeconds != 1.234 && r.ElapsedSeconds != 1.235 {
		t.Errorf("elapsed_seconds: got %v, want millisecond precision around 1.234", r.ElapsedSeconds)
	}
	if r.Fields.Total == nil {
		t.Error("fields must carry the extraction on OK")
	}
}

func TestFailureResultsCarryNoFields(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		status constants.ResultStatus
		worker int
	}{
		{"fail", FailResult("j", 2, 500*time.Millisecond, "decode image: bad bytes"), constants.StatusFail, 2},
		{"timeout", TimeoutResult("j", 30*time.Second), constants.StatusTimeout, 0},
		{"infra", InfraErrorResult("j", "worker panic: boom"), constants.StatusInfraError, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := test.result
			if r.Status != test.status {
				t.Errorf("status: got %s, want %s", r.Status, test.status)
			}
			if r.WorkerID != test.worker {
				t.Errorf("worker_id: got %d, want %d", r.WorkerID, test.worker)
			}
			if r.ErrorMessage == nil || *r.ErrorMessage == "" {
				t.Error("non-OK results must carry an error message")
			}
			f := r.Fields
			if f.Folio != nil || f.Total != nil || f.PurchaseOrder != nil ||
				f.IssuerID != nil || f.IssueDate != nil || f.QRPayload != nil {
				t.Error("non-OK results must carry all-nil fields")
			}
			if r.ElapsedSeconds < 0 {
				t.Errorf("elapsed_seconds: got %v, want >= 0", r.ElapsedSeconds)
			}
		})
	}
}

func TestTimeoutMessage(t *testing.T) {
	r := TimeoutResult("j", time.Second)
	if r.ErrorMessage == nil || *r.ErrorMessage != "deadline exceeded" {
		t.Errorf("timeout message: got %v, want \"deadline exceeded\"", r.ErrorMessage)
	}
}

func TestNegativeElapsedClamped(t *testing.T) {
	r := FailResult("j", 1, -time.Second, "x")
	if r.ElapsedSeconds != 0 {
		t.Errorf("elapsed_seconds: got %v, want 0", r.ElapsedSeconds)
	}
}
