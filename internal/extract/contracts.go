package extract

import (
	"math"
	"time"

	"github.com/faaalmv/saf-gda/constants"
)

// Fields is the structured record pulled from one document. Absent values
// are nil, never missing keys in the serialized form.
type Fields struct {
	Folio         *string `json:"folio"`
	FolioFromQR   bool    `json:"folio_from_qr"` // provenance: folio recovered from the QR payload
	Total         *string `json:"total"`
	PurchaseOrder *string `json:"purchase_order"`
	IssuerID      *string `json:"issuer_id"`
	IssueDate     *string `json:"issue_date"`
	QRPayload     *string `json:"qr_payload"`
}

// Result is the uniform outcome record for one job. Build one only through
// the constructors below: OK results carry fields and no error message,
// every other status carries a message and all-nil fields.
type Result struct {
	Status         constants.ResultStatus `json:"status"`
	JobID          string                 `json:"job_id"`
	WorkerID       int                    `json:"worker_id"` // 0 if no worker ran
	ElapsedSeconds float64                `json:"elapsed_seconds"`
	ErrorMessage   *string                `json:"error_message"`
	Fields         Fields                 `json:"fields"`
}

// OKResult builds a successful result.
func OKResult(jobID string, workerID int, elapsed time.Duration, fields Fields) Result {
	return Result{
		Status:         constants.StatusOK,
		JobID:          jobID,
		WorkerID:       workerID,
		ElapsedSeconds: roundElapsed(elapsed),
		Fields:         fields,
	}
}

// FailResult builds a business-level failure: bad image, missing file,
// engine error. Fields stay nil.
func FailResult(jobID string, workerID int, elapsed time.Duration, message string) Result {
	return Result{
		Status:         constants.StatusFail,
		JobID:          jobID,
		WorkerID:       workerID,
		ElapsedSeconds: roundElapsed(elapsed),
		ErrorMessage:   strptr(message),
	}
}

// TimeoutResult marks a job whose per-job deadline elapsed before a worker
// produced a result.
func TimeoutResult(jobID string, elapsed time.Duration) Result {
	return Result{
		Status:         constants.StatusTimeout,
		JobID:          jobID,
		WorkerID:       0,
		ElapsedSeconds: roundElapsed(elapsed),
		ErrorMessage:   strptr("deadline exceeded"),
	}
}

// InfraErrorResult marks a pool or worker failure unrelated to the document.
func InfraErrorResult(jobID string, message string) Result {
	return Result{
		Status:         constants.StatusInfraError,
		JobID:          jobID,
		WorkerID:       0,
		ElapsedSeconds: 0,
		ErrorMessage:   strptr(message),
	}
}

// roundElapsed fixes elapsed wall-clock spans at millisecond precision.
func roundElapsed(d time.Duration) float64 {
	if d < 0 {
		d = 0
	}
	return math.Round(d.Seconds()*1000) / 1000
}

func strptr(s string) *string { return &s }
