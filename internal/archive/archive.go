package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/faaalmv/saf-gda/constants"
	"github.com/faaalmv/saf-gda/internal/extract"
	"github.com/faaalmv/saf-gda/internal/orchestrator"
)

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	batch_id        TEXT PRIMARY KEY,
	started_at      TEXT NOT NULL,
	ok_count        INTEGER NOT NULL,
	fail_count      INTEGER NOT NULL,
	total_elapsed   REAL NOT NULL,
	average_latency REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	batch_id        TEXT NOT NULL,
	job_id          TEXT NOT NULL,
	status          TEXT NOT NULL,
	worker_id       INTEGER NOT NULL,
	elapsed_seconds REAL NOT NULL,
	error_message   TEXT,
	folio           TEXT,
	folio_from_qr   INTEGER NOT NULL DEFAULT 0,
	total           TEXT,
	purchase_order  TEXT,
	issuer_id       TEXT,
	issue_date      TEXT,
	qr_payload      TEXT,
	PRIMARY KEY (batch_id, job_id)
);
CREATE INDEX IF NOT EXISTS idx_results_status ON results (status);
`

// Store is the local audit trail: every batch and every result, queryable
// by the dashboard. SQLite keeps it dependency-free on the host.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init archive schema: %w", err)
	}
	logger.Info("archive opened", "path", path)
	return &Store{db: db, log: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBatch records a batch and its results atomically.
func (s *Store) SaveBatch(ctx context.Context, b orchestrator.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.log.Error("archive rollback failed", "error", rbErr)
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO batches (batch_id, started_at, ok_count, fail_count, total_elapsed, average_latency)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		b.Metrics.OKCount, b.Metrics.FailCount, b.Metrics.TotalElapsed, b.Metrics.AverageLatency,
	); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (batch_id, job_id, status, worker_id, elapsed_seconds, error_message,
		                      folio, folio_from_qr, total, purchase_order, issuer_id, issue_date, qr_payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare results: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range b.Results {
		if _, err := stmt.ExecContext(ctx,
			b.ID, r.JobID, string(r.Status), r.WorkerID, r.ElapsedSeconds, r.ErrorMessage,
			r.Fields.Folio, boolInt(r.Fields.FolioFromQR), r.Fields.Total, r.Fields.PurchaseOrder,
			r.Fields.IssuerID, r.Fields.IssueDate, r.Fields.QRPayload,
		); err != nil {
			return fmt.Errorf("insert result %s: %w", r.JobID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.Info("batch archived", "batch_id", b.ID, "results", len(b.Results))
	return nil
}

// LatestMetrics returns the metrics of the most recent batch, or false when
// the archive is empty.
func (s *Store) LatestMetrics(ctx context.Context) (orchestrator.Metrics, bool, error) {
	var m orchestrator.Metrics
	row := s.db.QueryRowContext(ctx,
		`SELECT ok_count, fail_count, total_elapsed, average_latency
		 FROM batches ORDER BY started_at DESC LIMIT 1`)
	if err := row.Scan(&m.OKCount, &m.FailCount, &m.TotalElapsed, &m.AverageLatency); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m, false, nil
		}
		return m, false, fmt.Errorf("latest metrics: %w", err)
	}
	return m, true, nil
}

// RecentResults returns up to limit results, newest batches first.
func (s *Store) RecentResults(ctx context.Context, limit int) ([]extract.Result, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.job_id, r.status, r.worker_id, r.elapsed_seconds, r.error_message,
		        r.folio, r.folio_from_qr, r.total, r.purchase_order, r.issuer_id, r.issue_date, r.qr_payload
		 FROM results r JOIN batches b ON b.batch_id = r.batch_id
		 ORDER BY b.started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []extract.Result
	for rows.Next() {
		var r extract.Result
		var status string
		var fromQR int
		if err := rows.Scan(&r.JobID, &status, &r.WorkerID, &r.ElapsedSeconds, &r.ErrorMessage,
			&r.Fields.Folio, &fromQR, &r.Fields.Total, &r.Fields.PurchaseOrder,
			&r.Fields.IssuerID, &r.Fields.IssueDate, &r.Fields.QRPayload); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Status = statusFromString(status)
		r.Fields.FolioFromQR = fromQR != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func statusFromString(s string) constants.ResultStatus {
	switch constants.ResultStatus(s) {
	case constants.StatusOK, constants.StatusFail, constants.StatusTimeout, constants.StatusInfraError:
		return constants.ResultStatus(s)
	default:
		return constants.StatusInfraError
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
