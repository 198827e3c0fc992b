package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/faaalmv/saf-gda/internal/extract"
)

const entriesTable = "tbl_entradas_raw"

// entryColumns is the fixed ingestion column order. The row hash is computed
// over exactly these columns in this order; do not reorder.
var entryColumns = []string{
	"div", "provedor", "orden_compra", "mov", "fecha_entrada",
	"folio_factura", "codigo_articulo", "articulo", "cantidad",
	"precio_unitario", "importe", "fondeo", "folio_rb",
}

// Entry is one row of the ingestion contract. Nil means NULL.
type Entry struct {
	Division      *int64
	Provider      *string
	PurchaseOrder *int64
	Movement      *int64
	EntryDate     *string
	InvoiceFolio  *string
	ArticleCode   *string
	Article       *string
	Quantity      *float64
	UnitPrice     *float64
	Amount        *float64
	Funding       *string
	RebateFolio   *string
}

// canonicalValues renders the columns in fixed order, NULL as empty string.
func (e Entry) canonicalValues() []string {
	return []string{
		intStr(e.Division),
		str(e.Provider),
		intStr(e.PurchaseOrder),
		intStr(e.Movement),
		str(e.EntryDate),
		str(e.InvoiceFolio),
		str(e.ArticleCode),
		str(e.Article),
		floatStr(e.Quantity),
		floatStr(e.UnitPrice),
		floatStr(e.Amount),
		str(e.Funding),
		str(e.RebateFolio),
	}
}

// Hash is the dedup/audit key: SHA-256 over the canonical concatenation of
// all column values.
func (e Entry) Hash() string {
	sum := sha256.Sum256([]byte(strings.Join(e.canonicalValues(), "")))
	return hex.EncodeToString(sum[:])
}

// EntryFromResult maps an OK extraction result onto the ingestion contract.
// Only the OCR-derived columns are populated; line-item columns stay NULL
// until reconciliation joins them in.
func EntryFromResult(r extract.Result) Entry {
	var e Entry
	e.InvoiceFolio = r.Fields.Folio
	e.Provider = r.Fields.IssuerID
	e.EntryDate = r.Fields.IssueDate
	if r.Fields.PurchaseOrder != nil {
		// numeric suffix after the NN separator, e.g. "24/1234" -> 1234
		parts := strings.FieldsFunc(*r.Fields.PurchaseOrder, func(c rune) bool {
			return c == '/' || c == '.' || c == '-'
		})
		if len(parts) == 2 {
			if v, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
				e.PurchaseOrder = &v
			}
		}
	}
	if r.Fields.Total != nil {
		if v, err := strconv.ParseFloat(*r.Fields.Total, 64); err == nil {
			e.Amount = &v
		}
	}
	return e
}

// EntryRepository bulk-loads ingestion rows.
type EntryRepository interface {
	BulkCopy(ctx context.Context, entries []Entry) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type entryRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewEntryRepository(pool *pgxpool.Pool, log *slog.Logger) EntryRepository {
	if log == nil {
		log = slog.Default()
	}
	return &entryRepo{pool: pool, log: log}
}

// BulkCopy loads all entries transactionally via COPY: all rows commit or
// none do. Each row carries its registro_hash.
func (r *entryRepo) BulkCopy(ctx context.Context, entries []Entry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			r.log.Error("rollback failed", "error", rbErr)
		}
	}()

	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{
			e.Division, e.Provider, e.PurchaseOrder, e.Movement, e.EntryDate,
			e.InvoiceFolio, e.ArticleCode, e.Article, e.Quantity,
			e.UnitPrice, e.Amount, e.Funding, e.RebateFolio,
			e.Hash(),
		})
	}

	cols := append(append([]string{}, entryColumns...), "registro_hash")
	r.log.Info("starting bulk copy", "table", entriesTable, "rows", len(rows))
	n, err := tx.CopyFrom(ctx, pgx.Identifier{entriesTable}, cols, pgx.CopyFromRows(rows))
	if err != nil {
		r.log.Error("bulk copy failed", "table", entriesTable, "error", err)
		return 0, fmt.Errorf("copy %s: %w", entriesTable, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	r.log.Info("bulk copy committed", "table", entriesTable, "rows", n)
	return n, nil
}

func (r *entryRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM "+entriesTable).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", entriesTable, err)
	}
	return n, nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func intStr(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}

func floatStr(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
