package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/faaalmv/saf-gda/internal/common"
	"github.com/faaalmv/saf-gda/internal/repository"
)

// csvColumns is the header the input file must carry, in any order.
var csvColumns = []string{
	"div", "provedor", "orden_compra", "mov", "fecha_entrada",
	"folio_factura", "codigo_articulo", "articulo", "cantidad",
	"precio_unitario", "importe", "fondeo", "folio_rb",
}

func main() {
	var (
		file = flag.String("file", "Datos_Entradas.csv", "input CSV file")
	)
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if cfg.Database.DSN == "" {
		logger.Error("SAF_DB_URL is required")
		os.Exit(1)
	}

	entries, dropped, err := loadEntries(*file)
	if err != nil {
		logger.Error("load failed", "file", *file, "error", err)
		os.Exit(1)
	}
	if dropped > 0 {
		logger.Warn("duplicate rows dropped", "count", dropped)
	}
	logger.Info("transformation ready", "rows", len(entries))
	if len(entries) == 0 {
		return
	}

	ctx := context.Background()
	pool, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	n, err := repository.NewEntryRepository(pool, logger).BulkCopy(ctx, entries)
	if err != nil {
		logger.Error("bulk load failed", "error", err)
		os.Exit(1)
	}
	logger.Info("transaction committed", "rows", n)
}

// loadEntries reads the CSV, maps its columns, coerces types and drops exact
// duplicates (first occurrence wins, keyed by row hash).
func loadEntries(path string) ([]repository.Entry, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, col := range csvColumns {
		if _, ok := idx[col]; !ok {
			return nil, 0, fmt.Errorf("missing column %q", col)
		}
	}

	var entries []repository.Entry
	seen := make(map[string]struct{})
	dropped := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read row: %w", err)
		}

		cell := func(col string) string {
			return strings.TrimSpace(rec[idx[col]])
		}
		e := repository.Entry{
			Division:      parseInt(cell("div")),
			Provider:      parseStr(cell("provedor")),
			PurchaseOrder: parseInt(cell("orden_compra")),
			Movement:      parseInt(cell("mov")),
			EntryDate:     parseStr(cell("fecha_entrada")),
			InvoiceFolio:  parseStr(cell("folio_factura")),
			ArticleCode:   parseStr(cell("codigo_articulo")),
			Article:       parseStr(cell("articulo")),
			Quantity:      parseFloat(cell("cantidad")),
			UnitPrice:     parseFloat(cell("precio_unitario")),
			Amount:        parseFloat(cell("importe")),
			Funding:       parseStr(cell("fondeo")),
			RebateFolio:   parseStr(cell("folio_rb")),
		}

		h := e.Hash()
		if _, dup := seen[h]; dup {
			dropped++
			continue
		}
		seen[h] = struct{}{}
		entries = append(entries, e)
	}
	return entries, dropped, nil
}

func parseStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseInt coerces numeric text to an integer; "3269.0" becomes 3269 and
// anything unparseable becomes NULL.
func parseInt(s string) *int64 {
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		v := int64(f)
		return &v
	}
	return nil
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return &v
	}
	return nil
}
