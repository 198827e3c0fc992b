package repository

import (
	"testing"
	"time"

	"github.com/faaalmv/saf-gda/internal/extract"
)

func sp(s string) *string { return &s }

func TestEntryHashDeterministic(t *testing.T) {
	div := int64(3)
	amount := 1200.50
	e := Entry{Division: &div, Provider: sp("GDA850101AB1"), InvoiceFolio: sp("F-001"), Amount: &amount}

	h1, h2 := e.Hash(), e.Hash()
	if h1 != h2 {
		t.Errorf("hash not deterministic: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("hash length: got %d, want 64 hex chars", len(h1))
	}

	changed := e
	changed.InvoiceFolio = sp("F-002")
	if changed.Hash() == h1 {
		t.Error("different rows must not collide on the obvious case")
	}
}

func TestEntryHashTreatsNullAsEmpty(t *testing.T) {
	withNil := Entry{InvoiceFolio: sp("F-001")}
	withEmpty := Entry{InvoiceFolio: sp("F-001"), Provider: sp("")}

	if withNil.Hash() != withEmpty.Hash() {
		t.Error("NULL and empty string must canonicalize identically")
	}
}

func TestEntryFromResult(t *testing.T) {
	r := extract.OKResult("j", 1, time.Second, extract.Fields{
		Folio:         sp("3FA85F64-5717-4562-B3FC-2C963F66AFA6"),
		Total:         sp("1200.00"),
		PurchaseOrder: sp("24/1234"),
		IssuerID:      sp("GDA850101AB1"),
		IssueDate:     sp("2024-06-01"),
	})

	e := EntryFromResult(r)
	if e.InvoiceFolio == nil || *e.InvoiceFolio != "3FA85F64-5717-4562-B3FC-2C963F66AFA6" {
		t.Errorf("folio_factura: got %v", e.InvoiceFolio)
	}
	if e.Provider == nil || *e.Provider != "GDA850101AB1" {
		t.Errorf("provedor: got %v", e.Provider)
	}
	if e.EntryDate == nil || *e.EntryDate != "2024-06-01" {
		t.Errorf("fecha_entrada: got %v", e.EntryDate)
	}
	if e.PurchaseOrder == nil || *e.PurchaseOrder != 1234 {
		t.Errorf("orden_compra: got %v, want 1234", e.PurchaseOrder)
	}
	if e.Amount == nil || *e.Amount != 1200.0 {
		t.Errorf("importe: got %v, want 1200", e.Amount)
	}
	// Line-item columns stay NULL until reconciliation.
	if e.ArticleCode != nil || e.Quantity != nil || e.UnitPrice != nil {
		t.Error("line-item columns must stay NULL")
	}
}

func TestEntryFromResultSkipsUnparseableValues(t *testing.T) {
	r := extract.OKResult("j", 1, time.Second, extract.Fields{
		PurchaseOrder: sp("sin numero"),
		Total:         sp("no-un-total"),
	})

	e := EntryFromResult(r)
	if e.PurchaseOrder != nil {
		t.Errorf("orden_compra: got %v, want nil", e.PurchaseOrder)
	}
	if e.Amount != nil {
		t.Errorf("importe: got %v, want nil", e.Amount)
	}
}

func TestEntryFromResultEmptyFields(t *testing.T) {
	e := EntryFromResult(extract.OKResult("j", 1, time.Second, extract.Fields{}))
	if e != (Entry{}) {
		t.Errorf("got %+v, want zero entry", e)
	}
}
