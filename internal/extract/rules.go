package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Extraction rules for Mexican fiscal documents. Each rule is an independent
// pure function over the transcript; a miss leaves its field nil and never
// blocks the other rules.
var (
	reFolio = regexp.MustCompile(`(?i)[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`)

	// id=<uuid> fragment inside a CFDI verification QR payload
	reQRFolio = regexp.MustCompile(`(?i)\bid=([a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12})`)

	reIssuer = regexp.MustCompile(`[A-ZÑ&]{3,4}\d{6}[A-Z0-9]{3}`)

	rePurchaseOrder = regexp.MustCompile(`(?i)(?:OC|ORDEN\s+DE\s+COMPRA|PEDIDO|N°\s+DE\s+ORDEN)[^\d]*(\d{2}[/.-]\d+)`)

	reIssueDate = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}|\d{2}/\d{2}/\d{4})`)

	reTotal = regexp.MustCompile(`(?i)(?:Gran\s+Total|Total|Neto|Pagar|Importe)[^0-9\n]*\$?\s*(\d{1,3}(?:,\d{3})*\.\d{2})`)
)

// ExtractFields applies the full rule set over a transcript and an optional
// barcode payload.
func ExtractFields(transcript, barcodePayload string) Fields {
	var f Fields

	f.Folio, f.FolioFromQR = MatchFolio(transcript, barcodePayload)
	f.Total = MatchTotal(transcript)
	f.PurchaseOrder = MatchPurchaseOrder(transcript)
	f.IssueDate = MatchIssueDate(transcript)
	f.IssuerID = MatchIssuerID(transcript)
	if barcodePayload != "" {
		f.QRPayload = strptr(barcodePayload)
	}
	return f
}

// MatchFolio finds the fiscal UUID in the transcript, uppercased. When the
// transcript has none but the barcode payload carries an id=<uuid> fragment,
// that UUID is used instead and the QR provenance flag is set.
func MatchFolio(transcript, barcodePayload string) (*string, bool) {
	if m := reFolio.FindString(transcript); m != "" {
		return strptr(strings.ToUpper(m)), false
	}
	if barcodePayload != "" {
		if m := reQRFolio.FindStringSubmatch(barcodePayload); m != nil {
			return strptr(strings.ToUpper(m[1])), true
		}
	}
	return nil, false
}

// MatchTotal selects the last labeled amount in the transcript (invoices
// list itemized amounts before the grand total) and normalizes it to a
// two-decimal figure without thousands separators.
func MatchTotal(transcript string) *string {
	matches := reTotal.FindAllStringSubmatch(transcript, -1)
	if len(matches) == 0 {
		return nil
	}
	raw := strings.ReplaceAll(matches[len(matches)-1][1], ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return strptr(strconv.FormatFloat(v, 'f', 2, 64))
}

// MatchPurchaseOrder captures the numeric suffix after a purchase-order label.
func MatchPurchaseOrder(transcript string) *string {
	if m := rePurchaseOrder.FindStringSubmatch(transcript); m != nil {
		return strptr(m[1])
	}
	return nil
}

// MatchIssueDate returns the first ISO (YYYY-MM-DD) or Mexican (DD/MM/YYYY)
// date shape.
func MatchIssueDate(transcript string) *string {
	if m := reIssueDate.FindString(transcript); m != "" {
		return strptr(m)
	}
	return nil
}

// MatchIssuerID returns the first RFC-shaped taxpayer identifier.
func MatchIssuerID(transcript string) *string {
	if m := reIssuer.FindString(transcript); m != "" {
		return strptr(m)
	}
	return nil
}
