package infra

// pdf.go renders the summary sheet attached to every requirement of a
// mass-created group: header with creator and date, then one row per
// requirement (title, description, area, estimated amount) and a total.

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// GroupSummaryItem is one row of the summary table.
type GroupSummaryItem struct {
	Title       string
	Description string
	Area        string
	Amount      decimal.Decimal
}

// GroupSummary is the data rendered for a requirement group.
type GroupSummary struct {
	GroupID      string
	CreatorName  string
	CreatorEmail string
	CreatedAt    time.Time
	Items        []GroupSummaryItem
}

// PDFRenderer builds group summaries and stores them through LocalStorage.
type PDFRenderer struct {
	storage *LocalStorage
}

func NewPDFRenderer(storage *LocalStorage) *PDFRenderer {
	return &PDFRenderer{storage: storage}
}

// RenderGroupSummary writes the PDF and returns where it was stored.
func (r *PDFRenderer) RenderGroupSummary(ctx context.Context, s GroupSummary) (StoredFile, error) {
	buf, err := BuildGroupSummaryPDF(s)
	if err != nil {
		return StoredFile{}, err
	}
	name := fmt.Sprintf("solicitud_grupal_%s.pdf", shortID(s.GroupID))
	return r.storage.Save(ctx, name, buf)
}

// BuildGroupSummaryPDF renders s into memory.
func BuildGroupSummaryPDF(s GroupSummary) (*bytes.Buffer, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 15)
	pdf.CellFormat(contentW, 8, tr("Solicitud de Requerimientos"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, tr("MisCompras - Resumen de solicitud grupal"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(30, 5, "Solicitante:", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW-30, 5, tr(fmt.Sprintf("%s <%s>", s.CreatorName, s.CreatorEmail)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(30, 5, "Fecha:", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW-30, 5, s.CreatedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(30, 5, "Grupo:", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW-30, 5, s.GroupID, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// ── Items ────────────────────────────────────────────────────────────────
	colN := 8.0
	colTitle := contentW * 0.28
	colArea := contentW * 0.18
	colAmount := contentW * 0.18
	colDesc := contentW - colN - colTitle - colArea - colAmount

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(colN, 6, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colTitle, 6, tr("Título"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(colDesc, 6, tr("Descripción"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(colArea, 6, tr("Área"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(colAmount, 6, "Valor estimado", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	total := decimal.Zero
	for i, it := range s.Items {
		pdf.CellFormat(colN, 6, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colTitle, 6, tr(truncate(it.Title, 40)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colDesc, 6, tr(truncate(it.Description, 45)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colArea, 6, tr(truncate(it.Area, 24)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colAmount, 6, "$ "+it.Amount.StringFixed(2), "1", 1, "R", false, 0, "")
		total = total.Add(it.Amount)
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW-colAmount, 7, "TOTAL", "1", 0, "R", false, 0, "")
	pdf.CellFormat(colAmount, 7, "$ "+total.StringFixed(2), "1", 1, "R", false, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, tr("Documento generado automáticamente. Requiere aprobación de coordinación y dirección."), "", 1, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("pdf: render group summary: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: output: %w", err)
	}
	return &buf, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
