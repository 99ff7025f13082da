package invoice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/alimikegami/marketplace/payment-service/internal/domain"
	"github.com/alimikegami/marketplace/payment-service/pkg/utils"
	"github.com/go-pdf/fpdf"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

type PDFRenderer struct {
	dir string
}

func CreatePDFRenderer(dir string) *PDFRenderer {
	return &PDFRenderer{dir: dir}
}

// FileName is the on-disk name of a transaction's invoice.
func FileName(transactionCode string) string {
	return "invoice-" + unsafeChars.ReplaceAllString(transactionCode, "_") + ".pdf"
}

// Render writes the invoice PDF and returns its path. Rendering the same
// transaction again overwrites the same file.
func (r *PDFRenderer) Render(ctx context.Context, snapshot domain.InvoiceSnapshot) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create invoice dir: %w", err)
	}

	pdf := r.build(snapshot)

	path := filepath.Join(r.dir, FileName(snapshot.TransactionCode))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write invoice: %w", err)
	}

	return path, nil
}

func (r *PDFRenderer) build(snapshot domain.InvoiceSnapshot) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	// core fonts are cp1252; names and product titles arrive as UTF-8
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Invoice "+snapshot.TransactionCode, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "INVOICE", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "No. Transaksi: "+snapshot.TransactionCode, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Pelanggan: "+tr(snapshot.CustomerName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Telepon: "+snapshot.CustomerPhone, "", 1, "L", false, 0, "")
	if snapshot.CustomerEmail != "" {
		pdf.CellFormat(0, 6, "Email: "+tr(snapshot.CustomerEmail), "", 1, "L", false, 0, "")
	}
	if snapshot.PaidAt != 0 {
		pdf.CellFormat(0, 6, "Dibayar: "+utils.ConvertDateTimeToHumanReadableFormat(snapshot.PaidAt), "", 1, "L", false, 0, "")
	}
	if snapshot.PaymentMethod != "" {
		pdf.CellFormat(0, 6, "Metode: "+tr(snapshot.PaymentMethod), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, "Status: "+string(snapshot.PaymentStatus), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(90, 8, "Produk", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 8, "Harga", "1", 0, "R", true, 0, "")
	pdf.CellFormat(40, 8, "Subtotal", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	for _, line := range snapshot.Lines {
		pdf.CellFormat(90, 8, tr(line.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, strconv.FormatInt(line.Quantity, 10), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 8, utils.FormatRupiah(line.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 8, utils.FormatRupiah(line.Subtotal), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(150, 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, utils.FormatRupiah(snapshot.Total), "1", 1, "R", false, 0, "")

	return pdf
}
