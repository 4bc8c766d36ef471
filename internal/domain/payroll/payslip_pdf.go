package payroll

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// Encrypter seals archived payslips at rest.
type Encrypter interface {
	Configured() bool
	Encrypt(plaintext []byte) ([]byte, error)
}

// RenderPayslipPDF lays out a payslip snapshot as an A4 PDF.
func RenderPayslipPDF(slip PayslipSnapshot) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Payslip %s %s", slip.EmployeeID, slip.Period), true)
	pdf.AddPage()

	if slip.Provisional {
		pdf.SetFillColor(255, 236, 179)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 10, "PROVISIONAL - not yet marked as paid", "1", 1, "C", true, 0, "")
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	name := slip.EmployeeName
	if name == "" {
		name = slip.EmployeeID
	}
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", name))
	pdf.Ln(7)
	if slip.PaymentType != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Payment type: %s", slip.PaymentType))
		pdf.Ln(7)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s to %s", slip.Period.Start().Format(dateLayout), slip.Period.End().Format(dateLayout)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", slip.Status))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Attendance")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	attendance := [][2]string{
		{"Present days", fmt.Sprintf("%d of %d", slip.PresentDays, slip.TotalDays)},
		{"Hours worked", slip.TotalHours.String()},
		{"Overtime hours", slip.OvertimeHours.String()},
		{"Undertime hours", slip.UndertimeHours.String()},
	}
	for _, row := range attendance {
		pdf.CellFormat(80, 7, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, row[1], "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Amounts")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	amounts := []struct {
		label string
		value decimal.Decimal
	}{
		{"Gross", slip.GrossAmount},
		{"Advances deducted", slip.AdvanceDeducted},
		{"Already paid", slip.OtherDeductions},
	}
	for _, row := range amounts {
		pdf.CellFormat(80, 7, row.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, row.value.StringFixedBank(moneyPlaces), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(80, 8, fmt.Sprintf("Net (%s)", slip.NetState), "T", 0, "L", false, 0, "")
	pdf.CellFormat(60, 8, slip.NetAmount.StringFixedBank(moneyPlaces), "T", 1, "R", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s", slip.GeneratedAt.Format("2006-01-02 15:04 MST")))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ArchivePayslipPDF writes the rendered slip under dir, sealed with enc when
// it is configured, and returns the file path.
func ArchivePayslipPDF(dir string, enc Encrypter, slip PayslipSnapshot, data []byte) (string, error) {
	target := filepath.Join(dir, slip.TenantID)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", err
	}

	filePath := filepath.Join(target, slip.RecordID+".pdf")
	if enc != nil && enc.Configured() {
		sealed, err := enc.Encrypt(data)
		if err != nil {
			return "", err
		}
		filePath += ".enc"
		if err := os.WriteFile(filePath, sealed, 0o600); err != nil {
			return "", err
		}
		return filePath, nil
	}

	if err := os.WriteFile(filePath, data, 0o600); err != nil {
		return "", err
	}
	return filePath, nil
}
