package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
	"github.com/xuri/excelize/v2"
)

// Row is one report line, independent of whether it came from the live
// ledger or a snapshot payload.
type Row struct {
	ProductCode        string
	ProductDescription string
	Quantity           int
	Checked            bool
	CreatedBy          string
	CheckedBy          string
	InsertedAt         time.Time
}

// DayReport is everything an export needs about one session date.
type DayReport struct {
	SessionDate   time.Time
	Finalized     bool
	FinalizedBy   string
	FinalizedAt   *time.Time
	TotalItems    int
	TotalQuantity int
	Rows          []Row
}

func (r DayReport) title() string {
	return "Production " + r.SessionDate.Format("2006-01-02")
}

var exportHeader = []string{"Product Code", "Description", "Quantity", "Checked", "Checked By", "Created By", "Inserted At"}

func (row Row) cells() []string {
	checked := "no"
	if row.Checked {
		checked = "yes"
	}
	inserted := ""
	if !row.InsertedAt.IsZero() {
		inserted = row.InsertedAt.Format("2006-01-02 15:04:05")
	}
	return []string{
		row.ProductCode,
		row.ProductDescription,
		strconv.Itoa(row.Quantity),
		checked,
		row.CheckedBy,
		row.CreatedBy,
		inserted,
	}
}

// BuildCSV renders a day report as CSV.
func BuildCSV(rep DayReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, row := range rep.Rows {
		if err := w.Write(row.cells()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildXLSX renders a day report as an Excel workbook.
func BuildXLSX(rep DayReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Report"
	f.SetSheetName("Sheet1", sheet)

	if err := f.SetCellValue(sheet, "A1", rep.title()); err != nil {
		return nil, err
	}
	status := "open"
	if rep.Finalized {
		status = "finalized by " + rep.FinalizedBy
		if rep.FinalizedAt != nil {
			status += " at " + rep.FinalizedAt.Format("2006-01-02 15:04")
		}
	}
	f.SetCellValue(sheet, "A2", "Status: "+status)
	f.SetCellValue(sheet, "A3", fmt.Sprintf("Items: %d   Total quantity: %d", rep.TotalItems, rep.TotalQuantity))

	headerRow := 5
	for i, h := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return nil, err
		}
		f.SetCellValue(sheet, cell, h)
	}

	for rowIdx, row := range rep.Rows {
		for colIdx, v := range row.cells() {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, headerRow+1+rowIdx)
			if err != nil {
				return nil, err
			}
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildPDF renders a printable day report. reportURL, when set, is embedded
// as a QR code so the paper copy links back to the live report.
func BuildPDF(rep DayReport, reportURL string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, rep.title(), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	if rep.Finalized {
		line := "Finalized by " + rep.FinalizedBy
		if rep.FinalizedAt != nil {
			line += " at " + rep.FinalizedAt.Format("2006-01-02 15:04")
		}
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	} else {
		pdf.CellFormat(0, 6, "Day is still open", "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Items: %d   Total quantity: %d", rep.TotalItems, rep.TotalQuantity), "", 1, "L", false, 0, "")

	if reportURL != "" {
		qrPng, err := qrcode.Encode(reportURL, qrcode.Low, 256)
		if err != nil {
			return nil, err
		}
		imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		_ = pdf.RegisterImageOptionsReader("report_qr", imgOptions, bytes.NewReader(qrPng))
		pdf.ImageOptions("report_qr", 170, 12, 25, 25, false, imgOptions, 0, "")
	}

	pdf.Ln(6)

	// Table header
	widths := []float64{30, 60, 18, 18, 28, 26}
	headers := []string{"Code", "Description", "Qty", "Checked", "Checked By", "Created By"}
	pdf.SetFont("Arial", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range rep.Rows {
		checked := ""
		if row.Checked {
			checked = "yes"
		}
		cols := []string{
			row.ProductCode,
			truncate(row.ProductDescription, 38),
			strconv.Itoa(row.Quantity),
			checked,
			truncate(row.CheckedBy, 16),
			truncate(row.CreatedBy, 16),
		}
		for i, c := range cols {
			pdf.CellFormat(widths[i], 6, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
