package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"travelbooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	revenueSheet  = "Revenue"
)

var bookingColumns = []string{
	"ID", "User", "Email", "Package", "Destination", "Date",
	"Status", "Payment Status", "Payment Method", "Total Amount", "Rating", "Created At",
}

// Exporter renders bookings and payment analytics as an xlsx workbook.
type Exporter struct {
	dir    string
	logger *zerolog.Logger
	now    func() time.Time
}

func NewExporter(dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger, now: time.Now}
}

// Write streams the workbook to w.
func (e *Exporter) Write(w io.Writer, bookings []*models.Booking, analytics *models.PaymentAnalytics) error {
	f, err := e.build(bookings, analytics)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// Save writes the workbook into the export directory and returns its path.
func (e *Exporter) Save(bookings []*models.Booking, analytics *models.PaymentAnalytics) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := e.build(bookings, analytics)
	if err != nil {
		return "", err
	}
	defer f.Close()

	filePath := filepath.Join(e.dir, fmt.Sprintf("bookings_%s.xlsx", e.now().Format("20060102_150405")))
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("bookings", len(bookings)).Msg("Excel file created")
	return filePath, nil
}

func (e *Exporter) build(bookings []*models.Booking, analytics *models.PaymentAnalytics) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	header, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, name := range bookingColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, name)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(bookingColumns))
	_ = f.SetCellStyle(bookingsSheet, "A1", lastCol+"1", header)

	for i, b := range bookings {
		row := i + 2
		for col, v := range bookingRow(b) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(bookingsSheet, cell, v)
		}
	}
	_ = f.SetColWidth(bookingsSheet, "A", "A", 38)
	_ = f.SetColWidth(bookingsSheet, "B", lastCol, 18)

	if analytics != nil {
		if err := writeRevenue(f, analytics, header); err != nil {
			f.Close()
			return nil, err
		}
	}

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

func writeRevenue(f *excelize.File, a *models.PaymentAnalytics, header int) error {
	if _, err := f.NewSheet(revenueSheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	summary := [][]interface{}{
		{"Total Revenue", a.TotalRevenue},
		{"Paid Bookings", a.TotalBookings},
		{"Average Booking Value", a.AverageBookingValue},
	}
	for i, r := range summary {
		_ = f.SetSheetRow(revenueSheet, fmt.Sprintf("A%d", i+1), &r)
	}

	_ = f.SetSheetRow(revenueSheet, "A5", &[]interface{}{"Package ID", "Package", "Bookings", "Revenue"})
	_ = f.SetCellStyle(revenueSheet, "A5", "D5", header)
	for i, s := range a.PackageStats {
		_ = f.SetSheetRow(revenueSheet, fmt.Sprintf("A%d", i+6), &[]interface{}{s.PackageID, s.PackageTitle, s.Bookings, s.Revenue})
	}
	_ = f.SetColWidth(revenueSheet, "A", "B", 38)
	return nil
}

func bookingRow(b *models.Booking) []interface{} {
	var user, email, title, destination string
	if b.User != nil {
		user, email = b.User.Username, b.User.Email
	}
	if b.Package != nil {
		title, destination = b.Package.Title, b.Package.Destination
	}
	var rating interface{} = ""
	if b.Rating != nil {
		rating = *b.Rating
	}
	return []interface{}{
		b.ID,
		user,
		email,
		title,
		destination,
		b.Date,
		string(b.Status),
		deref(b.PaymentStatus),
		deref(b.PaymentMethod),
		b.TotalAmount,
		rating,
		b.CreatedAt.Format("2006-01-02 15:04"),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
