package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"tour-booking/internal/apperr"
	"tour-booking/internal/logger"
	"tour-booking/internal/models"
	"tour-booking/internal/storage"
	"tour-booking/internal/utils"
)

// exportRowLimit caps unpaginated booking exports
const exportRowLimit = 10000

var bookingColumns = []string{
	"ID", "Tour", "City", "Customer", "Email", "Start Date", "End Date",
	"Guests", "Tier", "Total Price", "Status", "Payment ID", "Created At",
}

func bookingRow(b *models.Booking) []string {
	paymentID := ""
	if b.PaymentID != nil {
		paymentID = strconv.FormatInt(*b.PaymentID, 10)
	}
	return []string{
		strconv.FormatInt(b.ID, 10),
		b.TourName,
		b.CityName,
		b.UserName,
		b.UserEmail,
		b.StartDate.String(),
		b.EndDate.String(),
		strconv.Itoa(b.Guests),
		string(b.Tier),
		strconv.FormatFloat(b.TotalPrice, 'f', 2, 64),
		string(b.Status),
		paymentID,
		b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ExportService renders booking data as CSV, XLSX and PDF on demand
type ExportService struct {
	store   storage.Store
	appName string
	log     *logger.Logger
	now     func() time.Time
}

func NewExportService(store storage.Store, appName string, log *logger.Logger) *ExportService {
	if appName == "" {
		appName = "Tour Booking"
	}
	return &ExportService{store: store, appName: appName, log: log, now: time.Now}
}

func (s *ExportService) bookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	bookings, _, err := s.store.ListBookings(ctx, filter, models.Page{Page: 1, Limit: exportRowLimit})
	if err != nil {
		return nil, apperr.Internal("Failed to load bookings", err)
	}
	return bookings, nil
}

func (s *ExportService) BookingsCSV(ctx context.Context, w io.Writer, filter models.BookingFilter) error {
	bookings, err := s.bookings(ctx, filter)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(bookingColumns); err != nil {
		return apperr.Internal("Failed to write CSV", err)
	}
	for _, b := range bookings {
		if err := cw.Write(bookingRow(b)); err != nil {
			return apperr.Internal("Failed to write CSV", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperr.Internal("Failed to write CSV", err)
	}

	s.log.LogProcess("EXPORT", fmt.Sprintf("CSV export with %d bookings", len(bookings)))
	return nil
}

// BookingsExcel writes a workbook with a Bookings sheet and a per-status Summary sheet
func (s *ExportService) BookingsExcel(ctx context.Context, w io.Writer, filter models.BookingFilter) error {
	bookings, err := s.bookings(ctx, filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet, summary = "Bookings", "Summary"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return apperr.Internal("Failed to build workbook", err)
	}
	if _, err := f.NewSheet(summary); err != nil {
		return apperr.Internal("Failed to build workbook", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"1F7A8C"}, Pattern: 1},
	})
	if err != nil {
		return apperr.Internal("Failed to build workbook", err)
	}

	if err := writeRow(f, sheet, 1, toCells(bookingColumns)); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(bookingColumns))
	_ = f.SetCellStyle(sheet, "A1", lastCol+"1", header)
	_ = f.SetColWidth(sheet, "A", lastCol, 16)

	type bucket struct {
		count   int
		revenue float64
	}
	perStatus := make(map[models.BookingStatus]*bucket, len(models.BookingStatuses))
	for _, st := range models.BookingStatuses {
		perStatus[st] = &bucket{}
	}

	for i, b := range bookings {
		cells := toCells(bookingRow(b))
		// numeric cells stay numeric in the sheet
		cells[0], cells[7], cells[9] = b.ID, b.Guests, b.TotalPrice
		if err := writeRow(f, sheet, i+2, cells); err != nil {
			return err
		}
		if bk, ok := perStatus[b.Status]; ok {
			bk.count++
			bk.revenue += b.TotalPrice
		}
	}

	if err := writeRow(f, summary, 1, []interface{}{"Status", "Bookings", "Revenue"}); err != nil {
		return err
	}
	_ = f.SetCellStyle(summary, "A1", "C1", header)
	_ = f.SetColWidth(summary, "A", "C", 16)

	var totalCount int
	var totalRevenue float64
	for i, st := range models.BookingStatuses {
		bk := perStatus[st]
		totalCount += bk.count
		totalRevenue += bk.revenue
		if err := writeRow(f, summary, i+2, []interface{}{string(st), bk.count, models.RoundMoney(bk.revenue)}); err != nil {
			return err
		}
	}
	if err := writeRow(f, summary, len(models.BookingStatuses)+2, []interface{}{"Total", totalCount, models.RoundMoney(totalRevenue)}); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return apperr.Internal("Failed to write workbook", err)
	}
	s.log.LogProcess("EXPORT", fmt.Sprintf("Excel export with %d bookings", len(bookings)))
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return apperr.Internal("Failed to build workbook", err)
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return apperr.Internal("Failed to build workbook", err)
	}
	return nil
}

// Invoice renders a one-page PDF invoice for a booking
func (s *ExportService) Invoice(ctx context.Context, w io.Writer, bookingID int64) error {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return storeError(err, "Booking")
	}

	var payment *models.Payment
	if booking.PaymentID != nil {
		payment, err = s.store.GetPayment(ctx, *booking.PaymentID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return apperr.Internal("Failed to load payment", err)
		}
	}

	issued := s.now()
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Invoice for booking #%d", booking.ID), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, tr(s.appName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Invoice "+utils.InvoiceNumber(booking.ID, issued), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Issued "+issued.UTC().Format(models.DateLayout), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	section := func(title string, lines ...string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 7, title, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		for _, line := range lines {
			pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}
	section("Bill to", booking.UserName, booking.UserEmail)
	section("Booking",
		fmt.Sprintf("Booking #%d (%s)", booking.ID, booking.Status),
		fmt.Sprintf("%s, %s", booking.TourName, booking.CityName),
		fmt.Sprintf("%s to %s", booking.StartDate, booking.EndDate),
	)

	unit := 0.0
	if booking.Guests > 0 {
		unit = models.RoundMoney(booking.TotalPrice / float64(booking.Guests))
	}
	widths := []float64{90, 25, 35, 40}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 240, 242)
	for i, h := range []string{"Description", "Guests", "Unit price", "Amount"} {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(widths[0], 8, tr(fmt.Sprintf("%s (%s)", booking.TourName, booking.Tier)), "1", 0, "L", false, 0, "")
	pdf.CellFormat(widths[1], 8, strconv.Itoa(booking.Guests), "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[2], 8, fmt.Sprintf("%.2f", unit), "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 8, fmt.Sprintf("%.2f", booking.TotalPrice), "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 8, fmt.Sprintf("%.2f", booking.TotalPrice), "1", 1, "R", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	status := "Payment status: unpaid"
	if payment != nil {
		status = fmt.Sprintf("Payment status: %s via %s", payment.Status, payment.Method)
		if payment.TransactionID != nil {
			status += " (" + *payment.TransactionID + ")"
		}
	}
	pdf.CellFormat(0, 6, tr(status), "", 1, "L", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return apperr.Internal("Failed to render invoice", err)
	}
	s.log.LogProcess("EXPORT", fmt.Sprintf("Invoice rendered for booking %d", booking.ID))
	return nil
}
