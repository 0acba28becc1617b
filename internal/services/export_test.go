package services

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tour-booking/internal/apperr"
	"tour-booking/internal/models"
)

func TestBookingsCSV(t *testing.T) {
	f := newFixture(t, Deps{})
	f.book(t, f.client, 4, "premium")
	f.book(t, f.other, 1, "")

	var buf bytes.Buffer
	require.NoError(t, f.svc.Exports.BookingsCSV(f.ctx, &buf, models.BookingFilter{}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, bookingColumns, records[0])

	prices := map[string]bool{}
	for _, row := range records[1:] {
		assert.Equal(t, "Fjord Cruise", row[1])
		assert.Equal(t, "2025-06-01", row[5])
		assert.Equal(t, "2025-06-04", row[6])
		assert.Equal(t, "pending", row[10])
		prices[row[9]] = true
	}
	assert.Equal(t, map[string]bool{"2000.00": true, "300.00": true}, prices)
}

func TestBookingsExcel(t *testing.T) {
	f := newFixture(t, Deps{})
	paid := f.book(t, f.client, 4, "premium")
	f.book(t, f.other, 1, "")
	_, err := f.svc.Payments.Record(f.ctx, paid.ID, &models.RecordPaymentRequest{Method: models.MethodCash})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.svc.Exports.BookingsExcel(f.ctx, &buf, models.BookingFilter{}))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"Bookings", "Summary"}, wb.GetSheetList())

	rows, err := wb.GetRows("Bookings")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, "Tour", rows[0][1])

	summary, err := wb.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, summary, len(models.BookingStatuses)+2)
	total := summary[len(summary)-1]
	assert.Equal(t, []string{"Total", "2", "2300"}, total)
}

func TestInvoice(t *testing.T) {
	f := newFixture(t, Deps{})
	f.svc.Exports.now = func() time.Time { return time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC) }
	b := f.book(t, f.client, 4, "premium")

	var buf bytes.Buffer
	require.NoError(t, f.svc.Exports.Invoice(f.ctx, &buf, b.ID))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	err := f.svc.Exports.Invoice(f.ctx, &bytes.Buffer{}, 999)
	assertKind(t, err, apperr.KindNotFound)
}
