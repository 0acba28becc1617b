package utils

import (
	"fmt"
	"time"
)

// InvoiceNumber is stable for a booking on a given issue day
func InvoiceNumber(bookingID int64, issued time.Time) string {
	return fmt.Sprintf("INV-%s-%06d", issued.UTC().Format("20060102"), bookingID)
}

// ExportFilename builds the attachment name for a generated export
func ExportFilename(kind, ext string, generated time.Time) string {
	return fmt.Sprintf("%s_%s.%s", kind, generated.UTC().Format("20060102_150405"), ext)
}
