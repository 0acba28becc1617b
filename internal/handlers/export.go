package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tour-booking/internal/services"
	"tour-booking/internal/utils"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

type ExportHandler struct {
	exportService *services.ExportService
}

func NewExportHandler(exportService *services.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// files are rendered into a buffer first so a failure can still produce
// the JSON error envelope
func sendFile(c *gin.Context, buf *bytes.Buffer, contentType, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ExportHandler) Invoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.exportService.Invoice(c.Request.Context(), &buf, id); err != nil {
		_ = c.Error(err)
		return
	}
	sendFile(c, &buf, contentTypePDF, fmt.Sprintf("invoice_%d.pdf", id))
}

func (h *ExportHandler) BookingsCSV(c *gin.Context) {
	q := newQuery(c)
	filter := bookingFilter(q)
	if q.err != nil {
		_ = c.Error(q.err)
		return
	}
	var buf bytes.Buffer
	if err := h.exportService.BookingsCSV(c.Request.Context(), &buf, filter); err != nil {
		_ = c.Error(err)
		return
	}
	sendFile(c, &buf, contentTypeCSV, utils.ExportFilename("bookings", "csv", time.Now()))
}

func (h *ExportHandler) BookingsExcel(c *gin.Context) {
	q := newQuery(c)
	filter := bookingFilter(q)
	if q.err != nil {
		_ = c.Error(q.err)
		return
	}
	var buf bytes.Buffer
	if err := h.exportService.BookingsExcel(c.Request.Context(), &buf, filter); err != nil {
		_ = c.Error(err)
		return
	}
	sendFile(c, &buf, contentTypeXLSX, utils.ExportFilename("bookings", "xlsx", time.Now()))
}
