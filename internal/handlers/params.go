package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tour-booking/internal/apperr"
	"tour-booking/internal/middleware"
	"tour-booking/internal/models"
	"tour-booking/internal/services"
)

// query collects typed query parameters and remembers the first bad one
type query struct {
	c   *gin.Context
	err error
}

func newQuery(c *gin.Context) *query {
	return &query{c: c}
}

func (q *query) fail(name, msg string) {
	if q.err == nil {
		q.err = apperr.Validation("Invalid query parameter "+name, apperr.FieldError{Field: name, Message: msg})
	}
}

func (q *query) str(name string) string {
	return strings.TrimSpace(q.c.Query(name))
}

func (q *query) id(name string) *int64 {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		q.fail(name, "must be an integer")
		return nil
	}
	return &v
}

func (q *query) integer(name string) *int {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(name, "must be an integer")
		return nil
	}
	return &v
}

func (q *query) number(name string) *float64 {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		q.fail(name, "must be a number")
		return nil
	}
	return &v
}

func (q *query) flag(name string) *bool {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(name, "must be true or false")
		return nil
	}
	return &v
}

func (q *query) date(name string) *models.Date {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		q.fail(name, "must be a date in YYYY-MM-DD format")
		return nil
	}
	return &d
}

// page reads page and limit; bad values fall back to the defaults
func (q *query) page() models.Page {
	page, _ := strconv.Atoi(q.str("page"))
	limit, _ := strconv.Atoi(q.str("limit"))
	return models.NewPage(page, limit)
}

func bookingFilter(q *query) models.BookingFilter {
	filter := models.BookingFilter{
		TourID:   q.id("tour_id"),
		UserID:   q.id("user_id"),
		DateFrom: q.date("date_from"),
		DateTo:   q.date("date_to"),
		Search:   q.str("search"),
	}
	if raw := q.str("status"); raw != "" {
		status := models.BookingStatus(raw)
		if !status.Valid() {
			q.fail("status", "must be one of pending, confirmed, cancelled, completed")
		} else {
			filter.Status = &status
		}
	}
	return filter
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := middleware.ParseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return 0, false
	}
	return id, true
}

// actor is only called behind RequireAuth
func actor(c *gin.Context) services.Actor {
	a, _ := middleware.GetActor(c)
	return a
}

func optionalActor(c *gin.Context) *services.Actor {
	a, ok := middleware.GetActor(c)
	if !ok {
		return nil
	}
	return &a
}

func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(err)
		return false
	}
	return true
}
