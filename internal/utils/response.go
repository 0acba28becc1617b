package utils

import (
	"tour-booking/internal/apperr"
	"tour-booking/internal/models"
)

// Response is the envelope every API route returns
type Response struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
	Stack   string              `json:"stack,omitempty"`
}

// PageData is the data payload of list routes
type PageData struct {
	Items      interface{}       `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

func SuccessResponse(message string, data interface{}) Response {
	return Response{Success: true, Message: message, Data: data}
}

func ErrorResponse(message string, fields ...apperr.FieldError) Response {
	return Response{Success: false, Message: message, Errors: fields}
}

// Paginated wraps a page of items with its pagination block
func Paginated(items interface{}, page models.Page, total int) Response {
	return Response{
		Success: true,
		Data: PageData{
			Items:      items,
			Pagination: models.NewPagination(page, total),
		},
	}
}
