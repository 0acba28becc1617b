package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"

	"tour-booking/internal/apperr"
	"tour-booking/internal/logger"
	"tour-booking/internal/storage"
	"tour-booking/internal/utils"
)

// RegisterJSONFieldNames makes binding errors report json names (tour_id)
// instead of Go field names (TourID).
func RegisterJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
}

// ErrorHandler renders the last error attached with c.Error as the response
// envelope. It is the only place errors become HTTP statuses.
func ErrorHandler(isProduction bool, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status, resp := render(err)

		if status >= http.StatusInternalServerError {
			log.Error("API", fmt.Sprintf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err))
			if !isProduction {
				resp.Stack = err.Error()
			}
		}
		c.AbortWithStatusJSON(status, resp)
	}
}

func render(err error) (int, utils.Response) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Status(), utils.ErrorResponse(appErr.Message, appErr.Fields...)
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperr.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apperr.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
		return http.StatusBadRequest, utils.ErrorResponse("Validation failed", fields...)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return http.StatusBadRequest, utils.ErrorResponse("Invalid request body",
			apperr.FieldError{Field: typeErr.Field, Message: "must be a " + typeErr.Type.String()})
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return http.StatusBadRequest, utils.ErrorResponse("Invalid request body")
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch {
		case storage.IsDuplicate(err):
			return http.StatusConflict, utils.ErrorResponse("Duplicate entry")
		case storage.IsReferenced(err):
			return http.StatusConflict, utils.ErrorResponse("Record is referenced by other records")
		case storage.IsMissingReference(err):
			return http.StatusBadRequest, utils.ErrorResponse("Referenced record does not exist")
		}
	}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, utils.ErrorResponse("Resource not found")
	case errors.Is(err, storage.ErrDuplicate):
		return http.StatusConflict, utils.ErrorResponse("Duplicate entry")
	case errors.Is(err, storage.ErrAlreadyPaid):
		return http.StatusBadRequest, utils.ErrorResponse("Booking has already been paid")
	}

	return http.StatusInternalServerError, utils.ErrorResponse("Internal server error")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "is invalid"
}
