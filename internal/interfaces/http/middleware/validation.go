package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/campus/backend/internal/domain/ledger"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/campus/backend/internal/infrastructure/logger"
	"github.com/campus/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Ledger binding tags.
const (
	// TagMoney accepts a decimal string within valueobject.Scale places
	TagMoney = "money"
	// TagPaymentMethod accepts one of the closed PaymentMethod values
	TagPaymentMethod = "payment_method"
)

// SetupValidator names fields after their json (or form) tags and registers
// the ledger tags.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	_ = v.RegisterValidation(TagMoney, func(fl validator.FieldLevel) bool {
		_, err := valueobject.NewMoneyFromString(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation(TagPaymentMethod, func(fl validator.FieldLevel) bool {
		_, err := ledger.ParsePaymentMethod(fl.Field().String())
		return err == nil
	})
}

// FormatValidationErrors lists every rejected field by its request path,
// e.g. "allocations[1].amount".
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   fieldPath(e),
				Message: getValidationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	)
}

// HandleValidationError answers a failed bind: 413 when BodyLimit cut the
// body off, 400 with field details for validation failures and a plain 400
// for malformed JSON or wrong types.
func HandleValidationError(c *gin.Context, err error) {
	requestID := logger.RequestID(c.Request.Context())
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, tooLargeResponse(c, tooLarge.Limit))
		return
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(dto.ErrCodeBadRequest, "Malformed request body", requestID))
		return
	}
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
}

// fieldPath drops the Go type name that heads the validator namespace.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case TagMoney:
		return "Must be a decimal amount such as 1250.00"
	case TagPaymentMethod:
		return "Must be one of: " + strings.Join(paymentMethodNames(), " ")
	case "datetime":
		return "Must be a date in the format " + e.Param()
	case "min":
		if e.Type().Kind() == reflect.Slice {
			return "Must contain at least " + e.Param() + " entries"
		}
		if e.Type().Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	default:
		return "Invalid value"
	}
}

func paymentMethodNames() []string {
	methods := ledger.PaymentMethods()
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = string(m)
	}
	return names
}
