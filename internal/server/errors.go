package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	alertdomain "github.com/smallbiznis/karat/internal/alert/domain"
	analyticsdomain "github.com/smallbiznis/karat/internal/analytics/domain"
	apikeydomain "github.com/smallbiznis/karat/internal/apikey/domain"
	auditdomain "github.com/smallbiznis/karat/internal/audit/domain"
	"github.com/smallbiznis/karat/internal/authorization"
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
	inventorydomain "github.com/smallbiznis/karat/internal/inventory/domain"
	materialdomain "github.com/smallbiznis/karat/internal/material/domain"
	pricingdomain "github.com/smallbiznis/karat/internal/pricing/domain"
	ratedomain "github.com/smallbiznis/karat/internal/rate/domain"
	supplierdomain "github.com/smallbiznis/karat/internal/supplier/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// bindingError turns a failed ShouldBind into per-field validation errors.
func bindingError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return invalidRequestError()
	}
	out := &ValidationErrors{Errors: make([]ValidationError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fe.Field(),
			Code:    fe.Tag(),
			Message: fe.Field() + " failed " + fe.Tag() + " validation",
		})
	}
	return out
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, apikeydomain.ErrInvalidAPIKey),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, materialdomain.ErrDuplicateMaterial),
		errors.Is(err, inventorydomain.ErrOrderAlreadyProcessed),
		errors.Is(err, ratedomain.ErrRefreshInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, ratedomain.ErrNoRates),
		errors.Is(err, alertdomain.ErrPriceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same type and code the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	if err != nil && payload.Type != "internal_error" {
		return payload.Type, err.Error()
	}
	return payload.Type, payload.Type
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, materialdomain.ErrDuplicateMaterial):
		return "material already exists"
	case errors.Is(err, inventorydomain.ErrOrderAlreadyProcessed):
		return "order already processed"
	case errors.Is(err, ratedomain.ErrRefreshInProgress):
		return "rate refresh already running"
	default:
		return "conflict"
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isVendorValidationError(err),
		isMaterialValidationError(err),
		isPricingValidationError(err),
		isCatalogValidationError(err),
		isInventoryValidationError(err),
		isRateValidationError(err),
		isAlertValidationError(err),
		isAPIKeyValidationError(err),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, analyticsdomain.ErrTooManyProducts):
		return true
	default:
		return false
	}
}

func isVendorValidationError(err error) bool {
	return errors.Is(err, supplierdomain.ErrInvalidID) ||
		errors.Is(err, supplierdomain.ErrInvalidName) ||
		errors.Is(err, supplierdomain.ErrInvalidEndpoint)
}

func isMaterialValidationError(err error) bool {
	return errors.Is(err, materialdomain.ErrInvalidID) ||
		errors.Is(err, materialdomain.ErrInvalidName) ||
		errors.Is(err, materialdomain.ErrInvalidUnit) ||
		errors.Is(err, materialdomain.ErrInvalidPurity)
}

func isPricingValidationError(err error) bool {
	return errors.Is(err, pricingdomain.ErrInvalidCondition) ||
		errors.Is(err, pricingdomain.ErrInvalidThreshold) ||
		errors.Is(err, pricingdomain.ErrInvalidDiscount) ||
		errors.Is(err, pricingdomain.ErrInvalidLaborCost) ||
		errors.Is(err, pricingdomain.ErrInvalidRuleID)
}

func isCatalogValidationError(err error) bool {
	return errors.Is(err, catalogdomain.ErrInvalidProductID) ||
		errors.Is(err, catalogdomain.ErrInvalidMaterialID) ||
		errors.Is(err, catalogdomain.ErrInvalidName) ||
		errors.Is(err, catalogdomain.ErrInvalidPrice) ||
		errors.Is(err, catalogdomain.ErrInvalidWeight)
}

func isInventoryValidationError(err error) bool {
	return errors.Is(err, inventorydomain.ErrInvalidMaterialID) ||
		errors.Is(err, inventorydomain.ErrInvalidQuantity) ||
		errors.Is(err, inventorydomain.ErrInvalidOrderID)
}

func isRateValidationError(err error) bool {
	return errors.Is(err, ratedomain.ErrInvalidMaterialID) ||
		errors.Is(err, ratedomain.ErrInvalidDays)
}

func isAlertValidationError(err error) bool {
	return errors.Is(err, alertdomain.ErrInvalidProductID) ||
		errors.Is(err, alertdomain.ErrInvalidEmail)
}

func isAPIKeyValidationError(err error) bool {
	return errors.Is(err, apikeydomain.ErrInvalidName) ||
		errors.Is(err, apikeydomain.ErrInvalidRole) ||
		errors.Is(err, apikeydomain.ErrInvalidKeyID)
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, supplierdomain.ErrNotFound),
		errors.Is(err, materialdomain.ErrNotFound),
		errors.Is(err, pricingdomain.ErrRuleNotFound),
		errors.Is(err, catalogdomain.ErrProductNotFound),
		errors.Is(err, inventorydomain.ErrMaterialNotFound),
		errors.Is(err, apikeydomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if code == "too_many_products" {
		return "product_id"
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "too_many_products":
		return "too many products requested"
	default:
		return "invalid value"
	}
}
