package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	buyerdomain "github.com/sushiltimalsina/bemasathi/internal/buyer/domain"
	impressiondomain "github.com/sushiltimalsina/bemasathi/internal/impression/domain"
	matchingdomain "github.com/sushiltimalsina/bemasathi/internal/matching/domain"
	paymentdomain "github.com/sushiltimalsina/bemasathi/internal/payment/domain"
	"github.com/sushiltimalsina/bemasathi/internal/payment/webhook"
	policydomain "github.com/sushiltimalsina/bemasathi/internal/policy/domain"
	pricingdomain "github.com/sushiltimalsina/bemasathi/internal/pricing/domain"
	purchasedomain "github.com/sushiltimalsina/bemasathi/internal/purchase/domain"
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

func asValidationErrors(err error) *ValidationErrors {
	var v *ValidationErrors
	if errors.As(err, &v) {
		return v
	}
	return nil
}

func isBadRequestError(err error) bool {
	switch {
	case errors.Is(err, purchasedomain.ErrInvalidBillingCycle),
		errors.Is(err, purchasedomain.ErrInvalidCycleAmount),
		errors.Is(err, policydomain.ErrInvalidFactorConfig),
		errors.Is(err, policydomain.ErrInvalidPageToken),
		errors.Is(err, paymentdomain.ErrInvalidTransaction),
		errors.Is(err, pricingdomain.ErrInvalidPolicy),
		errors.Is(err, webhook.ErrInvalidPayload),
		errors.Is(err, webhook.ErrUnknownStatus):
		return true
	}
	return false
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, policydomain.ErrPolicyNotFound),
		errors.Is(err, purchasedomain.ErrPurchaseNotFound),
		errors.Is(err, buyerdomain.ErrBuyerNotFound),
		errors.Is(err, paymentdomain.ErrPaymentNotFound),
		errors.Is(err, paymentdomain.ErrReceiptNotFound),
		errors.Is(err, impressiondomain.ErrImpressionNotFound),
		errors.Is(err, matchingdomain.ErrNoCandidates),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	}
	return false
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, purchasedomain.ErrDuplicatePurchase),
		errors.Is(err, purchasedomain.ErrPurchaseCancelled),
		errors.Is(err, paymentdomain.ErrPaymentFailed),
		errors.Is(err, paymentdomain.ErrPaymentVerified):
		return true
	}
	return false
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

	switch {
	case isBadRequestError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, pricingdomain.ErrIneligibleRisk):
		// Eligibility failures are a business outcome, not a bad request.
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "ineligible_risk",
			Message: "buyer is not eligible for this policy",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
