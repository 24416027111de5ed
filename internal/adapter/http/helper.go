package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"equity-lending/internal/domain/errs"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	HeaderActorID        = "X-Actor-Id"
	HeaderMembershipID   = "X-Membership-Id"
	HeaderIdempotencyKey = "Idempotency-Key"

	dateLayout = "2006-01-02"
)

// ---- helpers ----

// actor is the caller recorded on audit entries; self-service calls fall
// back to the membership.
func actor(c echo.Context) string {
	if a := strings.TrimSpace(c.Request().Header.Get(HeaderActorID)); a != "" {
		return a
	}
	return strings.TrimSpace(c.Request().Header.Get(HeaderMembershipID))
}

func membershipID(c echo.Context) (string, bool) {
	id := strings.TrimSpace(c.Request().Header.Get(HeaderMembershipID))
	return id, reHex32.MatchString(id)
}

// parseDate reads a YYYY-MM-DD value; blank means today in UTC.
func parseDate(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(dateLayout, raw)
}

func statusFor(code errs.Code) int {
	switch code {
	case errs.CodeApplicationNotFound, errs.CodeMembershipNotFound, errs.CodeStageNotFound, errs.CodeGrantNotFound:
		return http.StatusNotFound
	case errs.CodeConcurrentUpdate, errs.CodeIdempotencyConflict, errs.CodeInsufficientAvailableShares:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// writeError maps business errors to their status; anything else is logged
// and hidden behind a 500.
func writeError(c echo.Context, log zerolog.Logger, err error) error {
	var be *errs.Error
	if !errors.As(err, &be) {
		log.Error().Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("request failed")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "internal server error"})
	}
	resp := ErrorResponse{Error: string(be.Code), Message: be.Message}
	if len(be.Details) > 0 {
		resp.Details = be.Details
	}
	return c.JSON(statusFor(be.Code), resp)
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_body", Message: "request body is not valid JSON"})
}

func validationFailed(c echo.Context, err error) error {
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation_failed",
		Message: "validation failed",
		Details: ToFieldErrors(err),
	})
}

// bindAndValidate binds the body into req and validates it, writing the
// error response itself. It reports whether the handler may continue.
func bindAndValidate(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, invalidBody(c)
	}
	if err := c.Validate(req); err != nil {
		return false, validationFailed(c, err)
	}
	return true, nil
}
