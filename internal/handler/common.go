package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pratyushn/auction-house/internal/auction"
)

// currentEmail reads the email claim JWTAuth stored in the context.
func currentEmail(c echo.Context) (string, bool) {
	email, ok := c.Get("email").(string)
	if !ok || email == "" {
		return "", false
	}
	return email, true
}

// pathID parses the :id path parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// engineError maps the engine's error taxonomy onto HTTP responses.
// Validation failures are 400s, missing resources 404s, lost races and
// repeat settlements 409s, and processor trouble 402s.  Anything the
// taxonomy does not name is a 500 with a generic body.
func engineError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auction.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, auction.ErrDuplicateToken),
		errors.Is(err, auction.ErrBidTooLow),
		errors.Is(err, auction.ErrTokenExpired),
		errors.Is(err, auction.ErrTokenMismatch),
		errors.Is(err, auction.ErrNotWinner),
		errors.Is(err, auction.ErrNoBidders),
		errors.Is(err, auction.ErrNoRefundTargets):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, auction.ErrAlreadySettled),
		errors.Is(err, auction.ErrConcurrencyConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, auction.ErrExternalPayment):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": err.Error()})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
