package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/pratyushn/auction-house/internal/auction"
)

// BidHandler exposes the participation flow: buy a bidding token with
// a deposit, validate it, and place bids through it.
type BidHandler struct {
	Engine *auction.Engine
}

func NewBidHandler(engine *auction.Engine) *BidHandler {
	return &BidHandler{Engine: engine}
}

type confirmDepositReq struct {
	PaymentRef string `json:"payment_ref" validate:"required"`
}

type validateTokenReq struct {
	Token string `json:"token" validate:"required"`
}

type placeBidReq struct {
	Token  string          `json:"token" validate:"required"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// RequestToken quotes the deposit for an item and opens the payment
// intent the client completes to receive a token.
func (h *BidHandler) RequestToken(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	email, ok := currentEmail(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	quote, err := h.Engine.RequestToken(c.Request().Context(), id, email)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"deposit_amount": quote.DepositAmount,
		"payment_ref":    quote.PaymentRef,
		"client_secret":  quote.ClientSecret,
	})
}

// ConfirmDeposit finishes token issuance once the deposit payment has
// succeeded and returns the bidding token string.
func (h *BidHandler) ConfirmDeposit(c echo.Context) error {
	var req confirmDepositReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_ref required"})
	}

	token, err := h.Engine.ConfirmDeposit(c.Request().Context(), strings.TrimSpace(req.PaymentRef))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"token": token})
}

// ValidateToken checks a token's existence, ownership and expiry for
// the calling user without placing a bid.
func (h *BidHandler) ValidateToken(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	email, ok := currentEmail(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req validateTokenReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	if err := h.Engine.ValidateToken(c.Request().Context(), id, strings.TrimSpace(req.Token), email); err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": true})
}

// PlaceBid records a bid and returns the new current price.
func (h *BidHandler) PlaceBid(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	email, ok := currentEmail(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req placeBidReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token and amount required"})
	}

	price, err := h.Engine.PlaceBid(c.Request().Context(), id, strings.TrimSpace(req.Token), email, req.Amount)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"current_price": price})
}
