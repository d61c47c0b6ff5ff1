package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pratyushn/auction-house/internal/auction"
)

// SettlementHandler exposes the winner's checkout flow: staged
// settlement of the balance, the receipt slip, and the refund fan-out
// an admin runs against that slip.
type SettlementHandler struct {
	Engine *auction.Engine
}

func NewSettlementHandler(engine *auction.Engine) *SettlementHandler {
	return &SettlementHandler{Engine: engine}
}

type confirmStepReq struct {
	PaymentRef string `json:"payment_ref" validate:"required"`
}

type refundReq struct {
	SlipCode string `json:"slip_code" validate:"required,len=4"`
}

type stepResp struct {
	Amount       string `json:"amount"`
	PaymentRef   string `json:"payment_ref"`
	ClientSecret string `json:"client_secret"`
}

func toStepResp(s *auction.SettlementStep) *stepResp {
	if s == nil {
		return nil
	}
	return &stepResp{
		Amount:       s.Amount.String(),
		PaymentRef:   s.PaymentRef,
		ClientSecret: s.ClientSecret,
	}
}

// Initiate begins or resumes the staged settlement for the winner.
func (h *SettlementHandler) Initiate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	email, ok := currentEmail(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	plan, err := h.Engine.InitiateSettlement(c.Request().Context(), id, email)
	if err != nil {
		return engineError(c, err)
	}

	amounts := make([]string, 0, len(plan.Amounts))
	for _, a := range plan.Amounts {
		amounts = append(amounts, a.String())
	}
	return c.JSON(http.StatusOK, echo.Map{
		"final_amount": plan.FinalAmount,
		"amounts":      amounts,
		"first_step":   toStepResp(plan.FirstStep),
		"completed":    plan.Completed,
	})
}

// ConfirmStep records one completed step payment.
func (h *SettlementHandler) ConfirmStep(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	email, ok := currentEmail(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req confirmStepReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_ref required"})
	}

	res, err := h.Engine.ConfirmSettlementStep(c.Request().Context(), id, email, strings.TrimSpace(req.PaymentRef))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"completed": res.Completed,
		"paid":      res.Paid,
		"next_step": toStepResp(res.NextStep),
		"history":   res.History,
	})
}

// Checkout returns the winner's checkout view for an item.
func (h *SettlementHandler) Checkout(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	email, ok := currentEmail(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	data, err := h.Engine.CheckoutData(c.Request().Context(), id, email)
	if err != nil {
		return engineError(c, err)
	}

	amounts := make([]string, 0, len(data.StepAmounts))
	for _, a := range data.StepAmounts {
		amounts = append(amounts, a.String())
	}
	return c.JSON(http.StatusOK, echo.Map{
		"item":           toItemResp(data.Item),
		"winning_amount": data.WinningAmount,
		"deposit_paid":   data.DepositPaid,
		"final_amount":   data.FinalAmount,
		"paid_amount":    data.PaidAmount,
		"remaining":      data.Remaining,
		"settled":        data.Settled,
		"step_amounts":   amounts,
	})
}

// GenerateSlip issues (or re-returns) the item's receipt slip.
func (h *SettlementHandler) GenerateSlip(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	email, ok := currentEmail(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	slip, existed, err := h.Engine.GenerateSlip(c.Request().Context(), id, email)
	if err != nil {
		return engineError(c, err)
	}
	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	return c.JSON(status, echo.Map{
		"slip_code":  slip.Code,
		"item_id":    slip.ItemID,
		"created_at": slip.CreatedAt,
	})
}

// Refund runs the deposit fan-out for the slip's item (admin only).
func (h *SettlementHandler) Refund(c echo.Context) error {
	var req refundReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "4-digit slip_code required"})
	}

	summary, err := h.Engine.ProcessRefund(c.Request().Context(), strings.TrimSpace(req.SlipCode))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"refunded_count": summary.RefundedCount,
		"per_bidder":     summary.PerBidder,
		"total_refunded": summary.TotalRefunded,
	})
}
