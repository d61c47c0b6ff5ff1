package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/pratyushn/auction-house/internal/model"
	"github.com/pratyushn/auction-house/internal/repository"
)

// ItemHandler serves the auction catalog: admins create items, anyone
// can browse them.  Live bid state (current price, bidder roster)
// comes from the same rows the engine mutates, so reads here never go
// stale beyond one request.
type ItemHandler struct {
	Items *repository.ItemRepo
}

func NewItemHandler(items *repository.ItemRepo) *ItemHandler {
	return &ItemHandler{Items: items}
}

type createItemReq struct {
	Category     string          `json:"category" validate:"required"`
	Title        string          `json:"title" validate:"required,min=2"`
	Description  string          `json:"description"`
	BasePrice    decimal.Decimal `json:"base_price" validate:"required"`
	BidStartTime time.Time       `json:"bid_start_time" validate:"required"`
	BidEndTime   time.Time       `json:"bid_end_time" validate:"required"`
}

type itemResp struct {
	ID            uint64          `json:"id"`
	Category      string          `json:"category"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	BasePrice     decimal.Decimal `json:"base_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	BidStartTime  time.Time       `json:"bid_start_time"`
	BidEndTime    time.Time       `json:"bid_end_time"`
	BidStatus     string          `json:"bid_status"`
	CurrentStatus string          `json:"current_status,omitempty"`
}

type bidderResp struct {
	UserID    uint64          `json:"user_id"`
	Name      string          `json:"name"`
	BidAmount decimal.Decimal `json:"bid_amount"`
	BidTime   time.Time       `json:"bid_time"`
	Refunded  bool            `json:"refunded"`
}

func toItemResp(item *model.Item) itemResp {
	return itemResp{
		ID:            item.ID,
		Category:      item.Category,
		Title:         item.Title,
		Description:   item.Description,
		BasePrice:     item.BasePrice,
		CurrentPrice:  item.CurrentPrice,
		BidStartTime:  item.BidStartTime,
		BidEndTime:    item.BidEndTime,
		BidStatus:     bidStatusAt(item, time.Now().UTC()),
		CurrentStatus: item.CurrentStatus,
	}
}

// bidStatusAt derives the bidding phase from the item's window rather
// than trusting the stored column, which only a scheduler would keep
// fresh.
func bidStatusAt(item *model.Item, now time.Time) string {
	switch {
	case now.Before(item.BidStartTime):
		return model.BidStatusUpcoming
	case now.After(item.BidEndTime):
		return model.BidStatusEnded
	default:
		return model.BidStatusActive
	}
}

// Create registers a new auction item (admin only).
func (h *ItemHandler) Create(c echo.Context) error {
	var req createItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category, title, base_price and bid window required"})
	}
	if req.BasePrice.LessThanOrEqual(decimal.Zero) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "base_price must be positive"})
	}
	if !req.BidEndTime.After(req.BidStartTime) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bid_end_time must be after bid_start_time"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	item := &model.Item{
		Category:     strings.TrimSpace(req.Category),
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		BasePrice:    req.BasePrice,
		BidStartTime: req.BidStartTime.UTC(),
		BidEndTime:   req.BidEndTime.UTC(),
		BidStatus:    model.BidStatusUpcoming,
	}
	if err := h.Items.CreateItem(ctx, item); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create item failed"})
	}
	return c.JSON(http.StatusCreated, toItemResp(item))
}

// List returns the catalog, newest first.
func (h *ItemHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Items.ListItems(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list items failed"})
	}
	out := make([]itemResp, 0, len(items))
	for i := range items {
		out = append(out, toItemResp(&items[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Get returns one item with its bidder roster.
func (h *ItemHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	item, err := h.Items.FindItem(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load item failed"})
	}
	bidders, err := h.Items.Bidders(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load bidders failed"})
	}

	roster := make([]bidderResp, 0, len(bidders))
	for _, b := range bidders {
		roster = append(roster, bidderResp{
			UserID:    b.UserID,
			Name:      b.Name,
			BidAmount: b.BidAmount,
			BidTime:   b.BidTime,
			Refunded:  b.Refunded,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"item":    toItemResp(item),
		"bidders": roster,
	})
}
