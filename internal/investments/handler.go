package investments

import (
	"context"
	"errors"
	"investtrack/internal/rates"
	"investtrack/internal/utils"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RateSource is satisfied by *rates.Cache.
type RateSource interface {
	Rates(ctx context.Context) *rates.ExchangeRates
}

type Handler struct {
	svc    *Service
	rates  RateSource
	logger *slog.Logger
}

func NewHandler(svc *Service, rates RateSource, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, rates: rates, logger: logger}
}

type Summary struct {
	Investments []utils.Investment   `json:"investments"`
	Total       rates.Total          `json:"total"`
	Rates       *rates.ExchangeRates `json:"rates"`
}

func (h *Handler) List(ctx *gin.Context) {
	userID, _ := utils.CurrentUser(ctx)
	list, err := h.svc.ListByUser(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to list investments", "userId", userID, "error", err)
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to load investments")
		return
	}
	utils.OK(ctx, http.StatusOK, list)
}

func (h *Handler) Create(ctx *gin.Context) {
	userID, _ := utils.CurrentUser(ctx)
	var req CreateRequest
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Fail(ctx, http.StatusBadRequest, "Invalid request")
		return
	}
	inv, err := h.svc.Create(ctx, userID, req)
	if err != nil {
		if errors.Is(err, ErrInvalidInvestment) {
			utils.Fail(ctx, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to create investment", "userId", userID, "error", err)
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to save investment")
		return
	}
	if r := h.rates.Rates(ctx); !r.Supports(inv.Currency) {
		h.logger.Warn("Investment currency has no exchange rate", "investmentId", inv.ID, "currency", inv.Currency)
	}
	utils.OK(ctx, http.StatusCreated, inv)
}

// Summary returns the user's investments with their total in the base currency.
func (h *Handler) Summary(ctx *gin.Context) {
	userID, _ := utils.CurrentUser(ctx)
	h.summaryFor(ctx, userID)
}

func (h *Handler) Rates(ctx *gin.Context) {
	utils.OK(ctx, http.StatusOK, h.rates.Rates(ctx))
}

// External serves automation clients holding the API key; the user is
// picked by email.
func (h *Handler) External(ctx *gin.Context) {
	email := ctx.Query("email")
	if email == "" {
		utils.Fail(ctx, http.StatusBadRequest, "email is required")
		return
	}
	user, err := h.svc.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			utils.Fail(ctx, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("Failed to load user", "email", email, "error", err)
		utils.Fail(ctx, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.summaryFor(ctx, user.ID)
}

func (h *Handler) summaryFor(ctx *gin.Context, userID string) {
	list, err := h.svc.ListByUser(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to list investments", "userId", userID, "error", err)
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to load investments")
		return
	}
	r := h.rates.Rates(ctx)
	total := rates.TotalCapital(list, r)
	if len(total.Unconverted) > 0 {
		h.logger.Warn("Investments left out of total", "userId", userID, "ids", total.Unconverted)
	}
	utils.OK(ctx, http.StatusOK, Summary{Investments: list, Total: total, Rates: r})
}
