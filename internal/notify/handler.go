package notify

import (
	"fmt"
	"investtrack/internal/utils"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler serves the cron triggered endpoints.
type Handler struct {
	d      *Dispatcher
	logger *slog.Logger
}

func NewHandler(d *Dispatcher, logger *slog.Logger) *Handler {
	return &Handler{d: d, logger: logger}
}

func (h *Handler) Expiring(ctx *gin.Context) {
	h.run(ctx, Window30Days)
}

func (h *Handler) Monthly(ctx *gin.Context) {
	h.run(ctx, WindowMonth)
}

func (h *Handler) run(ctx *gin.Context, w Window) {
	report, err := h.d.Run(ctx, w)
	if err != nil {
		h.logger.Error("Digest dispatch failed", "window", w, "error", err)
		utils.Fail(ctx, http.StatusInternalServerError, "Failed to load expiring investments")
		return
	}
	if !report.OK() {
		ctx.JSON(http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Message: fmt.Sprintf("%d of %d digests failed", len(report.Failed), report.Users),
			Data:    report,
		})
		return
	}
	ctx.JSON(http.StatusOK, utils.APIResponse{
		Success: true,
		Message: fmt.Sprintf("Sent %d digests", report.Sent),
		Data:    report,
	})
}
