package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"finportal/internal/services"
)

type PriceSource interface {
	Snapshot(ctx context.Context) (*services.PriceSnapshot, error)
}

type PriceHandler struct {
	prices PriceSource
}

func NewPriceHandler(p PriceSource) *PriceHandler { return &PriceHandler{prices: p} }

func (h *PriceHandler) Get(c *gin.Context) {
	snap, err := h.prices.Snapshot(c.Request.Context())
	if err != nil {
		log.Warn().Err(err).Msg("[prices] unavailable")
		c.JSON(http.StatusBadGateway, gin.H{"error": "price feed unavailable"})
		return
	}
	c.Header("Cache-Control", "public, max-age=60")
	c.JSON(http.StatusOK, gin.H{"success": true, "data": snap})
}
