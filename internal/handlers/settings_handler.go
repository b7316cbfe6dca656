package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"finportal/internal/middleware"
	"finportal/internal/models"
)

type SettingsManager interface {
	List(ctx context.Context, category string) ([]*models.Setting, error)
	Update(ctx context.Context, key, value, typ, category string) (*models.Setting, error)
}

type SettingsHandler struct {
	settings SettingsManager
}

func NewSettingsHandler(s SettingsManager) *SettingsHandler { return &SettingsHandler{settings: s} }

func (h *SettingsHandler) List(c *gin.Context) {
	items, err := h.settings.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	if items == nil {
		items = []*models.Setting{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": items})
}

type updateSettingRequest struct {
	Value    *string `json:"value" binding:"required"`
	Type     string  `json:"type" binding:"omitempty,oneof=string number boolean json"`
	Category string  `json:"category"`
}

func (h *SettingsHandler) Update(c *gin.Context) {
	var req updateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	st, err := h.settings.Update(c.Request.Context(), c.Param("key"), *req.Value, req.Type, req.Category)
	if err != nil {
		respondError(c, err)
		return
	}
	by := ""
	if p, ok := middleware.CurrentProfile(c); ok {
		by = p.Email
	}
	log.Info().Str("key", st.Key).Str("by", by).Msg("[settings] updated")
	c.JSON(http.StatusOK, gin.H{"success": true, "setting": st})
}
