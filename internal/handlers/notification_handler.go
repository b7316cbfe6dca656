package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"finportal/internal/middleware"
	"finportal/internal/models"
	"finportal/internal/services"
)

type Dispatcher interface {
	Send(ctx context.Context, req services.NotificationRequest) (*services.SendResult, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
}

type NotificationHandler struct {
	dispatcher Dispatcher
}

func NewNotificationHandler(d Dispatcher) *NotificationHandler {
	return &NotificationHandler{dispatcher: d}
}

// recipients accepts "to" as a single address or a list.
type recipients []string

func (r *recipients) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*r = recipients{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return errors.New("to must be an email address or a list of them")
	}
	*r = many
	return nil
}

type sendEmailRequest struct {
	To       recipients          `json:"to"`
	Subject  string              `json:"subject"`
	HTML     string              `json:"html"`
	Text     string              `json:"text"`
	Template string              `json:"template"`
	Data     map[string]any      `json:"data"`
	Receipt  *models.ReceiptData `json:"receipt"`
	Category string              `json:"category" binding:"omitempty,oneof=account deposit withdrawal trade security"`
}

// @Summary      Send notification email
// @Description  Sends raw HTML/text or a named template, optionally with a rendered receipt appended.
// @Tags         Notifications
// @Accept       json
// @Produce      json
// @Param        body  body      sendEmailRequest  true  "Notification"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/notifications/email [post]
func (h *NotificationHandler) SendEmail(c *gin.Context) {
	var req sendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	userID := ""
	if u, ok := middleware.CurrentUser(c); ok {
		userID = u.ID
	}

	res, err := h.dispatcher.Send(c.Request.Context(), services.NotificationRequest{
		To:       req.To,
		Subject:  strings.TrimSpace(req.Subject),
		HTML:     req.HTML,
		Text:     req.Text,
		Template: req.Template,
		Data:     req.Data,
		Receipt:  req.Receipt,
		UserID:   userID,
		Category: req.Category,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"receipt_attached": res.ReceiptAttached,
		"receipt_number":   res.ReceiptNumber,
	})
}

func (h *NotificationHandler) List(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := h.dispatcher.ListForUser(c.Request.Context(), u.ID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if items == nil {
		items = []*models.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notifications": items})
}
