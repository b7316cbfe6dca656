package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"finportal/internal/models"
	"finportal/internal/receipt"
)

type PDFRenderer interface {
	PDF(r models.ReceiptData) ([]byte, error)
}

type ReceiptHandler struct {
	pdf     PDFRenderer
	company string
	now     func() time.Time
}

func NewReceiptHandler(pdf PDFRenderer, company string) *ReceiptHandler {
	return &ReceiptHandler{pdf: pdf, company: company, now: time.Now}
}

// @Summary      Generate receipt document
// @Description  Renders a transaction receipt as JSON+HTML (default) or as a PDF download with ?format=pdf.
// @Tags         Receipts
// @Accept       json
// @Produce      json
// @Produce      application/pdf
// @Param        format  query     string              false  "html | pdf"
// @Param        body    body      models.ReceiptData  true   "Receipt"
// @Success      200     {object}  map[string]interface{}
// @Failure      400     {object}  map[string]string
// @Failure      401     {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/receipts [post]
func (h *ReceiptHandler) Generate(c *gin.Context) {
	var req models.ReceiptData
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := receipt.Normalize(req, h.now())
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("format") == "pdf" {
		b, err := h.pdf.PDF(r)
		if err != nil {
			respondError(c, err)
			return
		}
		log.Info().Str("receipt", r.ReceiptNumber).Int("bytes", len(b)).Msg("[receipt] pdf generated")
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, r.ReceiptNumber))
		c.Data(http.StatusOK, "application/pdf", b)
		return
	}

	html, err := receipt.RenderHTML(h.company, r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "receipt": r, "html": html})
}
