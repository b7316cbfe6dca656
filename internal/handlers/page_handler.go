package handlers

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// PageHandler serves every non-API path the route guard let through, by forwarding it to the
// frontend origin when one is configured.
type PageHandler struct {
	proxy *httputil.ReverseProxy
}

func NewPageHandler(frontendURL string) (*PageHandler, error) {
	if frontendURL == "" {
		return &PageHandler{}, nil
	}
	target, err := url.Parse(frontendURL)
	if err != nil {
		return nil, err
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("[page] frontend unreachable")
		w.WriteHeader(http.StatusBadGateway)
	}
	return &PageHandler{proxy: proxy}, nil
}

func (h *PageHandler) Serve(c *gin.Context) {
	if h.proxy != nil {
		h.proxy.ServeHTTP(c.Writer, c.Request)
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": c.Request.URL.Path, "frontend": "not configured"})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
