package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/muxfetch/muxfetch/internal/catalog"
	apperrors "github.com/muxfetch/muxfetch/internal/errors"
	"github.com/muxfetch/muxfetch/internal/resolver"
)

// AnalyzeHandler handles media URL inspection requests.
type AnalyzeHandler struct {
	resolver resolver.Service
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(svc resolver.Service) *AnalyzeHandler {
	return &AnalyzeHandler{resolver: svc}
}

type analyzeRequest struct {
	URL string `json:"url"`
}

// Analyze probes a media URL and returns the selectable video qualities,
// audio languages, and subtitle languages. Nothing is downloaded and no job
// is created.
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, "invalid request body", "url")
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		apperrors.HandleValidationError(c, "url is required", "url")
		return
	}

	info, err := h.resolver.Probe(c.Request.Context(), req.URL)
	if err != nil {
		apperrors.NewResolutionError(req.URL, err).ToGinResponse(c)
		return
	}

	summary := catalog.Build(info)
	c.JSON(http.StatusOK, gin.H{
		"status":       "success",
		"title":        summary.Title,
		"thumbnail":    summary.Thumbnail,
		"channel":      summary.Channel,
		"duration":     summary.Duration,
		"qualities":    summary.Qualities,
		"audio_tracks": summary.AudioTracks,
		"subtitles":    summary.Subtitles,
	})
}
