package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/muxfetch/muxfetch/internal/errors"
	"github.com/muxfetch/muxfetch/internal/jobs"
)

// JobsHandler handles download submission and progress polling.
type JobsHandler struct {
	manager *jobs.Manager

	// publicBaseURL, when configured, overrides the request-derived base used
	// for artifact links (reverse proxy deployments).
	publicBaseURL string
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(manager *jobs.Manager, publicBaseURL string) *JobsHandler {
	return &JobsHandler{
		manager:       manager,
		publicBaseURL: publicBaseURL,
	}
}

type downloadRequest struct {
	URL      string   `json:"url"`
	Type     string   `json:"type"`
	Quality  string   `json:"quality"`
	Audio    []string `json:"audio"`
	Subtitle []string `json:"subtitle"`
}

// Download accepts a download request and answers immediately with the job ID
// to poll; all actual work happens on a background worker.
func (h *JobsHandler) Download(c *gin.Context) {
	var req downloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, "invalid request body", "url")
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		apperrors.HandleValidationError(c, "url is required", "url")
		return
	}

	if req.Type == "" {
		req.Type = string(jobs.TypeMP4)
	}
	outputType := jobs.OutputType(req.Type)
	if !outputType.Valid() {
		apperrors.HandleValidationError(c, "type must be mp4 or mp3", "type")
		return
	}

	// The base URL is captured now; the request is gone by the time the
	// worker publishes the artifact.
	base := h.publicBaseURL
	if base == "" {
		base = requestBaseURL(c)
	}

	job, err := h.manager.Submit(jobs.Request{
		URL:           req.URL,
		Type:          outputType,
		Quality:       req.Quality,
		AudioLangs:    req.Audio,
		SubtitleLangs: req.Subtitle,
		PublicBaseURL: base,
	})
	if err != nil {
		apperrors.HandleInternalError(c, "failed to start download", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"job_id":  job.ID,
		"message": "Download started",
	})
}

// Progress returns the full record of one job.
func (h *JobsHandler) Progress(c *gin.Context) {
	id := c.Param("job_id")

	job, err := h.manager.GetJob(id)
	if err != nil {
		apperrors.HandleNotFound(c, "job", id)
		return
	}

	c.JSON(http.StatusOK, job)
}

// List returns snapshots of all jobs, most recent first.
func (h *JobsHandler) List(c *gin.Context) {
	list := h.manager.ListJobs()
	c.JSON(http.StatusOK, gin.H{
		"jobs":  list,
		"count": len(list),
	})
}

// requestBaseURL reconstructs the externally visible scheme://host/ prefix of
// the current request, honoring proxy forwarding headers.
func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if c.Request.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/", scheme, c.Request.Host)
}
