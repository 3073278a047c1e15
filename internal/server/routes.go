package server

import (
	"github.com/gin-gonic/gin"

	"github.com/muxfetch/muxfetch/internal/apiroutes"
	"github.com/muxfetch/muxfetch/internal/server/handlers"
)

// setupRoutes configures all API routes
func (s *Server) setupRoutes(r *gin.Engine) {
	statusHandler := handlers.NewStatusHandler(Version, s.deps.Manager, s.deps.Monitor)
	analyzeHandler := handlers.NewAnalyzeHandler(s.deps.Resolver)
	jobsHandler := handlers.NewJobsHandler(s.deps.Manager, s.cfg.Server.PublicBaseURL)
	filesHandler := handlers.NewFilesHandler(s.cfg.Storage.DownloadsDir)
	eventsHandler := handlers.NewEventsHandler(s.deps.EventBus)

	r.GET("/", statusHandler.Status)
	apiroutes.Register("/", "GET", "Service status, job counts, and host metrics")

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HandleHealthCheck)
		apiroutes.Register("/api/health", "GET", "Liveness probe")

		api.POST("/analyze", analyzeHandler.Analyze)
		apiroutes.Register("/api/analyze", "POST", "Inspect a media URL for downloadable streams")

		api.POST("/download", jobsHandler.Download)
		apiroutes.Register("/api/download", "POST", "Start an asynchronous download job")

		api.GET("/progress/:job_id", jobsHandler.Progress)
		apiroutes.Register("/api/progress/:job_id", "GET", "Poll download job progress")

		api.GET("/jobs", jobsHandler.List)
		apiroutes.Register("/api/jobs", "GET", "List all download jobs")

		api.GET("/events", eventsHandler.GetEvents)
		apiroutes.Register("/api/events", "GET", "Recent job lifecycle events")
	}

	r.GET("/files/:filename", filesHandler.Serve)
	apiroutes.Register("/files/:filename", "GET", "Fetch a completed artifact")

	// Alias kept for clients that address artifacts under /downloads.
	r.GET("/downloads/:filename", filesHandler.Serve)
	apiroutes.Register("/downloads/:filename", "GET", "Fetch a completed artifact (alias)")
}
