package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	apperrors "github.com/muxfetch/muxfetch/internal/errors"
	"github.com/muxfetch/muxfetch/internal/events"
	"github.com/muxfetch/muxfetch/internal/resolver"
	"github.com/muxfetch/muxfetch/internal/transcode"
	"github.com/muxfetch/muxfetch/internal/utils"
)

// Merger is the transcoder capability a merge job invokes exactly once.
type Merger interface {
	Merge(ctx context.Context, inputs []transcode.Input, outputPath string) error
}

// runner executes one job end to end: workspace lifecycle, sequential stream
// acquisition, merge, and artifact publication. Faults never escape; every
// exit path lands the job in a terminal state and destroys the workspace.
type runner struct {
	logger       hclog.Logger
	registry     *Registry
	resolver     resolver.Service
	merger       Merger
	eventBus     events.EventBus
	workDir      string
	downloadsDir string
}

// Run drives the job to a terminal state. It runs on a detached goroutine and
// must not panic through.
func (r *runner) Run(ctx context.Context, jobID string, req Request) {
	log := r.logger.With("job_id", jobID)
	workspace := filepath.Join(r.workDir, jobID)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("job panicked", "panic", rec)
			r.fail(jobID, fmt.Errorf("internal fault: %v", rec))
		}
		// No workspace outlives its job, whichever way it ended.
		if err := os.RemoveAll(workspace); err != nil {
			log.Warn("failed to remove workspace", "path", workspace, "error", err)
		}
	}()

	log.Info("processing job", "type", req.Type, "url", req.URL)

	if err := utils.EnsureDir(workspace); err != nil {
		r.fail(jobID, fmt.Errorf("failed to create workspace: %w", err))
		return
	}
	r.update(jobID, StatusProcessing, progressProcessing, "Starting...")
	r.publish(events.EventJobStarted, jobID, "Job Started", fmt.Sprintf("%s download of %s", req.Type, req.URL))

	filename := fmt.Sprintf("download_%s.%s", jobID, req.Type)
	finalPath := filepath.Join(r.downloadsDir, filename)

	var err error
	switch req.Type {
	case TypeMP3:
		err = r.runAudioJob(ctx, jobID, req, workspace, finalPath)
	default:
		err = r.runMergeJob(ctx, jobID, req, workspace, finalPath)
	}
	if err != nil {
		r.fail(jobID, err)
		return
	}

	downloadURL := artifactURL(req.PublicBaseURL, filename)
	if err := r.registry.Complete(jobID, filename, downloadURL); err != nil {
		log.Error("failed to record completion", "error", err)
		return
	}
	r.publish(events.EventJobCompleted, jobID, "Job Completed", filename)
	log.Info("job completed", "filename", filename, "download_url", downloadURL)
}

// runAudioJob is the direct audio extraction path. The resolver's embedded
// postprocessor produces the mp3, so there is no separate merge step; the
// merging stage only covers moving the artifact into place.
func (r *runner) runAudioJob(ctx context.Context, jobID string, req Request, workspace, finalPath string) error {
	r.update(jobID, StatusDownloadingAudio, progressAudioOnly, "Downloading audio...")

	path, err := r.resolver.ExtractAudio(ctx, req.URL, workspace)
	if err != nil {
		return apperrors.NewAcquisitionError("audio", err)
	}

	r.update(jobID, StatusMerging, progressMerging, "Finalizing audio...")
	if err := utils.MoveFile(path, finalPath); err != nil {
		return fmt.Errorf("failed to publish artifact: %w", err)
	}
	return nil
}

// runMergeJob acquires video, audio, and subtitle streams strictly in that
// order, then multiplexes them. The input slice it accumulates is the single
// source of truth for output stream order.
func (r *runner) runMergeJob(ctx context.Context, jobID string, req Request, workspace, finalPath string) error {
	log := r.logger.With("job_id", jobID)

	r.update(jobID, StatusDownloadingVideo, progressVideo, "Downloading video...")
	videoPath, err := r.resolver.FetchVideo(ctx, req.URL, req.Quality, workspace)
	if err != nil {
		// A merge without video is meaningless.
		return apperrors.NewAcquisitionError("video", err)
	}
	inputs := []transcode.Input{{Kind: transcode.KindVideo, Path: videoPath}}

	if len(req.AudioLangs) == 0 {
		// Always carry one audio track so the merge never yields silent video.
		r.update(jobID, StatusDownloadingAudio, progressAudio, "Downloading audio...")
		path, err := r.resolver.FetchDefaultAudio(ctx, req.URL, workspace)
		if err != nil {
			return apperrors.NewAcquisitionError("audio", err)
		}
		inputs = append(inputs, transcode.Input{Kind: transcode.KindAudio, Path: path})
	}

	for i, lang := range req.AudioLangs {
		r.update(jobID, StatusDownloadingAudio, progressAudio, fmt.Sprintf("Downloading audio (%s)...", lang))
		path, err := r.resolver.FetchAudioTrack(ctx, req.URL, lang, i, workspace)
		if err != nil {
			if ctx.Err() != nil {
				return apperrors.NewAcquisitionError("audio", err)
			}
			// One unavailable language must not take down the whole job.
			log.Warn("audio track unavailable, skipping", "lang", lang, "error", err)
			continue
		}
		inputs = append(inputs, transcode.Input{Kind: transcode.KindAudio, Path: path, Language: lang})
	}

	if len(req.SubtitleLangs) > 0 {
		r.update(jobID, StatusDownloadingSubs, progressSubtitles, "Downloading subtitles...")
		subs, err := r.resolver.FetchSubtitles(ctx, req.URL, req.SubtitleLangs, workspace)
		if err != nil {
			return apperrors.NewAcquisitionError("subtitle", err)
		}
		for _, sub := range subs {
			inputs = append(inputs, transcode.Input{Kind: transcode.KindSubtitle, Path: sub.Path, Language: sub.Language})
		}
	}

	r.update(jobID, StatusMerging, progressMerging, "Merging streams...")
	if err := r.merger.Merge(ctx, inputs, finalPath); err != nil {
		return apperrors.NewMergeError(err)
	}
	return nil
}

// update records a stage transition and announces it on the bus.
func (r *runner) update(jobID string, status Status, progress int, message string) {
	if err := r.registry.UpdateStage(jobID, status, progress, message); err != nil {
		r.logger.Warn("stage update rejected", "job_id", jobID, "status", status, "error", err)
		return
	}

	event := events.NewJobEvent(events.EventJobStage, jobID, "Job Progress", message)
	event.Data = map[string]interface{}{
		"status":   string(status),
		"progress": progress,
	}
	r.publishEvent(event)
}

func (r *runner) fail(jobID string, cause error) {
	if err := r.registry.Fail(jobID, cause); err != nil {
		r.logger.Error("failed to record job failure", "job_id", jobID, "error", err)
		return
	}
	r.publish(events.EventJobFailed, jobID, "Job Failed", cause.Error())
}

func (r *runner) publish(eventType events.EventType, jobID, title, message string) {
	r.publishEvent(events.NewJobEvent(eventType, jobID, title, message))
}

func (r *runner) publishEvent(event events.Event) {
	if r.eventBus == nil {
		return
	}
	if err := r.eventBus.PublishAsync(event); err != nil {
		r.logger.Debug("event publish dropped", "type", event.Type, "error", err)
	}
}

// artifactURL joins the captured request base with the public files route.
func artifactURL(base, filename string) string {
	base = strings.TrimSuffix(base, "/")
	if base == "" {
		return "/files/" + filename
	}
	return base + "/files/" + filename
}
