// Package jobs implements the asynchronous download pipeline: an in-memory
// registry polled by the HTTP layer, a per-job runner that acquires streams
// and drives the merge, and a manager that spawns and tracks background jobs.
package jobs

import (
	"time"
)

// Status is the lifecycle state of a download job.
type Status string

const (
	// StatusQueued means the job is accepted but its worker has not started.
	StatusQueued Status = "queued"

	// StatusProcessing means the worker is preparing the job workspace.
	StatusProcessing Status = "processing"

	// StatusDownloadingVideo means the selected video stream is being fetched.
	StatusDownloadingVideo Status = "downloading_video"

	// StatusDownloadingAudio means audio streams are being fetched.
	StatusDownloadingAudio Status = "downloading_audio"

	// StatusDownloadingSubs means subtitle tracks are being fetched.
	StatusDownloadingSubs Status = "downloading_subs"

	// StatusMerging means the acquired streams are being multiplexed.
	StatusMerging Status = "merging"

	// StatusCompleted means the artifact is published. Terminal.
	StatusCompleted Status = "completed"

	// StatusError means the job failed. Terminal.
	StatusError Status = "error"
)

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the status accepts no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// OutputType selects the artifact container.
type OutputType string

const (
	TypeMP4 OutputType = "mp4"
	TypeMP3 OutputType = "mp3"
)

// Valid reports whether the output type is one the pipeline can produce.
func (t OutputType) Valid() bool {
	return t == TypeMP4 || t == TypeMP3
}

// Job is one tracked download. Snapshots of it are served verbatim by the
// progress endpoint; the registry never hands out the stored record itself.
type Job struct {
	ID          string    `json:"job_id"`
	Status      Status    `json:"status"`
	Progress    int       `json:"progress"`
	Message     string    `json:"message"`
	Filename    string    `json:"filename,omitempty"`
	DownloadURL string    `json:"download_url,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Request carries one accepted download submission into the pipeline.
type Request struct {
	URL           string
	Type          OutputType
	Quality       string // video format selector; empty means best available
	AudioLangs    []string
	SubtitleLangs []string

	// PublicBaseURL is the scheme://host prefix captured when the request was
	// accepted, used to build the artifact's download URL.
	PublicBaseURL string
}

// Progress checkpoints per stage. Stages run strictly in order so the schedule
// is monotone; the registry additionally refuses regressions.
const (
	progressProcessing = 5
	progressVideo      = 10
	progressAudioOnly  = 20
	progressAudio      = 30
	progressSubtitles  = 50
	progressMerging    = 80
	progressDone       = 100
)
