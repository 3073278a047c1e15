// Package transcode plans and runs the ffmpeg merge step that multiplexes an
// ordered set of acquired streams into a single output container.
package transcode

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Output codec policy for merged containers: video passes through untouched,
// audio is normalized to AAC, subtitles to the mp4-compatible text codec.
const (
	videoCodec    = "copy"
	audioCodec    = "aac"
	subtitleCodec = "mov_text"
)

// maxOutputTail bounds how much combined ffmpeg output a merge failure carries;
// the useful diagnostics sit at the end.
const maxOutputTail = 2048

// InputKind classifies a merge input stream.
type InputKind string

const (
	KindVideo    InputKind = "video"
	KindAudio    InputKind = "audio"
	KindSubtitle InputKind = "subtitle"
)

// streamSelector returns the ffmpeg stream specifier for this kind.
func (k InputKind) streamSelector() string {
	switch k {
	case KindVideo:
		return "v"
	case KindAudio:
		return "a"
	case KindSubtitle:
		return "s"
	}
	return ""
}

// Input is one stream feeding a merge. Slice position decides both the ffmpeg
// input index and the output stream order, so callers append video first, then
// audio tracks in request order, then subtitle tracks in request order.
type Input struct {
	Kind     InputKind
	Path     string
	Language string
}

// CommandRunner interface for command execution (enables mocking in tests)
type CommandRunner interface {
	Run(ctx context.Context, cmd string, args ...string) ([]byte, error)
}

// DefaultCommandRunner implements CommandRunner using os/exec
type DefaultCommandRunner struct{}

// Run executes a command using os/exec
func (r *DefaultCommandRunner) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	command := exec.CommandContext(ctx, cmd, args...)
	return command.CombinedOutput()
}

// Runner invokes ffmpeg to merge acquired streams into one artifact.
type Runner struct {
	logger     hclog.Logger
	execer     CommandRunner
	ffmpegPath string
}

// NewRunner creates a Runner that shells out to ffmpegPath.
func NewRunner(ffmpegPath string, logger hclog.Logger) *Runner {
	return NewRunnerWithExecutor(ffmpegPath, logger, &DefaultCommandRunner{})
}

// NewRunnerWithExecutor creates a Runner with a custom command executor (for testing)
func NewRunnerWithExecutor(ffmpegPath string, logger hclog.Logger, execer CommandRunner) *Runner {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Runner{
		logger:     logger.Named("transcode"),
		execer:     execer,
		ffmpegPath: ffmpegPath,
	}
}

// BuildMergeArgs constructs the ffmpeg argument list for one merge. Output
// stream N comes from input N, so the map directives follow the input order
// exactly. Subtitle language metadata is addressed by position among the
// subtitle outputs, not by global input index.
func (r *Runner) BuildMergeArgs(inputs []Input, outputPath string) []string {
	args := []string{"-y"}

	for _, in := range inputs {
		args = append(args, "-i", in.Path)
	}

	for i, in := range inputs {
		args = append(args, "-map", fmt.Sprintf("%d:%s", i, in.Kind.streamSelector()))
	}

	subIdx := 0
	for _, in := range inputs {
		if in.Kind != KindSubtitle {
			continue
		}
		args = append(args, fmt.Sprintf("-metadata:s:s:%d", subIdx), "language="+in.Language)
		subIdx++
	}

	args = append(args,
		"-c:v", videoCodec,
		"-c:a", audioCodec,
		"-c:s", subtitleCodec,
		outputPath,
	)

	return args
}

// Merge runs ffmpeg once over the inputs. Any failure is fatal to the caller;
// there is no retry or partial output.
func (r *Runner) Merge(ctx context.Context, inputs []Input, outputPath string) error {
	if err := validateInputs(inputs); err != nil {
		return err
	}

	args := r.BuildMergeArgs(inputs, outputPath)
	r.logger.Info("merging streams",
		"inputs", len(inputs),
		"output", outputPath,
		"command", r.ffmpegPath+" "+strings.Join(args, " "))

	output, err := r.execer.Run(ctx, r.ffmpegPath, args...)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg merge failed: %w: %s", err, outputTail(output))
	}

	r.logger.Debug("merge finished", "output", outputPath)
	return nil
}

func validateInputs(inputs []Input) error {
	videos := 0
	for _, in := range inputs {
		if in.Kind == KindVideo {
			videos++
		}
	}
	if videos != 1 {
		return fmt.Errorf("merge requires exactly one video input, got %d", videos)
	}
	return nil
}

func outputTail(output []byte) string {
	s := strings.TrimSpace(string(output))
	if len(s) > maxOutputTail {
		s = s[len(s)-maxOutputTail:]
	}
	return s
}
