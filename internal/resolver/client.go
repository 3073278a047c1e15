// Package resolver drives the external media resolver (yt-dlp) through the
// go-ytdlp command builder: probing a URL for its stream catalog and fetching
// selected video, audio, and subtitle streams into a job workspace.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/lrstanley/go-ytdlp"
)

const (
	// fallbackVideoFormat is used when the client did not pin a format id.
	fallbackVideoFormat = "bestvideo[ext=mp4]/bestvideo"
	// defaultAudioFormat backs zero-selection jobs so the merge never
	// produces a silent video.
	defaultAudioFormat = "bestaudio"
	// extractAudioFormat feeds the audio-only extraction mode.
	extractAudioFormat = "bestaudio/best"

	mp3Bitrate = "192K"

	progressInterval = 2 * time.Second
)

// Service is the resolver capability consumed by the analyze handler and the
// job pipeline. Implementations fetch into workDir and return the paths of
// the files that materialized.
type Service interface {
	// Probe inspects a URL without downloading anything.
	Probe(ctx context.Context, url string) (*MediaInfo, error)
	// FetchVideo downloads the selected (or best fallback) video stream.
	FetchVideo(ctx context.Context, url, formatID, workDir string) (string, error)
	// FetchAudioTrack downloads the best audio stream for one language,
	// falling back to the overall best when no tagged stream exists.
	FetchAudioTrack(ctx context.Context, url, lang string, index int, workDir string) (string, error)
	// FetchDefaultAudio downloads a single best-audio stream.
	FetchDefaultAudio(ctx context.Context, url, workDir string) (string, error)
	// FetchSubtitles downloads subtitle tracks for the requested languages.
	// Languages with no matching track are absent from the result.
	FetchSubtitles(ctx context.Context, url string, langs []string, workDir string) ([]SubtitleFile, error)
	// ExtractAudio downloads the best audio stream and transcodes it to mp3.
	ExtractAudio(ctx context.Context, url, workDir string) (string, error)
}

// Client is the production Service backed by the yt-dlp binary.
type Client struct {
	ffmpegPath string
	logger     hclog.Logger
}

var _ Service = (*Client)(nil)

// NewClient returns a Client that points the resolver at ffmpegPath for its
// own post-processing steps. An empty ffmpegPath leaves resolution to PATH.
func NewClient(ffmpegPath string, logger hclog.Logger) *Client {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Client{ffmpegPath: ffmpegPath, logger: logger}
}

// EnsureInstalled downloads a managed yt-dlp binary when none is available.
func EnsureInstalled(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("failed to install resolver binary: %w", err)
	}
	return nil
}

func (c *Client) newCommand() *ytdlp.Command {
	cmd := ytdlp.New().
		NoPlaylist().
		ForceOverwrites().
		RestrictFilenames()
	if c.ffmpegPath != "" {
		cmd = cmd.FFmpegLocation(c.ffmpegPath)
	}
	return cmd
}

func (c *Client) withProgress(cmd *ytdlp.Command, stage string) *ytdlp.Command {
	cmd.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
		c.logger.Debug("fetch progress",
			"stage", stage,
			"downloaded_bytes", update.DownloadedBytes,
			"total_bytes", update.TotalBytes,
		)
	})
	return cmd
}

func (c *Client) Probe(ctx context.Context, url string) (*MediaInfo, error) {
	result, err := ytdlp.New().
		NoPlaylist().
		SkipDownload().
		DumpSingleJSON().
		Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", url, err)
	}
	if strings.TrimSpace(result.Stdout) == "" {
		return nil, fmt.Errorf("resolver returned no metadata for %s", url)
	}

	var info MediaInfo
	if err := json.Unmarshal([]byte(result.Stdout), &info); err != nil {
		return nil, fmt.Errorf("failed to decode resolver metadata: %w", err)
	}
	return &info, nil
}

func (c *Client) FetchVideo(ctx context.Context, url, formatID, workDir string) (string, error) {
	selector := formatID
	if selector == "" {
		selector = fallbackVideoFormat
	}
	c.logger.Debug("fetching video stream", "format", selector)

	cmd := c.newCommand().
		Format(selector).
		Output(filepath.Join(workDir, "video.%(ext)s"))
	if _, err := c.withProgress(cmd, "video").Run(ctx, url); err != nil {
		return "", fmt.Errorf("failed to fetch video stream: %w", err)
	}

	path, ok := locateOne(workDir, "video.*")
	if !ok {
		return "", fmt.Errorf("video stream did not materialize in %s", workDir)
	}
	return path, nil
}

func (c *Client) FetchAudioTrack(ctx context.Context, url, lang string, index int, workDir string) (string, error) {
	selector := fmt.Sprintf("bestaudio[language=%s]/bestaudio", lang)
	c.logger.Debug("fetching audio stream", "lang", lang, "format", selector)

	name := fmt.Sprintf("audio_%d", index)
	cmd := c.newCommand().
		Format(selector).
		Output(filepath.Join(workDir, name+".%(ext)s"))
	if _, err := c.withProgress(cmd, "audio").Run(ctx, url); err != nil {
		return "", fmt.Errorf("failed to fetch audio stream for %s: %w", lang, err)
	}

	path, ok := locateOne(workDir, name+".*")
	if !ok {
		return "", fmt.Errorf("audio stream for %s did not materialize in %s", lang, workDir)
	}
	return path, nil
}

func (c *Client) FetchDefaultAudio(ctx context.Context, url, workDir string) (string, error) {
	c.logger.Debug("fetching default audio stream", "format", defaultAudioFormat)

	cmd := c.newCommand().
		Format(defaultAudioFormat).
		Output(filepath.Join(workDir, "audio_default.%(ext)s"))
	if _, err := c.withProgress(cmd, "audio").Run(ctx, url); err != nil {
		return "", fmt.Errorf("failed to fetch default audio stream: %w", err)
	}

	path, ok := locateOne(workDir, "audio_default.*")
	if !ok {
		return "", fmt.Errorf("default audio stream did not materialize in %s", workDir)
	}
	return path, nil
}

func (c *Client) FetchSubtitles(ctx context.Context, url string, langs []string, workDir string) ([]SubtitleFile, error) {
	if len(langs) == 0 {
		return nil, nil
	}
	c.logger.Debug("fetching subtitles", "langs", strings.Join(langs, ","))

	cmd := c.newCommand().
		SkipDownload().
		WriteSubs().
		SubLangs(strings.Join(langs, ",")).
		ConvertSubs("srt").
		Output(filepath.Join(workDir, "subs"))
	if _, err := cmd.Run(ctx, url); err != nil {
		return nil, fmt.Errorf("failed to fetch subtitles: %w", err)
	}

	// Only the languages whose files materialized make it into the merge.
	var files []SubtitleFile
	for _, lang := range langs {
		path, ok := locateOne(workDir, fmt.Sprintf("subs.%s.*", lang))
		if !ok {
			c.logger.Warn("subtitle track not available", "lang", lang)
			continue
		}
		files = append(files, SubtitleFile{Path: path, Language: lang})
	}
	return files, nil
}

func (c *Client) ExtractAudio(ctx context.Context, url, workDir string) (string, error) {
	c.logger.Debug("extracting audio", "format", extractAudioFormat, "bitrate", mp3Bitrate)

	cmd := c.newCommand().
		Format(extractAudioFormat).
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality(mp3Bitrate).
		Output(filepath.Join(workDir, "%(title)s.%(ext)s"))
	if _, err := c.withProgress(cmd, "audio").Run(ctx, url); err != nil {
		return "", fmt.Errorf("failed to extract audio: %w", err)
	}

	path, ok := locateOne(workDir, "*.mp3")
	if !ok {
		return "", fmt.Errorf("mp3 conversion produced no file in %s", workDir)
	}
	return path, nil
}

// locateOne globs for pattern under dir. Glob returns sorted matches, so the
// first one is a deterministic pick when several materialize.
func locateOne(dir, pattern string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}
