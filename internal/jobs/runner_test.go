package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muxfetch/muxfetch/internal/resolver"
	"github.com/muxfetch/muxfetch/internal/transcode"
)

// fakeResolver implements resolver.Service against the local filesystem so
// pipeline tests exercise real workspace and artifact handling.
type fakeResolver struct {
	mu sync.Mutex

	failVideo        bool
	failDefaultAudio bool
	failExtract      bool
	failSubtitles    bool
	failAudio        map[string]bool // languages whose fetch errors
	missingSubs      map[string]bool // languages silently absent upstream
	delay            time.Duration
	blockUntil       chan struct{} // when set, FetchVideo waits for close or ctx

	videoCalls        int
	defaultAudioCalls int
}

func (f *fakeResolver) pause(ctx context.Context) error {
	if f.blockUntil != nil {
		select {
		case <-f.blockUntil:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return nil
}

func (f *fakeResolver) Probe(ctx context.Context, url string) (*resolver.MediaInfo, error) {
	return &resolver.MediaInfo{Title: "probe"}, nil
}

func (f *fakeResolver) FetchVideo(ctx context.Context, url, formatID, workDir string) (string, error) {
	f.mu.Lock()
	f.videoCalls++
	f.mu.Unlock()

	if err := f.pause(ctx); err != nil {
		return "", err
	}
	if f.failVideo {
		return "", fmt.Errorf("no video formats found")
	}
	return writeStream(workDir, "video.mp4")
}

func (f *fakeResolver) FetchAudioTrack(ctx context.Context, url, lang string, index int, workDir string) (string, error) {
	if err := f.pause(ctx); err != nil {
		return "", err
	}
	if f.failAudio[lang] {
		return "", fmt.Errorf("no audio for language %s", lang)
	}
	return writeStream(workDir, fmt.Sprintf("audio_%d.m4a", index))
}

func (f *fakeResolver) FetchDefaultAudio(ctx context.Context, url, workDir string) (string, error) {
	f.mu.Lock()
	f.defaultAudioCalls++
	f.mu.Unlock()

	if err := f.pause(ctx); err != nil {
		return "", err
	}
	if f.failDefaultAudio {
		return "", fmt.Errorf("no audio formats found")
	}
	return writeStream(workDir, "audio_default.m4a")
}

func (f *fakeResolver) FetchSubtitles(ctx context.Context, url string, langs []string, workDir string) ([]resolver.SubtitleFile, error) {
	if err := f.pause(ctx); err != nil {
		return nil, err
	}
	if f.failSubtitles {
		return nil, fmt.Errorf("subtitle fetch failed")
	}

	var files []resolver.SubtitleFile
	for _, lang := range langs {
		if f.missingSubs[lang] {
			continue
		}
		path, err := writeStream(workDir, fmt.Sprintf("subs.%s.srt", lang))
		if err != nil {
			return nil, err
		}
		files = append(files, resolver.SubtitleFile{Path: path, Language: lang})
	}
	return files, nil
}

func (f *fakeResolver) ExtractAudio(ctx context.Context, url, workDir string) (string, error) {
	if err := f.pause(ctx); err != nil {
		return "", err
	}
	if f.failExtract {
		return "", fmt.Errorf("audio extraction failed")
	}
	return writeStream(workDir, "extracted.mp3")
}

func writeStream(workDir, name string) (string, error) {
	path := filepath.Join(workDir, name)
	if err := os.WriteFile(path, []byte(name), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// fakeMerger records the planned inputs and writes the output artifact the
// way a successful ffmpeg run would.
type fakeMerger struct {
	mu     sync.Mutex
	err    error
	calls  int
	inputs []transcode.Input
	output string
}

func (f *fakeMerger) Merge(ctx context.Context, inputs []transcode.Input, outputPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.inputs = append([]transcode.Input(nil), inputs...)
	f.output = outputPath
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputPath, []byte("merged"), 0644)
}

func (f *fakeMerger) snapshot() (int, []transcode.Input, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, append([]transcode.Input(nil), f.inputs...), f.output
}

func newTestManager(t *testing.T, svc resolver.Service, merger Merger, maxConcurrent int) (*Manager, string) {
	t.Helper()

	base := t.TempDir()
	downloads := filepath.Join(base, "downloads")
	require.NoError(t, os.MkdirAll(downloads, 0755))

	m := NewManager(ManagerConfig{
		WorkDir:         filepath.Join(base, "work"),
		DownloadsDir:    downloads,
		MaxConcurrent:   maxConcurrent,
		ShutdownTimeout: 2 * time.Second,
	}, svc, merger, nil, hclog.NewNullLogger())
	t.Cleanup(func() { _ = m.Shutdown() })

	return m, base
}

func waitForTerminal(t *testing.T, m *Manager, id string) Job {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		job, err := m.GetJob(id)
		require.NoError(t, err)
		if job.Status.IsTerminal() {
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s never reached a terminal state, last status %s", id, job.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAudioJobCompletes(t *testing.T) {
	fr := &fakeResolver{}
	fm := &fakeMerger{}
	m, base := newTestManager(t, fr, fm, 0)

	job, err := m.Submit(Request{
		URL:           "https://example.com/watch?v=abc",
		Type:          TypeMP3,
		PublicBaseURL: "http://example.com/",
	})
	require.NoError(t, err)

	done := waitForTerminal(t, m, job.ID)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, progressDone, done.Progress)
	assert.Equal(t, "download_"+job.ID+".mp3", done.Filename)
	assert.Equal(t, "http://example.com/files/download_"+job.ID+".mp3", done.DownloadURL)
	assert.Empty(t, done.Error)

	// Artifact published, workspace destroyed, no merge invoked.
	_, err = os.Stat(filepath.Join(base, "downloads", done.Filename))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "work", job.ID))
	assert.True(t, os.IsNotExist(err))
	calls, _, _ := fm.snapshot()
	assert.Zero(t, calls)
}

func TestMergeJobOrdersInputs(t *testing.T) {
	fr := &fakeResolver{}
	fm := &fakeMerger{}
	m, base := newTestManager(t, fr, fm, 0)

	job, err := m.Submit(Request{
		URL:           "https://example.com/watch?v=abc",
		Type:          TypeMP4,
		Quality:       "137",
		AudioLangs:    []string{"en", "fr"},
		SubtitleLangs: []string{"de"},
		PublicBaseURL: "http://localhost:8080",
	})
	require.NoError(t, err)

	done := waitForTerminal(t, m, job.ID)
	require.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, "http://localhost:8080/files/download_"+job.ID+".mp4", done.DownloadURL)

	calls, inputs, output := fm.snapshot()
	require.Equal(t, 1, calls)
	require.Len(t, inputs, 4)
	assert.Equal(t, transcode.KindVideo, inputs[0].Kind)
	assert.Equal(t, transcode.KindAudio, inputs[1].Kind)
	assert.Equal(t, "en", inputs[1].Language)
	assert.Equal(t, transcode.KindAudio, inputs[2].Kind)
	assert.Equal(t, "fr", inputs[2].Language)
	assert.Equal(t, transcode.KindSubtitle, inputs[3].Kind)
	assert.Equal(t, "de", inputs[3].Language)
	assert.Equal(t, filepath.Join(base, "downloads", "download_"+job.ID+".mp4"), output)

	_, err = os.Stat(output)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "work", job.ID))
	assert.True(t, os.IsNotExist(err))
}

func TestMergeJobSkipsUnavailableAudioLanguage(t *testing.T) {
	fr := &fakeResolver{failAudio: map[string]bool{"xx": true}}
	fm := &fakeMerger{}
	m, _ := newTestManager(t, fr, fm, 0)

	job, err := m.Submit(Request{
		URL:        "https://example.com/v",
		Type:       TypeMP4,
		AudioLangs: []string{"en", "xx"},
	})
	require.NoError(t, err)

	done := waitForTerminal(t, m, job.ID)
	require.Equal(t, StatusCompleted, done.Status)

	_, inputs, _ := fm.snapshot()
	require.Len(t, inputs, 2)
	assert.Equal(t, transcode.KindAudio, inputs[1].Kind)
	assert.Equal(t, "en", inputs[1].Language)
}

func TestMergeJobFallsBackToDefaultAudio(t *testing.T) {
	fr := &fakeResolver{}
	fm := &fakeMerger{}
	m, _ := newTestManager(t, fr, fm, 0)

	job, err := m.Submit(Request{URL: "https://example.com/v", Type: TypeMP4})
	require.NoError(t, err)

	done := waitForTerminal(t, m, job.ID)
	require.Equal(t, StatusCompleted, done.Status)

	assert.Equal(t, 1, fr.defaultAudioCalls)
	_, inputs, _ := fm.snapshot()
	require.Len(t, inputs, 2)
	assert.Equal(t, transcode.KindVideo, inputs[0].Kind)
	assert.Equal(t, transcode.KindAudio, inputs[1].Kind)
	assert.Empty(t, inputs[1].Language)
}

func TestMergeJobDropsMissingSubtitleLanguage(t *testing.T) {
	fr := &fakeResolver{missingSubs: map[string]bool{"xx": true}}
	fm := &fakeMerger{}
	m, _ := newTestManager(t, fr, fm, 0)

	job, err := m.Submit(Request{
		URL:           "https://example.com/v",
		Type:          TypeMP4,
		AudioLangs:    []string{"en"},
		SubtitleLangs: []string{"en", "xx"},
	})
	require.NoError(t, err)

	done := waitForTerminal(t, m, job.ID)
	require.Equal(t, StatusCompleted, done.Status)

	_, inputs, _ := fm.snapshot()
	require.Len(t, inputs, 3)
	assert.Equal(t, transcode.KindSubtitle, inputs[2].Kind)
	assert.Equal(t, "en", inputs[2].Language)
}

func TestVideoFailureIsFatal(t *testing.T) {
	fr := &fakeResolver{failVideo: true}
	fm := &fakeMerger{}
	m, base := newTestManager(t, fr, fm, 0)

	job, err := m.Submit(Request{URL: "https://example.com/v", Type: TypeMP4})
	require.NoError(t, err)

	done := waitForTerminal(t, m, job.ID)
	assert.Equal(t, StatusError, done.Status)
	assert.Contains(t, done.Error, "video")
	// Failure keeps the progress reached before the fault.
	assert.Equal(t, progressVideo, done.Progress)
	assert.Empty(t, done.DownloadURL)

	calls, _, _ := fm.snapshot()
	assert.Zero(t, calls)
	_, err = os.Stat(filepath.Join(base, "work", job.ID))
	assert.True(t, os.IsNotExist(err))
}

func TestDefaultAudioFailureIsFatal(t *testing.T) {
	fr := &fakeResolver{failDefaultAudio: true}
	fm := &fakeMerger{}
	m, _ := newTestManager(t, fr, fm, 0)

	job, err := m.Submit(Request{URL: "https://example.com/v", Type: TypeMP4})
	require.NoError(t, err)

	done := waitForTerminal(t, m, job.ID)
	assert.Equal(t, StatusError, done.Status)
	assert.Contains(t, done.Error, "audio")
}

func TestSubtitleFetchFailureIsFatal(t *testing.T) {
	fr := &fakeResolver{failSubtitles: true}
	fm := &fakeMerger{}
	m, _ := newTestManager(t, fr, fm, 0)

	job, err := m.Submit(Request{
		URL:           "https://example.com/v",
		Type:          TypeMP4,
		AudioLangs:    []string{"en"},
		SubtitleLangs: []string{"en"},
	})
	require.NoError(t, err)

	done := waitForTerminal(t, m, job.ID)
	assert.Equal(t, StatusError, done.Status)
	assert.Contains(t, done.Error, "subtitle")
}

func TestMergeFailureIsFatal(t *testing.T) {
	fr := &fakeResolver{}
	fm := &fakeMerger{err: fmt.Errorf("exit status 1")}
	m, base := newTestManager(t, fr, fm, 0)

	job, err := m.Submit(Request{URL: "https://example.com/v", Type: TypeMP4})
	require.NoError(t, err)

	done := waitForTerminal(t, m, job.ID)
	assert.Equal(t, StatusError, done.Status)
	assert.Contains(t, done.Error, "merge")

	_, err = os.Stat(filepath.Join(base, "work", job.ID))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractionFailureIsFatal(t *testing.T) {
	fr := &fakeResolver{failExtract: true}
	fm := &fakeMerger{}
	m, _ := newTestManager(t, fr, fm, 0)

	job, err := m.Submit(Request{URL: "https://example.com/v", Type: TypeMP3})
	require.NoError(t, err)

	done := waitForTerminal(t, m, job.ID)
	assert.Equal(t, StatusError, done.Status)
	assert.Contains(t, done.Error, "audio")
}

func TestRelativeDownloadURLWithoutBase(t *testing.T) {
	fr := &fakeResolver{}
	fm := &fakeMerger{}
	m, _ := newTestManager(t, fr, fm, 0)

	job, err := m.Submit(Request{URL: "https://example.com/v", Type: TypeMP3})
	require.NoError(t, err)

	done := waitForTerminal(t, m, job.ID)
	require.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, "/files/download_"+job.ID+".mp3", done.DownloadURL)
}

// Progress observed through polling must never move backwards while the
// pipeline advances through its stages.
func TestProgressIsMonotone(t *testing.T) {
	fr := &fakeResolver{delay: 3 * time.Millisecond}
	fm := &fakeMerger{}
	m, _ := newTestManager(t, fr, fm, 0)

	job, err := m.Submit(Request{
		URL:           "https://example.com/v",
		Type:          TypeMP4,
		AudioLangs:    []string{"en", "fr"},
		SubtitleLangs: []string{"en"},
	})
	require.NoError(t, err)

	var samples []int
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := m.GetJob(job.ID)
		require.NoError(t, err)
		samples = append(samples, snap.Progress)
		if snap.Status.IsTerminal() {
			break
		}
		require.True(t, time.Now().Before(deadline), "job stalled")
		time.Sleep(time.Millisecond)
	}

	for i := 1; i < len(samples); i++ {
		assert.GreaterOrEqual(t, samples[i], samples[i-1], "sample %d regressed", i)
	}
	assert.Equal(t, progressDone, samples[len(samples)-1])
}
