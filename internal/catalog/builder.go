// Package catalog turns resolver probe output into the client-facing stream
// catalog: one video option per resolution, one audio track per language, and
// the sorted list of available subtitle languages.
package catalog

import (
	"fmt"
	"sort"

	"github.com/muxfetch/muxfetch/internal/resolver"
	"github.com/muxfetch/muxfetch/internal/utils"
)

// UnknownLanguage labels audio tracks whose descriptor carries no language.
const UnknownLanguage = "Unknown"

// VideoOption is one selectable quality in the analyze response.
type VideoOption struct {
	Quality       string `json:"quality"`
	Height        int    `json:"height"`
	FilesizeBytes int64  `json:"filesize_bytes"`
	Filesize      string `json:"filesize"`
	FormatID      string `json:"format_id"`
	Ext           string `json:"ext"`
}

// AudioTrack is one selectable audio language in the analyze response.
type AudioTrack struct {
	Language string `json:"lang"`
	FormatID string `json:"format_id"`
}

// Summary is the analyze response body minus the status envelope.
type Summary struct {
	Title       string        `json:"title"`
	Thumbnail   string        `json:"thumbnail"`
	Channel     string        `json:"channel"`
	Duration    int64         `json:"duration"`
	Qualities   []VideoOption `json:"qualities"`
	AudioTracks []AudioTrack  `json:"audio_tracks"`
	Subtitles   []string      `json:"subtitles"`
}

// Build derives the stream catalog from a probe result.
//
// Video candidates need a video codec and a positive height; duplicates by
// height resolve last-seen-wins, except that a later candidate reporting a
// strictly smaller size than the incumbent is ignored. Audio candidates are
// audio-only variants; duplicates by language resolve first-seen-wins.
func Build(info *resolver.MediaInfo) *Summary {
	byHeight := make(map[int]VideoOption)
	seenLang := make(map[string]bool)
	audioTracks := make([]AudioTrack, 0)

	for _, f := range info.Formats {
		switch {
		case f.HasVideo() && f.Height > 0:
			size := f.Size()
			if cur, ok := byHeight[f.Height]; ok && size > 0 && size < cur.FilesizeBytes {
				continue
			}
			byHeight[f.Height] = VideoOption{
				Quality:       fmt.Sprintf("%dp", f.Height),
				Height:        f.Height,
				FilesizeBytes: size,
				Filesize:      utils.FormatSize(size),
				FormatID:      f.FormatID,
				Ext:           f.Ext,
			}

		case !f.HasVideo() && f.HasAudio():
			lang := f.Language
			if lang == "" {
				lang = UnknownLanguage
			}
			if seenLang[lang] {
				continue
			}
			seenLang[lang] = true
			audioTracks = append(audioTracks, AudioTrack{Language: lang, FormatID: f.FormatID})
		}
	}

	qualities := make([]VideoOption, 0, len(byHeight))
	for _, opt := range byHeight {
		qualities = append(qualities, opt)
	}
	sort.Slice(qualities, func(i, j int) bool {
		return qualities[i].Height > qualities[j].Height
	})
	sort.Slice(audioTracks, func(i, j int) bool {
		return audioTracks[i].Language < audioTracks[j].Language
	})

	subtitles := make([]string, 0, len(info.Subtitles))
	for lang := range info.Subtitles {
		subtitles = append(subtitles, lang)
	}
	sort.Strings(subtitles)

	channel := info.Uploader
	if channel == "" {
		channel = info.Channel
	}

	return &Summary{
		Title:       info.Title,
		Thumbnail:   info.Thumbnail,
		Channel:     channel,
		Duration:    int64(info.Duration),
		Qualities:   qualities,
		AudioTracks: audioTracks,
		Subtitles:   subtitles,
	}
}
