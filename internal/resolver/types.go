package resolver

// MediaInfo is the subset of the resolver's single-JSON probe output that the
// service consumes. Fields the resolver reports as null are left at their
// zero values.
type MediaInfo struct {
	Title     string                     `json:"title"`
	Thumbnail string                     `json:"thumbnail"`
	Uploader  string                     `json:"uploader"`
	Channel   string                     `json:"channel"`
	Duration  float64                    `json:"duration"`
	Formats   []Format                   `json:"formats"`
	Subtitles map[string][]SubtitleTrack `json:"subtitles"`
}

// Format describes one downloadable stream variant. A variant is video-only,
// audio-only, or muxed depending on which codec fields carry the "none"
// sentinel.
type Format struct {
	FormatID       string `json:"format_id"`
	Ext            string `json:"ext"`
	VCodec         string `json:"vcodec"`
	ACodec         string `json:"acodec"`
	Height         int    `json:"height"`
	Filesize       int64  `json:"filesize"`
	FilesizeApprox int64  `json:"filesize_approx"`
	Language       string `json:"language"`
}

// SubtitleTrack is one subtitle rendition for a language key.
type SubtitleTrack struct {
	Ext  string `json:"ext"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

// SubtitleFile is a subtitle artifact fetched into a job workspace, paired
// with the language it was requested under.
type SubtitleFile struct {
	Path     string
	Language string
}

// HasVideo reports whether the variant carries a video stream.
func (f Format) HasVideo() bool {
	return f.VCodec != "" && f.VCodec != "none"
}

// HasAudio reports whether the variant carries an audio stream.
func (f Format) HasAudio() bool {
	return f.ACodec != "" && f.ACodec != "none"
}

// Size returns the best available size estimate in bytes, zero when the
// resolver reported neither an exact nor an approximate size.
func (f Format) Size() int64 {
	if f.Filesize > 0 {
		return f.Filesize
	}
	if f.FilesizeApprox > 0 {
		return f.FilesizeApprox
	}
	return 0
}
