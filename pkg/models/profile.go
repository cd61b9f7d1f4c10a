package models

// EncodingProfile holds the encoding parameters for one export. CRF and
// VideoBitrate are mutually exclusive: a non-zero CRF wins and the bitrate
// must not be emitted alongside it.
type EncodingProfile struct {
	VideoCodec   string `json:"video_codec"`
	AudioCodec   string `json:"audio_codec"`
	AudioBitrate string `json:"audio_bitrate"`
	CRF          int    `json:"crf,omitempty"`
	VideoBitrate string `json:"video_bitrate,omitempty"`
	Preset       string `json:"preset"`
	Format       string `json:"format"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

// Quality constants
const (
	QualityHigh   = "high"
	QualityMedium = "medium"
	QualityLow    = "low"
)

// ValidQuality reports whether the quality name is one of the canned profiles
func ValidQuality(quality string) bool {
	switch quality {
	case QualityHigh, QualityMedium, QualityLow:
		return true
	}
	return false
}

// ProfileForQuality returns the canned encoding profile for a quality level.
// Unknown levels fall back to medium.
func ProfileForQuality(quality, format string) EncodingProfile {
	var p EncodingProfile

	switch quality {
	case QualityHigh:
		p = EncodingProfile{
			VideoCodec:   "libx264",
			AudioCodec:   "aac",
			AudioBitrate: "192k",
			CRF:          18,
			Preset:       "slow",
			Width:        1920,
			Height:       1080,
		}
	case QualityLow:
		p = EncodingProfile{
			VideoCodec:   "libx264",
			AudioCodec:   "aac",
			AudioBitrate: "96k",
			CRF:          28,
			Preset:       "fast",
			Width:        854,
			Height:       480,
		}
	default:
		p = EncodingProfile{
			VideoCodec:   "libx264",
			AudioCodec:   "aac",
			AudioBitrate: "128k",
			CRF:          23,
			Preset:       "medium",
			Width:        1280,
			Height:       720,
		}
	}

	p.Format = format
	if p.Format == "" {
		p.Format = FormatMP4
	}

	return p
}
