package media

import (
	"github.com/echodeck/echodeck/internal/logging"
	"github.com/echodeck/echodeck/pkg/models"
)

// containerCodecs lists the video codecs each container can carry. A codec
// outside its container's list gets substituted before any encode runs.
var containerCodecs = map[string][]string{
	models.FormatMP4: {"libx264", "libx265", "h264", "hevc"},
	models.FormatMOV: {"libx264", "libx265", "h264", "hevc", "prores"},
	models.FormatAVI: {"mpeg4", "msmpeg4v3", "libxvid", "mjpeg"},
}

// containerFallbacks holds the known-safe codec pair per container
var containerFallbacks = map[string]struct {
	video string
	audio string
}{
	models.FormatMP4: {video: "libx264", audio: "aac"},
	models.FormatMOV: {video: "libx264", audio: "aac"},
	models.FormatAVI: {video: "mpeg4", audio: "mp3"},
}

// containerAudioCodecs lists the audio codecs each container can carry
var containerAudioCodecs = map[string][]string{
	models.FormatMP4: {"aac", "mp3", "libmp3lame"},
	models.FormatMOV: {"aac", "mp3", "libmp3lame", "pcm_s16le"},
	models.FormatAVI: {"mp3", "libmp3lame", "ac3", "pcm_s16le"},
}

// ValidateProfile checks codec/container compatibility and substitutes the
// container's fallback pair on mismatch, logging a warning. A compatible
// profile passes through unchanged, so running the output through again is
// a no-op.
func ValidateProfile(profile models.EncodingProfile, logger *logging.Logger) models.EncodingProfile {
	format := profile.Format
	if _, ok := containerCodecs[format]; !ok {
		logger.WithField("format", format).
			Warn("Unknown container format, falling back to mp4")
		format = models.FormatMP4
		profile.Format = format
	}

	fallback := containerFallbacks[format]

	if !contains(containerCodecs[format], profile.VideoCodec) {
		logger.WithField("format", format).
			WithField("video_codec", profile.VideoCodec).
			WithField("fallback", fallback.video).
			Warn("Video codec incompatible with container, substituting fallback")
		profile.VideoCodec = fallback.video
	}

	if !contains(containerAudioCodecs[format], profile.AudioCodec) {
		logger.WithField("format", format).
			WithField("audio_codec", profile.AudioCodec).
			WithField("fallback", fallback.audio).
			Warn("Audio codec incompatible with container, substituting fallback")
		profile.AudioCodec = fallback.audio
	}

	return profile
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
