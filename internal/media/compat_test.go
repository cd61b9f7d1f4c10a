package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echodeck/echodeck/internal/logging"
	"github.com/echodeck/echodeck/pkg/models"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewDefaultLogger()
	require.NoError(t, err)
	return logger
}

func TestValidateProfileCompatiblePassesThrough(t *testing.T) {
	logger := testLogger(t)

	profile := models.ProfileForQuality(models.QualityHigh, models.FormatMP4)
	validated := ValidateProfile(profile, logger)

	assert.Equal(t, profile, validated)
}

func TestValidateProfileSubstitutesAVIFallback(t *testing.T) {
	logger := testLogger(t)

	// libx264/aac is not valid inside an AVI container
	profile := models.ProfileForQuality(models.QualityMedium, models.FormatAVI)
	validated := ValidateProfile(profile, logger)

	assert.Equal(t, "mpeg4", validated.VideoCodec)
	assert.Equal(t, "mp3", validated.AudioCodec)
	assert.Equal(t, models.FormatAVI, validated.Format)
	// Quality knobs are preserved across the substitution
	assert.Equal(t, profile.CRF, validated.CRF)
	assert.Equal(t, profile.Preset, validated.Preset)
}

func TestValidateProfileIdempotent(t *testing.T) {
	logger := testLogger(t)

	profile := models.ProfileForQuality(models.QualityLow, models.FormatAVI)
	once := ValidateProfile(profile, logger)
	twice := ValidateProfile(once, logger)

	assert.Equal(t, once, twice)
}

func TestValidateProfileUnknownContainer(t *testing.T) {
	logger := testLogger(t)

	profile := models.ProfileForQuality(models.QualityMedium, "mkv")
	validated := ValidateProfile(profile, logger)

	assert.Equal(t, models.FormatMP4, validated.Format)
	assert.Equal(t, "libx264", validated.VideoCodec)
	assert.Equal(t, "aac", validated.AudioCodec)
}
