package media

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/echodeck/echodeck/pkg/models"
)

// ErrProbe is returned when a media file is unreadable or has no parseable duration
var ErrProbe = errors.New("media probe failed")

// ErrMissingInput is returned when a compose input file does not exist
var ErrMissingInput = errors.New("missing input file")

// FFmpeg wraps ffmpeg and ffprobe invocations
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpeg creates a new FFmpeg instance
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// ProgressCallback is called with encode progress updates (0-100)
type ProgressCallback func(progress float64)

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration returns a media file's runtime in seconds. Pure query, no
// side effects.
func (f *FFmpeg) ProbeDuration(ctx context.Context, mediaPath string) (float64, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		mediaPath,
	}

	cmd := exec.CommandContext(ctx, f.ffprobePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("%w: ffprobe %s: %v, stderr: %s", ErrProbe, mediaPath, err, stderr.String())
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return 0, fmt.Errorf("%w: parsing ffprobe output for %s: %v", ErrProbe, mediaPath, err)
	}

	duration, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s has no parseable duration", ErrProbe, mediaPath)
	}

	return duration, nil
}

// ComposeSlideVideo combines one still image and one audio clip into a video
// segment. The output duration equals the audio duration (the looped image
// stream is trimmed by -shortest), letterboxed to the profile resolution.
// Returns the segment duration in seconds.
func (f *FFmpeg) ComposeSlideVideo(ctx context.Context, imagePath, audioPath, outputPath string, profile models.EncodingProfile, progressCB ProgressCallback) (float64, error) {
	for _, path := range []string{imagePath, audioPath} {
		if _, err := os.Stat(path); err != nil {
			return 0, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
	}

	duration, err := f.ProbeDuration(ctx, audioPath)
	if err != nil {
		return 0, err
	}

	args := buildComposeArgs(imagePath, audioPath, outputPath, profile)

	if err := f.runWithProgress(ctx, args, duration, progressCB); err != nil {
		return 0, fmt.Errorf("slide video compose failed: %w", err)
	}

	return duration, nil
}

// buildComposeArgs builds the ffmpeg arguments for a single-slide compose
func buildComposeArgs(imagePath, audioPath, outputPath string, profile models.EncodingProfile) []string {
	width, height := profile.Width, profile.Height
	if width == 0 || height == 0 {
		width, height = 1920, 1080
	}

	args := []string{
		"-loop", "1",
		"-i", imagePath,
		"-i", audioPath,
		"-tune", "stillimage",
	}

	// Scale down to fit, then pad to exact target dimensions so aspect
	// ratio is never distorted.
	vf := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		width, height, width, height)
	args = append(args, "-vf", vf)

	args = append(args, encodingArgs(profile)...)

	// Audio stream is the shorter one; the looped image runs forever.
	args = append(args, "-shortest")

	args = append(args, "-progress", "pipe:1", "-y", outputPath)

	return args
}

// encodingArgs builds codec/quality arguments from a profile. CRF and
// explicit bitrate are mutually exclusive: CRF wins when set.
func encodingArgs(profile models.EncodingProfile) []string {
	videoCodec := profile.VideoCodec
	if videoCodec == "" {
		videoCodec = "libx264"
	}
	audioCodec := profile.AudioCodec
	if audioCodec == "" {
		audioCodec = "aac"
	}
	preset := profile.Preset
	if preset == "" {
		preset = "medium"
	}

	args := []string{
		"-c:v", videoCodec,
		"-preset", preset,
	}

	if profile.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(profile.CRF))
	} else if profile.VideoBitrate != "" {
		args = append(args, "-b:v", profile.VideoBitrate)
	}

	args = append(args, "-c:a", audioCodec)
	if profile.AudioBitrate != "" {
		args = append(args, "-b:a", profile.AudioBitrate)
	}

	args = append(args, "-pix_fmt", "yuv420p")

	return args
}

// Reencode re-encodes a single video to the target profile. Used for the
// single-segment path where no concatenation is needed.
func (f *FFmpeg) Reencode(ctx context.Context, inputPath, outputPath string, profile models.EncodingProfile, progressCB ProgressCallback) error {
	duration, err := f.ProbeDuration(ctx, inputPath)
	if err != nil {
		return err
	}

	args := []string{"-i", inputPath}
	args = append(args, encodingArgs(profile)...)
	args = append(args, "-progress", "pipe:1", "-y", outputPath)

	if err := f.runWithProgress(ctx, args, duration, progressCB); err != nil {
		return fmt.Errorf("re-encode failed: %w", err)
	}

	return nil
}

// ConcatDemuxer concatenates segments via ffmpeg's concat demuxer (file
// list), re-encoding once to the target profile.
func (f *FFmpeg) ConcatDemuxer(ctx context.Context, inputPaths []string, outputPath string, profile models.EncodingProfile, progressCB ProgressCallback) error {
	if len(inputPaths) < 2 {
		return fmt.Errorf("at least 2 segments are required for concatenation")
	}

	concatFile, err := writeConcatFile(inputPaths)
	if err != nil {
		return fmt.Errorf("failed to create concat file: %w", err)
	}
	defer os.Remove(concatFile)

	var total float64
	for _, input := range inputPaths {
		d, err := f.ProbeDuration(ctx, input)
		if err != nil {
			return err
		}
		total += d
	}

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", concatFile,
	}
	args = append(args, encodingArgs(profile)...)
	args = append(args, "-progress", "pipe:1", "-y", outputPath)

	if err := f.runWithProgress(ctx, args, total, progressCB); err != nil {
		return fmt.Errorf("concatenation failed: %w", err)
	}

	return nil
}

// RunFilterGraph runs a filter-complex graph over the given inputs, mapping
// the graph's video and audio output pads into the output file.
func (f *FFmpeg) RunFilterGraph(ctx context.Context, inputPaths []string, graph *Graph, outputPath string, profile models.EncodingProfile, totalDuration float64, progressCB ProgressCallback) error {
	args := []string{}
	for _, input := range inputPaths {
		args = append(args, "-i", input)
	}

	args = append(args, "-filter_complex", graph.Serialize())
	args = append(args,
		"-map", graph.VideoOut().Ref(),
		"-map", graph.AudioOut().Ref(),
	)
	args = append(args, encodingArgs(profile)...)
	args = append(args, "-progress", "pipe:1", "-y", outputPath)

	if err := f.runWithProgress(ctx, args, totalDuration, progressCB); err != nil {
		return fmt.Errorf("filter graph encode failed: %w", err)
	}

	return nil
}

// GenerateSilence writes a silent audio file of the given duration, used as
// inter-clip padding when combining narration.
func (f *FFmpeg) GenerateSilence(ctx context.Context, outputPath string, seconds float64) error {
	args := []string{
		"-f", "lavfi",
		"-i", "anullsrc=r=44100:cl=stereo",
		"-t", fmt.Sprintf("%.3f", seconds),
		"-y", outputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("silence generation failed: %w, stderr: %s", err, stderr.String())
	}

	return nil
}

// ConcatAudio concatenates audio clips via the concat demuxer without
// re-encoding concerns beyond the container default.
func (f *FFmpeg) ConcatAudio(ctx context.Context, inputPaths []string, outputPath string) error {
	concatFile, err := writeConcatFile(inputPaths)
	if err != nil {
		return fmt.Errorf("failed to create concat file: %w", err)
	}
	defer os.Remove(concatFile)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", concatFile,
		"-y", outputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("audio concatenation failed: %w, stderr: %s", err, stderr.String())
	}

	return nil
}

// writeConcatFile creates a text file listing inputs for the concat demuxer
func writeConcatFile(inputs []string) (string, error) {
	tempFile, err := os.CreateTemp("", "concat_*.txt")
	if err != nil {
		return "", err
	}
	defer tempFile.Close()

	for _, input := range inputs {
		absPath, err := filepath.Abs(input)
		if err != nil {
			return "", err
		}

		// Format: file '/path/to/file.mp4'
		if _, err := tempFile.WriteString(fmt.Sprintf("file '%s'\n", absPath)); err != nil {
			return "", err
		}
	}

	return tempFile.Name(), nil
}

var progressRegex = regexp.MustCompile(`out_time_ms=(\d+)`)

// runWithProgress runs ffmpeg, parsing `-progress pipe:1` output into
// percentage callbacks against the known total duration.
func (f *FFmpeg) runWithProgress(ctx context.Context, args []string, totalDuration float64, progressCB ProgressCallback) error {
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := scanner.Text()
			if matches := progressRegex.FindStringSubmatch(line); len(matches) > 1 {
				if timeMs, err := strconv.ParseFloat(matches[1], 64); err == nil {
					currentTime := timeMs / 1000000.0 // out_time_ms is microseconds
					if totalDuration > 0 {
						progress := (currentTime / totalDuration) * 100
						if progress > 100 {
							progress = 100
						}
						if progressCB != nil {
							progressCB(progress)
						}
					}
				}
			}
		}
	}()

	// Capture stderr for error reporting
	var stderrBuf bytes.Buffer
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			stderrBuf.WriteString(scanner.Text() + "\n")
		}
	}()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderrBuf.String())
	}

	// Final progress update
	if progressCB != nil {
		progressCB(100)
	}

	return nil
}
