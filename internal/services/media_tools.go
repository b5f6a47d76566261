package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

// MediaToolsService is the glue around system binaries:
//
// REQUIRED BINARIES in worker runtime:
// - ffmpeg for video -> audio and frame extraction
// - ffprobe for stream metadata
//
// This service is synchronous and deterministic, but should be called from
// worker jobs, not request handlers.
type MediaToolsService interface {
	AssertReady(ctx context.Context) error

	// ProbeVideo reads duration and frame rate. A source that ffprobe
	// reports zero fps for yields an empty probe rather than an error.
	ProbeVideo(ctx context.Context, videoPath string) (VideoProbe, error)
	ExtractAudio(ctx context.Context, videoPath string, outPath string, opts AudioExtractOptions) (string, error)
	// ExtractFrameAt grabs the single frame closest to the given timestamp.
	ExtractFrameAt(ctx context.Context, videoPath string, atSeconds float64, outPath string) (string, error)
	ExtractThumbnail(ctx context.Context, videoPath string, outPath string) (string, error)

	WriteTempFile(ctx context.Context, data []byte, suffix string) (string, func(), error)
	ScratchDir(ctx context.Context, label string) (string, func(), error)
}

type VideoProbe struct {
	DurationSeconds float64
	FPS             float64
	FrameCount      int
}

type AudioExtractOptions struct {
	SampleRateHz int // e.g., 16000
	Channels     int // 1
}

type mediaToolsService struct {
	log *logger.Logger

	ffmpegPath  string
	ffprobePath string

	workRoot string

	defaultTimeout time.Duration
}

func NewMediaToolsService(log *logger.Logger) MediaToolsService {
	slog := log.With("service", "MediaToolsService")
	return &mediaToolsService{
		log:            slog,
		ffmpegPath:     "ffmpeg",
		ffprobePath:    "ffprobe",
		workRoot:       "/tmp/therapulse-media",
		defaultTimeout: 10 * time.Minute,
	}
}

func (m *mediaToolsService) AssertReady(ctx context.Context) error {
	for _, bin := range []string{m.ffmpegPath, m.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return fmt.Errorf("create workRoot: %w", err)
	}
	return nil
}

func (m *mediaToolsService) WriteTempFile(ctx context.Context, data []byte, suffix string) (string, func(), error) {
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("mkdir workRoot: %w", err)
	}
	h := sha256.Sum256(data)
	base := hex.EncodeToString(h[:])[:16]
	if suffix != "" && !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	path := filepath.Join(m.workRoot, fmt.Sprintf("%s%s", base, suffix))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", func() {}, fmt.Errorf("write temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(path) }
	return path, cleanup, nil
}

// ScratchDir creates a per-run working directory; the cleanup func removes it
// and everything under it.
func (m *mediaToolsService) ScratchDir(ctx context.Context, label string) (string, func(), error) {
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("mkdir workRoot: %w", err)
	}
	dir, err := os.MkdirTemp(m.workRoot, label+"-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("mkdir scratch dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	return dir, cleanup, nil
}

func (m *mediaToolsService) ProbeVideo(ctx context.Context, videoPath string) (VideoProbe, error) {
	ctx = defaultCtx(ctx)
	if videoPath == "" {
		return VideoProbe{}, fmt.Errorf("videoPath required")
	}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=avg_frame_rate,nb_frames:format=duration",
		"-of", "json",
		videoPath,
	}
	cmd := exec.CommandContext(ctx, m.ffprobePath, args...)
	out, err := cmd.Output()
	if err != nil {
		return VideoProbe{}, fmt.Errorf("ffprobe failed: %w", err)
	}

	var parsed struct {
		Streams []struct {
			AvgFrameRate string `json:"avg_frame_rate"`
			NBFrames     string `json:"nb_frames"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return VideoProbe{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return VideoProbe{}, nil
	}

	fps := parseFrameRate(parsed.Streams[0].AvgFrameRate)
	if fps == 0 {
		return VideoProbe{}, nil
	}
	duration, _ := strconv.ParseFloat(parsed.Format.Duration, 64)
	frames, _ := strconv.Atoi(parsed.Streams[0].NBFrames)
	if frames == 0 && duration > 0 {
		frames = int(duration * fps)
	}
	return VideoProbe{
		DurationSeconds: duration,
		FPS:             fps,
		FrameCount:      frames,
	}, nil
}

// parseFrameRate handles ffprobe's rational form ("30000/1001") and plain
// decimals. Malformed or zero-denominator inputs yield 0.
func parseFrameRate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		return n / d
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func (m *mediaToolsService) ExtractAudio(ctx context.Context, videoPath string, outPath string, opts AudioExtractOptions) (string, error) {
	ctx = defaultCtx(ctx)
	if videoPath == "" {
		return "", fmt.Errorf("videoPath required")
	}
	if outPath == "" {
		return "", fmt.Errorf("outPath required")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir outPath dir: %w", err)
	}

	sr := opts.SampleRateHz
	if sr <= 0 {
		sr = 16000
	}
	ch := opts.Channels
	if ch <= 0 {
		ch = 1
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	// ffmpeg -i in.mp4 -vn -ac 1 -ar 16000 -f wav out.wav
	args := []string{
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", strconv.Itoa(ch),
		"-ar", strconv.Itoa(sr),
		"-f", "wav",
		outPath,
	}
	cmd := exec.CommandContext(ctx, m.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg extract audio failed: %w; out=%s", err, string(out))
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("audio output missing at %s", outPath)
	}
	return outPath, nil
}

func (m *mediaToolsService) ExtractFrameAt(ctx context.Context, videoPath string, atSeconds float64, outPath string) (string, error) {
	ctx = defaultCtx(ctx)
	if videoPath == "" {
		return "", fmt.Errorf("videoPath required")
	}
	if outPath == "" {
		return "", fmt.Errorf("outPath required")
	}
	if atSeconds < 0 {
		atSeconds = 0
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir outPath dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	// -ss before -i seeks on keyframes, which is close enough for sampling
	// and much faster than decoding up to the timestamp.
	args := []string{
		"-y",
		"-ss", strconv.FormatFloat(atSeconds, 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "3",
		outPath,
	}
	cmd := exec.CommandContext(ctx, m.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg frame at %.3fs failed: %w; out=%s", atSeconds, err, string(out))
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("frame output missing at %s", outPath)
	}
	return outPath, nil
}

func (m *mediaToolsService) ExtractThumbnail(ctx context.Context, videoPath string, outPath string) (string, error) {
	ctx = defaultCtx(ctx)
	if videoPath == "" {
		return "", fmt.Errorf("videoPath required")
	}
	if outPath == "" {
		return "", fmt.Errorf("outPath required")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir outPath dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	args := []string{
		"-y",
		"-ss", "1",
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "3",
		outPath,
	}
	cmd := exec.CommandContext(ctx, m.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg thumbnail failed: %w; out=%s", err, string(out))
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("thumbnail output missing at %s", outPath)
	}
	return outPath, nil
}

func defaultCtx(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
