package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/therapulse-backend/internal/clients/gcp"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

// EmotionLabels is the fixed label set every classification maps onto.
var EmotionLabels = []string{"angry", "disgust", "fear", "happy", "neutral", "sad", "surprise"}

// DefaultFrameSamples is how many frames Sample classifies when the caller
// passes n <= 0.
const DefaultFrameSamples = 5

// FaceClassifier classifies a single frame image.
type FaceClassifier interface {
	ClassifyFrame(ctx context.Context, img []byte) (gcp.FaceEmotion, error)
}

// EmotionPoint is one sampled frame on the session timeline.
type EmotionPoint struct {
	TimeSeconds float64 `json:"time_seconds"`
	Label       string  `json:"label"`
	Confidence  float64 `json:"confidence"`
	FaceFound   bool    `json:"face_found"`
}

// EmotionTimeline is the classified sequence plus its normalized label
// distribution.
type EmotionTimeline struct {
	Points       []EmotionPoint     `json:"points"`
	Distribution map[string]float64 `json:"distribution"`
	Dominant     string             `json:"dominant"`
}

type EmotionService interface {
	// Sample classifies n evenly spaced frames across the video. A source
	// that probes to zero fps yields the empty timeline, not an error. A
	// frame that fails to extract or classify is skipped from both the
	// points and the distribution.
	Sample(ctx context.Context, videoPath string, n int) (EmotionTimeline, error)
}

type emotionService struct {
	log        *logger.Logger
	classifier FaceClassifier
	media      MediaToolsService
	workers    int
}

func NewEmotionService(log *logger.Logger, classifier FaceClassifier, media MediaToolsService) EmotionService {
	return &emotionService{
		log:        log.With("service", "EmotionService"),
		classifier: classifier,
		media:      media,
		workers:    4,
	}
}

func (es *emotionService) Sample(ctx context.Context, videoPath string, n int) (EmotionTimeline, error) {
	if n <= 0 {
		n = DefaultFrameSamples
	}

	probe, err := es.media.ProbeVideo(ctx, videoPath)
	if err != nil {
		return EmotionTimeline{}, Wrap(ErrEmotionAnalysisFailed, err)
	}
	if probe.FPS == 0 {
		return emptyTimeline(), nil
	}
	duration := float64(probe.FrameCount) / probe.FPS
	if duration <= 0 {
		return emptyTimeline(), nil
	}

	scratch, cleanup, err := es.media.ScratchDir(ctx, "frames")
	if err != nil {
		return EmotionTimeline{}, Wrap(ErrEmotionAnalysisFailed, err)
	}
	defer cleanup()

	// Midpoint sampling: frame i sits at (i+0.5)/n of the duration, so the
	// n timestamps are evenly spaced and stay inside [0, duration].
	results := make([]*EmotionPoint, n)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(es.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			ts := duration * (float64(i) + 0.5) / float64(n)
			point, ok := es.classifyAt(gctx, videoPath, scratch, i, ts)
			if !ok {
				return nil
			}
			mu.Lock()
			results[i] = &point
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return EmotionTimeline{}, Wrap(ErrEmotionAnalysisFailed, err)
	}

	points := make([]EmotionPoint, 0, n)
	for _, p := range results {
		if p != nil {
			points = append(points, *p)
		}
	}

	return EmotionTimeline{
		Points:       points,
		Distribution: distribution(points),
		Dominant:     dominant(points),
	}, nil
}

// classifyAt extracts and classifies one frame. Failures are logged and the
// frame is dropped so a single bad frame never sinks the batch.
func (es *emotionService) classifyAt(ctx context.Context, videoPath, scratch string, idx int, ts float64) (EmotionPoint, bool) {
	framePath := filepath.Join(scratch, fmt.Sprintf("frame_%06d.jpg", idx))
	if _, err := es.media.ExtractFrameAt(ctx, videoPath, ts, framePath); err != nil {
		es.log.Warn("Skipping frame, extraction failed", "index", idx, "timestamp", ts, "error", err)
		return EmotionPoint{}, false
	}
	data, err := os.ReadFile(framePath)
	if err != nil {
		es.log.Warn("Skipping frame, unreadable", "index", idx, "error", err)
		return EmotionPoint{}, false
	}
	emotion, err := es.classifier.ClassifyFrame(ctx, data)
	if err != nil {
		es.log.Warn("Skipping frame, classification failed", "index", idx, "error", err)
		return EmotionPoint{}, false
	}
	return EmotionPoint{
		TimeSeconds: ts,
		Label:       emotion.Label,
		Confidence:  emotion.Confidence,
		FaceFound:   emotion.FaceFound,
	}, true
}

func emptyTimeline() EmotionTimeline {
	return EmotionTimeline{
		Points:       []EmotionPoint{},
		Distribution: emptyDistribution(),
		Dominant:     "neutral",
	}
}

func emptyDistribution() map[string]float64 {
	dist := make(map[string]float64, len(EmotionLabels))
	for _, label := range EmotionLabels {
		dist[label] = 0
	}
	return dist
}

// distribution normalizes label counts over the fixed label set. Labels
// outside the set are dropped rather than invented.
func distribution(points []EmotionPoint) map[string]float64 {
	dist := emptyDistribution()
	total := 0
	for _, p := range points {
		if _, ok := dist[p.Label]; !ok {
			continue
		}
		dist[p.Label]++
		total++
	}
	if total == 0 {
		return dist
	}
	for label := range dist {
		dist[label] = dist[label] / float64(total)
	}
	return dist
}

func dominant(points []EmotionPoint) string {
	counts := map[string]int{}
	for _, p := range points {
		counts[p.Label]++
	}
	if len(counts) == 0 {
		return "neutral"
	}
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	// Sort for a deterministic winner on ties.
	sort.Strings(labels)
	best := labels[0]
	for _, label := range labels[1:] {
		if counts[label] > counts[best] {
			best = label
		}
	}
	return best
}
