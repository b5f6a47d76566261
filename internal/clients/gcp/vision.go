package gcp

import (
	"context"
	"fmt"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

// FaceEmotion is the outcome of classifying a single video frame.
type FaceEmotion struct {
	// Label is one of: angry, disgust, fear, happy, neutral, sad, surprise.
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	FaceFound  bool    `json:"face_found"`
}

type VisionService interface {
	// ClassifyFrame runs face detection on one image and maps the strongest
	// expression likelihood onto the fixed emotion label set. Frames with no
	// detectable face come back neutral with FaceFound=false.
	ClassifyFrame(ctx context.Context, img []byte) (FaceEmotion, error)
	Close() error
}

type visionService struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

func NewVisionService(log *logger.Logger) (VisionService, error) {
	serviceLog := log.With("service", "VisionService")

	ctx := context.Background()
	client, err := vision.NewImageAnnotatorClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}

	return &visionService{log: serviceLog, client: client}, nil
}

func (vs *visionService) ClassifyFrame(ctx context.Context, img []byte) (FaceEmotion, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: img},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_FACE_DETECTION, MaxResults: 1},
		},
	}
	br := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{req}}
	resp, err := vs.client.BatchAnnotateImages(ctx, br)
	if err != nil {
		return FaceEmotion{}, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return FaceEmotion{Label: "neutral", Confidence: 0, FaceFound: false}, nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return FaceEmotion{}, fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}
	return emotionFromFaces(r0.FaceAnnotations), nil
}

// emotionFromFaces maps the first face annotation onto the emotion label set.
// No face reads as neutral with FaceFound unset rather than an error.
func emotionFromFaces(faces []*visionpb.FaceAnnotation) FaceEmotion {
	if len(faces) == 0 || faces[0] == nil {
		return FaceEmotion{Label: "neutral", Confidence: 0, FaceFound: false}
	}
	face := faces[0]
	label, score := dominantExpression(face)
	return FaceEmotion{
		Label:      label,
		Confidence: score * float64(face.DetectionConfidence),
		FaceFound:  true,
	}
}

// dominantExpression picks the strongest of the four expression likelihoods
// the API exposes. Anything below POSSIBLE across the board reads as neutral.
func dominantExpression(face *visionpb.FaceAnnotation) (string, float64) {
	type candidate struct {
		label      string
		likelihood visionpb.Likelihood
	}
	candidates := []candidate{
		{"happy", face.JoyLikelihood},
		{"sad", face.SorrowLikelihood},
		{"angry", face.AngerLikelihood},
		{"surprise", face.SurpriseLikelihood},
	}

	best := candidate{label: "neutral", likelihood: visionpb.Likelihood_UNKNOWN}
	for _, c := range candidates {
		if c.likelihood > best.likelihood {
			best = c
		}
	}
	if best.likelihood < visionpb.Likelihood_POSSIBLE {
		return "neutral", likelihoodScore(best.likelihood)
	}
	return best.label, likelihoodScore(best.likelihood)
}

func likelihoodScore(l visionpb.Likelihood) float64 {
	switch l {
	case visionpb.Likelihood_VERY_UNLIKELY:
		return 0.1
	case visionpb.Likelihood_UNLIKELY:
		return 0.3
	case visionpb.Likelihood_POSSIBLE:
		return 0.5
	case visionpb.Likelihood_LIKELY:
		return 0.75
	case visionpb.Likelihood_VERY_LIKELY:
		return 0.95
	default:
		return 0
	}
}

func (vs *visionService) Close() error {
	return vs.client.Close()
}
