package gcp

import (
	"testing"

	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
)

func TestEmotionFromFacesNoFace(t *testing.T) {
	got := emotionFromFaces(nil)
	if got.FaceFound {
		t.Fatal("FaceFound set with no annotations")
	}
	if got.Label != "neutral" {
		t.Fatalf("expected neutral fallback, got %q", got.Label)
	}
}

func TestEmotionFromFacesDominantExpression(t *testing.T) {
	faces := []*visionpb.FaceAnnotation{{
		JoyLikelihood:       visionpb.Likelihood_VERY_LIKELY,
		SorrowLikelihood:    visionpb.Likelihood_UNLIKELY,
		AngerLikelihood:     visionpb.Likelihood_VERY_UNLIKELY,
		SurpriseLikelihood:  visionpb.Likelihood_POSSIBLE,
		DetectionConfidence: 0.9,
	}}
	got := emotionFromFaces(faces)
	if !got.FaceFound {
		t.Fatal("FaceFound not set")
	}
	if got.Label != "happy" {
		t.Fatalf("expected happy, got %q", got.Label)
	}
	want := 0.95 * 0.9
	if got.Confidence < want-0.0001 || got.Confidence > want+0.0001 {
		t.Fatalf("confidence %v, want %v", got.Confidence, want)
	}
}

func TestEmotionFromFacesWeakSignalsReadNeutral(t *testing.T) {
	faces := []*visionpb.FaceAnnotation{{
		JoyLikelihood:       visionpb.Likelihood_UNLIKELY,
		SorrowLikelihood:    visionpb.Likelihood_VERY_UNLIKELY,
		AngerLikelihood:     visionpb.Likelihood_VERY_UNLIKELY,
		SurpriseLikelihood:  visionpb.Likelihood_VERY_UNLIKELY,
		DetectionConfidence: 1,
	}}
	got := emotionFromFaces(faces)
	if got.Label != "neutral" {
		t.Fatalf("expected neutral below POSSIBLE, got %q", got.Label)
	}
}
