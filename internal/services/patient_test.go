package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestPatientListRequiresStatus(t *testing.T) {
	svc := NewPatientService(nil, testLogger(t), &fakePatientRepo{}, nil, nil)

	_, err := svc.List(context.Background(), uuid.New(), "   ")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("listing without a status must be an invalid argument, got %v", err)
	}

	if _, err := svc.List(context.Background(), uuid.New(), "active"); err != nil {
		t.Fatalf("List with status: %v", err)
	}
}

func TestPatientCreateValidation(t *testing.T) {
	svc := NewPatientService(nil, testLogger(t), &fakePatientRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), uuid.New(), PatientInput{})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty input must be an invalid argument, got %v", err)
	}
}
