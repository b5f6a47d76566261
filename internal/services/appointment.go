package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/therapulse-backend/internal/data/repos"
	types "github.com/yungbote/therapulse-backend/internal/domain"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

type AppointmentInput struct {
	PatientID uuid.UUID `json:"patient_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Duration  string    `json:"duration"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes"`
}

type AppointmentUpdate struct {
	Date     *string `json:"date"`
	Time     *string `json:"time"`
	Duration *string `json:"duration"`
	Type     *string `json:"type"`
	Status   *string `json:"status"`
	Notes    *string `json:"notes"`
}

type AppointmentService interface {
	Create(ctx context.Context, therapistID uuid.UUID, in AppointmentInput) (*types.Appointment, error)
	Get(ctx context.Context, therapistID, appointmentID uuid.UUID) (*types.Appointment, error)
	// List returns the therapist's appointments, optionally narrowed to one
	// calendar date (YYYY-MM-DD).
	List(ctx context.Context, therapistID uuid.UUID, date string) ([]*types.Appointment, error)
	Update(ctx context.Context, therapistID, appointmentID uuid.UUID, in AppointmentUpdate) (*types.Appointment, error)
	Delete(ctx context.Context, therapistID, appointmentID uuid.UUID) error
}

type appointmentService struct {
	log             *logger.Logger
	appointmentRepo repos.AppointmentRepo
	patientRepo     repos.PatientRepo
}

func NewAppointmentService(log *logger.Logger, appointmentRepo repos.AppointmentRepo, patientRepo repos.PatientRepo) AppointmentService {
	return &appointmentService{
		log:             log.With("service", "AppointmentService"),
		appointmentRepo: appointmentRepo,
		patientRepo:     patientRepo,
	}
}

func (as *appointmentService) Create(ctx context.Context, therapistID uuid.UUID, in AppointmentInput) (*types.Appointment, error) {
	if in.PatientID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient_id is required", ErrInvalidArgument)
	}
	if err := validateDate(in.Date); err != nil {
		return nil, err
	}
	if err := validateTime(in.Time); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Type) == "" {
		return nil, fmt.Errorf("%w: type is required", ErrInvalidArgument)
	}

	patient, err := as.patientRepo.GetByID(ctx, nil, therapistID, in.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = "scheduled"
	}
	duration := strings.TrimSpace(in.Duration)
	if duration == "" {
		duration = "60"
	}

	appointment := &types.Appointment{
		ID:          uuid.New(),
		TherapistID: therapistID,
		PatientID:   in.PatientID,
		Date:        strings.TrimSpace(in.Date),
		Time:        strings.TrimSpace(in.Time),
		Duration:    duration,
		Type:        strings.TrimSpace(in.Type),
		Status:      status,
		Notes:       strings.TrimSpace(in.Notes),
	}
	created, err := as.appointmentRepo.Create(ctx, nil, []*types.Appointment{appointment})
	if err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	return created[0], nil
}

func (as *appointmentService) Get(ctx context.Context, therapistID, appointmentID uuid.UUID) (*types.Appointment, error) {
	appointment, err := as.appointmentRepo.GetByID(ctx, nil, therapistID, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load appointment: %w", err)
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	return appointment, nil
}

func (as *appointmentService) List(ctx context.Context, therapistID uuid.UUID, date string) ([]*types.Appointment, error) {
	date = strings.TrimSpace(date)
	if date != "" {
		if err := validateDate(date); err != nil {
			return nil, err
		}
	}
	return as.appointmentRepo.ListByTherapist(ctx, nil, therapistID, date)
}

func (as *appointmentService) Update(ctx context.Context, therapistID, appointmentID uuid.UUID, in AppointmentUpdate) (*types.Appointment, error) {
	updates := map[string]any{}
	set := func(column string, v *string) {
		if v != nil {
			updates[column] = strings.TrimSpace(*v)
		}
	}
	if in.Date != nil {
		if err := validateDate(*in.Date); err != nil {
			return nil, err
		}
	}
	if in.Time != nil {
		if err := validateTime(*in.Time); err != nil {
			return nil, err
		}
	}
	set("date", in.Date)
	set("time", in.Time)
	set("duration", in.Duration)
	set("type", in.Type)
	set("status", in.Status)
	set("notes", in.Notes)

	ok, err := as.appointmentRepo.UpdateFields(ctx, nil, therapistID, appointmentID, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return as.Get(ctx, therapistID, appointmentID)
}

func (as *appointmentService) Delete(ctx context.Context, therapistID, appointmentID uuid.UUID) error {
	ok, err := as.appointmentRepo.Delete(ctx, nil, therapistID, appointmentID)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	if !ok {
		return ErrAppointmentNotFound
	}
	return nil
}

func validateDate(date string) error {
	date = strings.TrimSpace(date)
	if date == "" {
		return fmt.Errorf("%w: date is required", ErrInvalidArgument)
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD: %v", ErrInvalidArgument, err)
	}
	return nil
}

func validateTime(t string) error {
	t = strings.TrimSpace(t)
	if t == "" {
		return fmt.Errorf("%w: time is required", ErrInvalidArgument)
	}
	if _, err := time.Parse("15:04", t); err != nil {
		return fmt.Errorf("%w: time must be HH:MM: %v", ErrInvalidArgument, err)
	}
	return nil
}
