package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/therapulse-backend/internal/clients/gcp"
	"github.com/yungbote/therapulse-backend/internal/data/repos"
	types "github.com/yungbote/therapulse-backend/internal/domain"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

// PatientInput is the create/update payload for a patient record. On update,
// nil pointers leave the column untouched.
type PatientInput struct {
	Name                 *string         `json:"name"`
	Age                  *int            `json:"age"`
	Gender               *string         `json:"gender"`
	Status               *string         `json:"status"`
	Address              *string         `json:"address"`
	MedicalHistory       *string         `json:"medical_history"`
	FamilyHistory        *string         `json:"family_history"`
	PresentingProblem    *string         `json:"presenting_problem"`
	ClinicalObservations *string         `json:"clinical_observations"`
	Assessment           *string         `json:"assessment"`
	Diagnosis            *string         `json:"diagnosis"`
	TreatmentPlan        *string         `json:"treatment_plan"`
	Medications          *string         `json:"medications"`
	Lifestyle            *string         `json:"lifestyle"`
	ContactDetails       json.RawMessage `json:"contact_details"`
	EmergencyContact     json.RawMessage `json:"emergency_contact"`
}

type PatientService interface {
	Create(ctx context.Context, therapistID uuid.UUID, in PatientInput) (*types.Patient, error)
	// Get returns the patient with sessions and documents preloaded.
	Get(ctx context.Context, therapistID, patientID uuid.UUID) (*types.Patient, error)
	List(ctx context.Context, therapistID uuid.UUID, status string) ([]*types.Patient, error)
	Update(ctx context.Context, therapistID, patientID uuid.UUID, in PatientInput) (*types.Patient, error)
	// Delete removes the patient row and its stored files.
	Delete(ctx context.Context, therapistID, patientID uuid.UUID) error

	UploadDocument(ctx context.Context, therapistID, patientID uuid.UUID, title, filename string, data []byte) (*types.Document, error)
	DeleteDocument(ctx context.Context, therapistID, patientID, documentID uuid.UUID) error
}

type patientService struct {
	db           *gorm.DB
	log          *logger.Logger
	patientRepo  repos.PatientRepo
	documentRepo repos.DocumentRepo
	bucket       gcp.BucketService
}

func NewPatientService(
	db *gorm.DB,
	log *logger.Logger,
	patientRepo repos.PatientRepo,
	documentRepo repos.DocumentRepo,
	bucket gcp.BucketService,
) PatientService {
	return &patientService{
		db:           db,
		log:          log.With("service", "PatientService"),
		patientRepo:  patientRepo,
		documentRepo: documentRepo,
		bucket:       bucket,
	}
}

func (ps *patientService) Create(ctx context.Context, therapistID uuid.UUID, in PatientInput) (*types.Patient, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	if in.Age == nil || *in.Age <= 0 {
		return nil, fmt.Errorf("%w: age is required", ErrInvalidArgument)
	}
	if in.Gender == nil || strings.TrimSpace(*in.Gender) == "" {
		return nil, fmt.Errorf("%w: gender is required", ErrInvalidArgument)
	}

	status := "active"
	if in.Status != nil && strings.TrimSpace(*in.Status) != "" {
		status = strings.TrimSpace(*in.Status)
	}

	patient := &types.Patient{
		ID:               uuid.New(),
		TherapistID:      therapistID,
		Name:             strings.TrimSpace(*in.Name),
		Age:              *in.Age,
		Gender:           strings.TrimSpace(*in.Gender),
		Status:           status,
		ContactDetails:   jsonOrEmpty(in.ContactDetails),
		EmergencyContact: jsonOrEmpty(in.EmergencyContact),
	}
	applyOptionalStrings(patient, in)

	created, err := ps.patientRepo.Create(ctx, nil, []*types.Patient{patient})
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	return created[0], nil
}

func applyOptionalStrings(p *types.Patient, in PatientInput) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&p.Address, in.Address)
	set(&p.MedicalHistory, in.MedicalHistory)
	set(&p.FamilyHistory, in.FamilyHistory)
	set(&p.PresentingProblem, in.PresentingProblem)
	set(&p.ClinicalObservations, in.ClinicalObservations)
	set(&p.Assessment, in.Assessment)
	set(&p.Diagnosis, in.Diagnosis)
	set(&p.TreatmentPlan, in.TreatmentPlan)
	set(&p.Medications, in.Medications)
	set(&p.Lifestyle, in.Lifestyle)
}

func jsonOrEmpty(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 {
		return datatypes.JSON([]byte(`{}`))
	}
	return datatypes.JSON(raw)
}

func (ps *patientService) Get(ctx context.Context, therapistID, patientID uuid.UUID) (*types.Patient, error) {
	patient, err := ps.patientRepo.GetByID(ctx, nil, therapistID, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}
	return patient, nil
}

func (ps *patientService) List(ctx context.Context, therapistID uuid.UUID, status string) ([]*types.Patient, error) {
	// Status is a required filter; listing without one is a caller mistake.
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, fmt.Errorf("%w: status query parameter is required", ErrInvalidArgument)
	}
	return ps.patientRepo.ListByTherapist(ctx, nil, therapistID, status)
}

func (ps *patientService) Update(ctx context.Context, therapistID, patientID uuid.UUID, in PatientInput) (*types.Patient, error) {
	updates := map[string]any{}
	setStr := func(column string, v *string) {
		if v != nil {
			updates[column] = strings.TrimSpace(*v)
		}
	}
	setStr("name", in.Name)
	setStr("gender", in.Gender)
	setStr("status", in.Status)
	setStr("address", in.Address)
	setStr("medical_history", in.MedicalHistory)
	setStr("family_history", in.FamilyHistory)
	setStr("presenting_problem", in.PresentingProblem)
	setStr("clinical_observations", in.ClinicalObservations)
	setStr("assessment", in.Assessment)
	setStr("diagnosis", in.Diagnosis)
	setStr("treatment_plan", in.TreatmentPlan)
	setStr("medications", in.Medications)
	setStr("lifestyle", in.Lifestyle)
	if in.Age != nil {
		updates["age"] = *in.Age
	}
	if len(in.ContactDetails) > 0 {
		updates["contact_details"] = datatypes.JSON(in.ContactDetails)
	}
	if len(in.EmergencyContact) > 0 {
		updates["emergency_contact"] = datatypes.JSON(in.EmergencyContact)
	}

	ok, err := ps.patientRepo.UpdateFields(ctx, nil, therapistID, patientID, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	if !ok {
		return nil, ErrPatientNotFound
	}
	return ps.Get(ctx, therapistID, patientID)
}

func (ps *patientService) Delete(ctx context.Context, therapistID, patientID uuid.UUID) error {
	patient, err := ps.patientRepo.GetByID(ctx, nil, therapistID, patientID)
	if err != nil {
		return fmt.Errorf("failed to load patient: %w", err)
	}
	if patient == nil {
		return ErrPatientNotFound
	}

	if err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := ps.patientRepo.Delete(ctx, tx, therapistID, patientID)
		if err != nil {
			return fmt.Errorf("failed to delete patient: %w", err)
		}
		if !ok {
			return ErrPatientNotFound
		}
		return nil
	}); err != nil {
		return err
	}

	// Stored media is best-effort cleanup after the row is gone.
	for _, doc := range patient.Documents {
		if doc.StorageKey != "" {
			if err := ps.bucket.DeleteFile(ctx, gcp.BucketCategoryDocument, doc.StorageKey); err != nil {
				ps.log.Warn("Failed to delete patient document from storage", "error", err)
			}
		}
	}
	for _, session := range patient.Sessions {
		if session.VideoKey != "" {
			if err := ps.bucket.DeleteFile(ctx, gcp.BucketCategoryMedia, session.VideoKey); err != nil {
				ps.log.Warn("Failed to delete session video from storage", "error", err)
			}
		}
	}
	return nil
}

func (ps *patientService) UploadDocument(ctx context.Context, therapistID, patientID uuid.UUID, title, filename string, data []byte) (*types.Document, error) {
	patient, err := ps.patientRepo.GetByID(ctx, nil, therapistID, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	}

	key := fmt.Sprintf("documents/%s/%s%s", patientID, uuid.NewString(), strings.ToLower(path.Ext(filename)))
	if err := ps.bucket.UploadFile(ctx, gcp.BucketCategoryDocument, key, bytes.NewReader(data)); err != nil {
		return nil, Wrap(ErrUploadFailed, err)
	}

	doc := &types.Document{
		ID:          uuid.New(),
		PatientID:   patientID,
		TherapistID: therapistID,
		Title:       title,
		StorageKey:  key,
		FileURL:     ps.bucket.GetPublicURL(gcp.BucketCategoryDocument, key),
	}
	created, err := ps.documentRepo.Create(ctx, nil, []*types.Document{doc})
	if err != nil {
		// The row failed, so the object must not linger.
		if delErr := ps.bucket.DeleteFile(ctx, gcp.BucketCategoryDocument, key); delErr != nil {
			ps.log.Warn("Failed to clean up orphaned document object", "error", delErr)
		}
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return created[0], nil
}

func (ps *patientService) DeleteDocument(ctx context.Context, therapistID, patientID, documentID uuid.UUID) error {
	patient, err := ps.patientRepo.GetByID(ctx, nil, therapistID, patientID)
	if err != nil {
		return fmt.Errorf("failed to load patient: %w", err)
	}
	if patient == nil {
		return ErrPatientNotFound
	}

	doc, err := ps.documentRepo.GetByID(ctx, nil, patientID, documentID)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	ok, err := ps.documentRepo.Delete(ctx, nil, patientID, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if !ok {
		return ErrDocumentNotFound
	}

	if doc.StorageKey != "" {
		if err := ps.bucket.DeleteFile(ctx, gcp.BucketCategoryDocument, doc.StorageKey); err != nil {
			ps.log.Warn("Failed to delete document from storage", "error", err)
		}
	}
	return nil
}
