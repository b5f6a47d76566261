package clinical

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/therapulse-backend/internal/domain"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

type PatientRepo interface {
	Create(ctx context.Context, tx *gorm.DB, patients []*types.Patient) ([]*types.Patient, error)
	// GetByID loads the patient with its sessions and documents preloaded.
	// Returns nil when no row matches the (therapistID, patientID) pair.
	GetByID(ctx context.Context, tx *gorm.DB, therapistID, patientID uuid.UUID) (*types.Patient, error)
	ListByTherapist(ctx context.Context, tx *gorm.DB, therapistID uuid.UUID, status string) ([]*types.Patient, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, therapistID, patientID uuid.UUID, updates map[string]any) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, therapistID, patientID uuid.UUID) (bool, error)
}

type patientRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPatientRepo(db *gorm.DB, baseLog *logger.Logger) PatientRepo {
	repoLog := baseLog.With("repo", "PatientRepo")
	return &patientRepo{db: db, log: repoLog}
}

func (pr *patientRepo) Create(ctx context.Context, tx *gorm.DB, patients []*types.Patient) ([]*types.Patient, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	if len(patients) == 0 {
		return []*types.Patient{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&patients).Error; err != nil {
		return nil, err
	}

	return patients, nil
}

func (pr *patientRepo) GetByID(ctx context.Context, tx *gorm.DB, therapistID, patientID uuid.UUID) (*types.Patient, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var patient types.Patient
	err := transaction.WithContext(ctx).
		Preload("Sessions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Preload("NoteEntries", func(db *gorm.DB) *gorm.DB {
				return db.Order("created_at ASC")
			})
		}).
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("id = ? AND therapist_id = ?", patientID, therapistID).
		Limit(1).
		Find(&patient).Error
	if err != nil {
		return nil, err
	}
	if patient.ID == uuid.Nil {
		return nil, nil
	}
	return &patient, nil
}

func (pr *patientRepo) ListByTherapist(ctx context.Context, tx *gorm.DB, therapistID uuid.UUID, status string) ([]*types.Patient, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.Patient
	q := transaction.WithContext(ctx).
		Where("therapist_id = ?", therapistID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *patientRepo) UpdateFields(ctx context.Context, tx *gorm.DB, therapistID, patientID uuid.UUID, updates map[string]any) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if len(updates) == 0 {
		return true, nil
	}
	res := transaction.WithContext(ctx).
		Model(&types.Patient{}).
		Where("id = ? AND therapist_id = ?", patientID, therapistID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (pr *patientRepo) Delete(ctx context.Context, tx *gorm.DB, therapistID, patientID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND therapist_id = ?", patientID, therapistID).
		Delete(&types.Patient{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
