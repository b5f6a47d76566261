package clinical

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/therapulse-backend/internal/domain"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

type DocumentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, documents []*types.Document) ([]*types.Document, error)
	GetByID(ctx context.Context, tx *gorm.DB, patientID, documentID uuid.UUID) (*types.Document, error)
	ListByPatient(ctx context.Context, tx *gorm.DB, patientID uuid.UUID) ([]*types.Document, error)
	Delete(ctx context.Context, tx *gorm.DB, patientID, documentID uuid.UUID) (bool, error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	repoLog := baseLog.With("repo", "DocumentRepo")
	return &documentRepo{db: db, log: repoLog}
}

func (dr *documentRepo) Create(ctx context.Context, tx *gorm.DB, documents []*types.Document) ([]*types.Document, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	if len(documents) == 0 {
		return []*types.Document{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&documents).Error; err != nil {
		return nil, err
	}

	return documents, nil
}

func (dr *documentRepo) GetByID(ctx context.Context, tx *gorm.DB, patientID, documentID uuid.UUID) (*types.Document, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	var document types.Document
	err := transaction.WithContext(ctx).
		Where("id = ? AND patient_id = ?", documentID, patientID).
		Limit(1).
		Find(&document).Error
	if err != nil {
		return nil, err
	}
	if document.ID == uuid.Nil {
		return nil, nil
	}
	return &document, nil
}

func (dr *documentRepo) ListByPatient(ctx context.Context, tx *gorm.DB, patientID uuid.UUID) ([]*types.Document, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	var results []*types.Document
	if err := transaction.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (dr *documentRepo) Delete(ctx context.Context, tx *gorm.DB, patientID, documentID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND patient_id = ?", documentID, patientID).
		Delete(&types.Document{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
