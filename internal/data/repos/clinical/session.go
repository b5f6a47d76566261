package clinical

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/therapulse-backend/internal/domain"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

// ArtifactKind selects which cached pipeline output a SetArtifact or
// GetArtifact call addresses.
type ArtifactKind string

const (
	ArtifactReport   ArtifactKind = "report"
	ArtifactInsights ArtifactKind = "insights"
)

type SessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, sessions []*types.Session) ([]*types.Session, error)
	// GetByID scopes the lookup to the owning patient. A session id that
	// exists under a different patient never matches.
	GetByID(ctx context.Context, tx *gorm.DB, patientID, sessionID uuid.UUID) (*types.Session, error)
	ListByPatient(ctx context.Context, tx *gorm.DB, patientID uuid.UUID) ([]*types.Session, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, patientID, sessionID uuid.UUID, updates map[string]any) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, patientID, sessionID uuid.UUID) (bool, error)
	// SetArtifact records a generated artifact URL with its timestamp in one
	// update. Returns false when the (patientID, sessionID) pair matches no row.
	SetArtifact(ctx context.Context, tx *gorm.DB, patientID, sessionID uuid.UUID, kind ArtifactKind, url string, generatedAt time.Time) (bool, error)
	AppendNote(ctx context.Context, tx *gorm.DB, note *types.SessionNote) (*types.SessionNote, error)
	ListNotes(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.SessionNote, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	repoLog := baseLog.With("repo", "SessionRepo")
	return &sessionRepo{db: db, log: repoLog}
}

func (sr *sessionRepo) Create(ctx context.Context, tx *gorm.DB, sessions []*types.Session) ([]*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if len(sessions) == 0 {
		return []*types.Session{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&sessions).Error; err != nil {
		return nil, err
	}

	return sessions, nil
}

func (sr *sessionRepo) GetByID(ctx context.Context, tx *gorm.DB, patientID, sessionID uuid.UUID) (*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var session types.Session
	err := transaction.WithContext(ctx).
		Preload("NoteEntries", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ? AND patient_id = ?", sessionID, patientID).
		Limit(1).
		Find(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == uuid.Nil {
		return nil, nil
	}
	return &session, nil
}

func (sr *sessionRepo) ListByPatient(ctx context.Context, tx *gorm.DB, patientID uuid.UUID) ([]*types.Session, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.Session
	if err := transaction.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *sessionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, patientID, sessionID uuid.UUID, updates map[string]any) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if len(updates) == 0 {
		return true, nil
	}
	res := transaction.WithContext(ctx).
		Model(&types.Session{}).
		Where("id = ? AND patient_id = ?", sessionID, patientID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (sr *sessionRepo) Delete(ctx context.Context, tx *gorm.DB, patientID, sessionID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND patient_id = ?", sessionID, patientID).
		Delete(&types.Session{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (sr *sessionRepo) SetArtifact(ctx context.Context, tx *gorm.DB, patientID, sessionID uuid.UUID, kind ArtifactKind, url string, generatedAt time.Time) (bool, error) {
	updates := map[string]any{}
	switch kind {
	case ArtifactReport:
		updates["report_url"] = url
		updates["report_generated_at"] = generatedAt
	case ArtifactInsights:
		updates["insights_url"] = url
		updates["insights_generated_at"] = generatedAt
	default:
		return false, nil
	}
	return sr.UpdateFields(ctx, tx, patientID, sessionID, updates)
}

func (sr *sessionRepo) AppendNote(ctx context.Context, tx *gorm.DB, note *types.SessionNote) (*types.SessionNote, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if err := transaction.WithContext(ctx).Create(note).Error; err != nil {
		return nil, err
	}
	return note, nil
}

func (sr *sessionRepo) ListNotes(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.SessionNote, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.SessionNote
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
