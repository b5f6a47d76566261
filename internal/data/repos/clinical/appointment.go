package clinical

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/therapulse-backend/internal/domain"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

type AppointmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, appointments []*types.Appointment) ([]*types.Appointment, error)
	GetByID(ctx context.Context, tx *gorm.DB, therapistID, appointmentID uuid.UUID) (*types.Appointment, error)
	ListByTherapist(ctx context.Context, tx *gorm.DB, therapistID uuid.UUID, date string) ([]*types.Appointment, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, therapistID, appointmentID uuid.UUID, updates map[string]any) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, therapistID, appointmentID uuid.UUID) (bool, error)
}

type appointmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAppointmentRepo(db *gorm.DB, baseLog *logger.Logger) AppointmentRepo {
	repoLog := baseLog.With("repo", "AppointmentRepo")
	return &appointmentRepo{db: db, log: repoLog}
}

func (ar *appointmentRepo) Create(ctx context.Context, tx *gorm.DB, appointments []*types.Appointment) ([]*types.Appointment, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	if len(appointments) == 0 {
		return []*types.Appointment{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&appointments).Error; err != nil {
		return nil, err
	}

	return appointments, nil
}

func (ar *appointmentRepo) GetByID(ctx context.Context, tx *gorm.DB, therapistID, appointmentID uuid.UUID) (*types.Appointment, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var appointment types.Appointment
	err := transaction.WithContext(ctx).
		Where("id = ? AND therapist_id = ?", appointmentID, therapistID).
		Limit(1).
		Find(&appointment).Error
	if err != nil {
		return nil, err
	}
	if appointment.ID == uuid.Nil {
		return nil, nil
	}
	return &appointment, nil
}

func (ar *appointmentRepo) ListByTherapist(ctx context.Context, tx *gorm.DB, therapistID uuid.UUID, date string) ([]*types.Appointment, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var results []*types.Appointment
	q := transaction.WithContext(ctx).
		Where("therapist_id = ?", therapistID)
	if date != "" {
		q = q.Where("date = ?", date)
	}
	if err := q.Order("date ASC, time ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *appointmentRepo) UpdateFields(ctx context.Context, tx *gorm.DB, therapistID, appointmentID uuid.UUID, updates map[string]any) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	if len(updates) == 0 {
		return true, nil
	}
	res := transaction.WithContext(ctx).
		Model(&types.Appointment{}).
		Where("id = ? AND therapist_id = ?", appointmentID, therapistID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (ar *appointmentRepo) Delete(ctx context.Context, tx *gorm.DB, therapistID, appointmentID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND therapist_id = ?", appointmentID, therapistID).
		Delete(&types.Appointment{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
