package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/therapulse-backend/internal/data/repos/auth"
	"github.com/yungbote/therapulse-backend/internal/data/repos/chat"
	"github.com/yungbote/therapulse-backend/internal/data/repos/clinical"
	"github.com/yungbote/therapulse-backend/internal/data/repos/jobs"
	"github.com/yungbote/therapulse-backend/internal/data/repos/user"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

type UserRepo = user.UserRepo
type UserTokenRepo = auth.UserTokenRepo

type PatientRepo = clinical.PatientRepo
type SessionRepo = clinical.SessionRepo
type DocumentRepo = clinical.DocumentRepo
type AppointmentRepo = clinical.AppointmentRepo

type ChatMessageRepo = chat.MessageRepo

type JobRunRepo = jobs.JobRunRepo

type ArtifactKind = clinical.ArtifactKind

const (
	ArtifactReport   = clinical.ArtifactReport
	ArtifactInsights = clinical.ArtifactInsights
)

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return auth.NewUserTokenRepo(db, baseLog)
}

func NewPatientRepo(db *gorm.DB, baseLog *logger.Logger) PatientRepo {
	return clinical.NewPatientRepo(db, baseLog)
}
func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return clinical.NewSessionRepo(db, baseLog)
}
func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return clinical.NewDocumentRepo(db, baseLog)
}
func NewAppointmentRepo(db *gorm.DB, baseLog *logger.Logger) AppointmentRepo {
	return clinical.NewAppointmentRepo(db, baseLog)
}

func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
	return chat.NewMessageRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
