package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/therapulse-backend/internal/data/repos"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

type Repos struct {
	User        repos.UserRepo
	UserToken   repos.UserTokenRepo
	Patient     repos.PatientRepo
	Session     repos.SessionRepo
	Document    repos.DocumentRepo
	Appointment repos.AppointmentRepo
	ChatMessage repos.ChatMessageRepo
	JobRun      repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		User:        repos.NewUserRepo(db, log),
		UserToken:   repos.NewUserTokenRepo(db, log),
		Patient:     repos.NewPatientRepo(db, log),
		Session:     repos.NewSessionRepo(db, log),
		Document:    repos.NewDocumentRepo(db, log),
		Appointment: repos.NewAppointmentRepo(db, log),
		ChatMessage: repos.NewChatMessageRepo(db, log),
		JobRun:      repos.NewJobRunRepo(db, log),
	}
}
