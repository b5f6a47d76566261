package app

import (
	"github.com/yungbote/therapulse-backend/internal/handlers"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	User        *handlers.UserHandler
	Patient     *handlers.PatientHandler
	Session     *handlers.SessionHandler
	Appointment *handlers.AppointmentHandler
	Chat        *handlers.ChatHandler
	Jobs        *handlers.JobsHandler
}

func wireHandlers(s Services) Handlers {
	return Handlers{
		Auth:        handlers.NewAuthHandler(s.Auth),
		User:        handlers.NewUserHandler(s.User),
		Patient:     handlers.NewPatientHandler(s.Patient),
		Session:     handlers.NewSessionHandler(s.Session, s.Job),
		Appointment: handlers.NewAppointmentHandler(s.Appointment),
		Chat:        handlers.NewChatHandler(s.Chat),
		Jobs:        handlers.NewJobsHandler(s.Job),
	}
}
