package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/therapulse-backend/internal/handlers"
	"github.com/yungbote/therapulse-backend/internal/middleware"
)

type RouterConfig struct {
	AllowedOrigins []string

	AuthMiddleware *middleware.AuthMiddleware

	AuthHandler        *handlers.AuthHandler
	UserHandler        *handlers.UserHandler
	PatientHandler     *handlers.PatientHandler
	SessionHandler     *handlers.SessionHandler
	AppointmentHandler *handlers.AppointmentHandler
	ChatHandler        *handlers.ChatHandler
	JobsHandler        *handlers.JobsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("therapulse-backend"))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	// Auth
	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)

	// Therapist profile
	protected.GET("/user", cfg.UserHandler.GetMe)
	protected.PUT("/user", cfg.UserHandler.UpdateMe)
	protected.POST("/user/image", cfg.UserHandler.UploadProfileImage)

	// Patients
	protected.POST("/patients", cfg.PatientHandler.Create)
	protected.GET("/patients", cfg.PatientHandler.List)
	protected.GET("/patients/:patientID", cfg.PatientHandler.Get)
	protected.PUT("/patients/:patientID", cfg.PatientHandler.Update)
	protected.DELETE("/patients/:patientID", cfg.PatientHandler.Delete)
	protected.POST("/patients/:patientID/documents", cfg.PatientHandler.UploadDocument)
	protected.DELETE("/patients/:patientID/documents/:documentID", cfg.PatientHandler.DeleteDocument)

	// Sessions
	protected.POST("/patients/:patientID/sessions", cfg.SessionHandler.Create)
	protected.GET("/patients/:patientID/sessions", cfg.SessionHandler.List)
	protected.GET("/patients/:patientID/sessions/:sessionID", cfg.SessionHandler.Get)
	protected.PUT("/patients/:patientID/sessions/:sessionID", cfg.SessionHandler.Update)
	protected.DELETE("/patients/:patientID/sessions/:sessionID", cfg.SessionHandler.Delete)
	protected.POST("/patients/:patientID/sessions/:sessionID/notes", cfg.SessionHandler.AppendNote)
	protected.GET("/patients/:patientID/sessions/:sessionID/notes", cfg.SessionHandler.ListNotes)
	protected.POST("/patients/:patientID/sessions/:sessionID/report", cfg.SessionHandler.GenerateReport)
	protected.POST("/patients/:patientID/sessions/:sessionID/insights", cfg.SessionHandler.GenerateInsights)

	// Appointments
	protected.POST("/appointments", cfg.AppointmentHandler.Create)
	protected.GET("/appointments", cfg.AppointmentHandler.List)
	protected.GET("/appointments/:appointmentID", cfg.AppointmentHandler.Get)
	protected.PUT("/appointments/:appointmentID", cfg.AppointmentHandler.Update)
	protected.DELETE("/appointments/:appointmentID", cfg.AppointmentHandler.Delete)

	// Chat assistant
	protected.POST("/chat", cfg.ChatHandler.Send)
	protected.GET("/chat/history", cfg.ChatHandler.History)

	// Jobs
	protected.GET("/jobs/:jobID", cfg.JobsHandler.Get)

	return router
}

// ParseOrigins splits a comma-separated origin list from configuration.
func ParseOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
