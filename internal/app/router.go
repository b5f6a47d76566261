package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/therapulse-backend/internal/middleware"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
	"github.com/yungbote/therapulse-backend/internal/server"
)

func wireRouter(cfg Config, log *logger.Logger, s Services, h Handlers) *gin.Engine {
	authMiddleware := middleware.NewAuthMiddleware(log, s.Auth)
	return server.NewRouter(server.RouterConfig{
		AllowedOrigins: server.ParseOrigins(cfg.AllowedOrigins),
		AuthMiddleware: authMiddleware,

		AuthHandler:        h.Auth,
		UserHandler:        h.User,
		PatientHandler:     h.Patient,
		SessionHandler:     h.Session,
		AppointmentHandler: h.Appointment,
		ChatHandler:        h.Chat,
		JobsHandler:        h.Jobs,
	})
}
