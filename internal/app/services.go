package app

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/therapulse-backend/internal/clients/gcp"
	"github.com/yungbote/therapulse-backend/internal/clients/gemini"
	"github.com/yungbote/therapulse-backend/internal/clients/transcribe"
	"github.com/yungbote/therapulse-backend/internal/jobs"
	"github.com/yungbote/therapulse-backend/internal/jobs/pipeline"
	"github.com/yungbote/therapulse-backend/internal/jobs/runtime"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
	"github.com/yungbote/therapulse-backend/internal/services"
)

type Services struct {
	Auth        services.AuthService
	User        services.UserService
	Patient     services.PatientService
	Session     services.SessionService
	Appointment services.AppointmentService
	Chat        services.ChatService
	Insight     services.InsightService
	Job         services.JobService

	JobWorker *jobs.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos) (Services, error) {
	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		return Services{}, fmt.Errorf("init bucket service: %w", err)
	}
	vision, err := gcp.NewVisionService(log)
	if err != nil {
		return Services{}, fmt.Errorf("init vision service: %w", err)
	}

	// Narrative generation degrades to a deterministic fallback when Gemini
	// is not configured.
	var generator services.TextGenerator
	if geminiClient, err := gemini.NewClient(log); err != nil {
		log.Warn("Gemini unavailable, narrative summaries will use fallback", "error", err)
	} else {
		generator = geminiClient
	}

	transcriber := transcribe.NewClient(cfg.AssemblyAIKey)

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
	}

	media := services.NewMediaToolsService(log)
	emotions := services.NewEmotionService(log, vision, media)
	narrative := services.NewNarrativeService(log, generator)
	charts := services.NewChartService(log, cfg.ChartFontPath)
	reports := services.NewReportService(log)

	insight := services.NewInsightService(
		log, r.Patient, r.Session, bucket, media,
		transcriber, emotions, narrative, charts, reports, rdb,
	)

	chat, err := services.NewChatService(log, r.ChatMessage, cfg.ChatRulesPath)
	if err != nil {
		return Services{}, fmt.Errorf("init chat service: %w", err)
	}

	registry := runtime.NewRegistry()
	if err := registry.Register(pipeline.NewSessionReportHandler(log, insight)); err != nil {
		return Services{}, err
	}
	if err := registry.Register(pipeline.NewSessionInsightsHandler(log, insight)); err != nil {
		return Services{}, err
	}

	return Services{
		Auth:        services.NewAuthService(db, log, r.User, r.UserToken, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		User:        services.NewUserService(log, r.User, bucket),
		Patient:     services.NewPatientService(db, log, r.Patient, r.Document, bucket),
		Session:     services.NewSessionService(log, r.Patient, r.Session, bucket, media),
		Appointment: services.NewAppointmentService(log, r.Appointment, r.Patient),
		Chat:        chat,
		Insight:     insight,
		Job:         services.NewJobService(log, r.JobRun, r.Patient, r.Session),
		JobWorker:   jobs.NewWorker(db, log, r.JobRun, registry),
	}, nil
}
