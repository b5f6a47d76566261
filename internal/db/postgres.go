package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/therapulse-backend/internal/domain"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
	"github.com/yungbote/therapulse-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "therapulse", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&domain.User{},
		&domain.UserToken{},
		&domain.Patient{},
		&domain.Document{},
		&domain.Session{},
		&domain.SessionNote{},
		&domain.Appointment{},
		&domain.ChatMessage{},
		&domain.JobRun{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}
	s.log.Info("Configuring foreign key relationships for postgres tables...")
	for name, stmt := range map[string]string{
		"fk_user_token_user_id": `
			ALTER TABLE "user_token"
			ADD CONSTRAINT "fk_user_token_user_id"
			FOREIGN KEY ("user_id") REFERENCES "user"("id")
			ON DELETE CASCADE`,
		"fk_patient_therapist_id": `
			ALTER TABLE "patient"
			ADD CONSTRAINT "fk_patient_therapist_id"
			FOREIGN KEY ("therapist_id") REFERENCES "user"("id")
			ON DELETE CASCADE`,
		"fk_document_patient_id": `
			ALTER TABLE "document"
			ADD CONSTRAINT "fk_document_patient_id"
			FOREIGN KEY ("patient_id") REFERENCES "patient"("id")
			ON DELETE CASCADE`,
		"fk_session_patient_id": `
			ALTER TABLE "session"
			ADD CONSTRAINT "fk_session_patient_id"
			FOREIGN KEY ("patient_id") REFERENCES "patient"("id")
			ON DELETE CASCADE`,
		"fk_session_note_session_id": `
			ALTER TABLE "session_note"
			ADD CONSTRAINT "fk_session_note_session_id"
			FOREIGN KEY ("session_id") REFERENCES "session"("id")
			ON DELETE CASCADE`,
		"fk_appointment_patient_id": `
			ALTER TABLE "appointment"
			ADD CONSTRAINT "fk_appointment_patient_id"
			FOREIGN KEY ("patient_id") REFERENCES "patient"("id")
			ON DELETE CASCADE`,
		"fk_chat_message_user_id": `
			ALTER TABLE "chat_message"
			ADD CONSTRAINT "fk_chat_message_user_id"
			FOREIGN KEY ("user_id") REFERENCES "user"("id")
			ON DELETE CASCADE`,
	} {
		if err := s.db.Exec(stmt).Error; err != nil {
			// Re-running migrations against an existing schema hits duplicate
			// constraints; those are fine to skip.
			s.log.Debug("Skipping foreign key constraint", "constraint", name, "error", err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
