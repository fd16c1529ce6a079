package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/othello-backend/internal/logger"
	"github.com/yungbote/othello-backend/internal/types"
	"github.com/yungbote/othello-backend/internal/utils"
)

type Service struct {
	db     *gorm.DB
	log    *logger.Logger
	driver string
}

// New opens the database selected by DB_DRIVER: "postgres" for deployments,
// "sqlite" (the default) for single-user local runs.
func New(log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "DBService")

	driver := strings.ToLower(utils.GetEnv("DB_DRIVER", "sqlite", log))

	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
		postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
		postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
		postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
		postgresName := utils.GetEnv("POSTGRES_NAME", "othello", log)
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)
		dialector = postgres.Open(dsn)
	case "sqlite":
		path := utils.GetEnv("SQLITE_PATH", "data/othello.db", log)
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", driver)
	}

	serviceLog.Info("Connecting to database...", "driver", driver)
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Service{db: gormDB, log: serviceLog, driver: driver}, nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	err := s.db.AutoMigrate(
		&types.UserProfile{},
		&types.ConversationMessage{},
		&types.Suggestion{},
	)
	if err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if s.driver != "postgres" {
		return nil
	}
	s.log.Info("Configuring foreign key relationships for postgres tables...")
	constraints := []struct {
		table string
		name  string
		ddl   string
	}{
		{
			table: "conversation_message",
			name:  "fk_conversation_message_user_profile_id",
			ddl: `
				ALTER TABLE "conversation_message"
				ADD CONSTRAINT "fk_conversation_message_user_profile_id"
				FOREIGN KEY ("user_profile_id")
				REFERENCES "user_profile"("id")
				ON DELETE CASCADE
			`,
		},
		{
			table: "suggestion",
			name:  "fk_suggestion_user_profile_id",
			ddl: `
				ALTER TABLE "suggestion"
				ADD CONSTRAINT "fk_suggestion_user_profile_id"
				FOREIGN KEY ("user_profile_id")
				REFERENCES "user_profile"("id")
				ON DELETE CASCADE
			`,
		},
		{
			table: "suggestion",
			name:  "fk_suggestion_conversation_id",
			ddl: `
				ALTER TABLE "suggestion"
				ADD CONSTRAINT "fk_suggestion_conversation_id"
				FOREIGN KEY ("conversation_id")
				REFERENCES "conversation_message"("id")
				ON DELETE SET NULL
			`,
		},
	}
	for _, constraint := range constraints {
		if err := s.db.Exec(fmt.Sprintf(`ALTER TABLE %q DROP CONSTRAINT IF EXISTS %q`, constraint.table, constraint.name)).Error; err != nil {
			return fmt.Errorf("Failed to reset %s: %w", constraint.name, err)
		}
		if err := s.db.Exec(constraint.ddl).Error; err != nil {
			return fmt.Errorf("Failed to add %s: %w", constraint.name, err)
		}
	}
	return nil
}

// Ping verifies connectivity for health checks.
func (s *Service) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (s *Service) DB() *gorm.DB {
	return s.db
}
