package db

import (
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/yungbote/othello-backend/internal/logger"
)

func TestAutoMigrateInstallsPostgresConstraints(t *testing.T) {
	if os.Getenv("TEST_POSTGRES_DSN") == "" || os.Getenv("POSTGRES_HOST") == "" {
		t.Skip("TEST_POSTGRES_DSN / POSTGRES_* not set")
	}
	t.Setenv("DB_DRIVER", "postgres")

	log := &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
	svc, err := New(log)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := svc.AutoMigrateAll(); err != nil {
		t.Fatalf("AutoMigrateAll() error = %v", err)
	}
	// Second run must be idempotent.
	if err := svc.AutoMigrateAll(); err != nil {
		t.Fatalf("repeated AutoMigrateAll() error = %v", err)
	}

	for _, name := range []string{
		"fk_conversation_message_user_profile_id",
		"fk_suggestion_user_profile_id",
		"fk_suggestion_conversation_id",
	} {
		var count int64
		err := svc.DB().
			Raw("SELECT count(*) FROM pg_constraint WHERE conname = ?", name).
			Scan(&count).Error
		if err != nil {
			t.Fatalf("query pg_constraint: %v", err)
		}
		if count != 1 {
			t.Errorf("constraint %s: found %d, want 1", name, count)
		}
	}
}
