package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/othello-backend/internal/consent"
	"github.com/yungbote/othello-backend/internal/logger"
)

// AuditBus publishes consent-gate audit events (decisions and tier coercions)
// to a redis channel so external tooling can follow what the gate filtered and
// why. Publishing is best-effort: a failed publish is logged, never surfaced.
type AuditBus interface {
	consent.AuditSink
	Close() error
}

type auditBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewAuditBus(log *logger.Logger) (AuditBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_AUDIT_CHANNEL"))
	if ch == "" {
		ch = "consent_audit"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &auditBus{
		log:     log.With("service", "RedisAuditBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *auditBus) PublishAudit(event consent.AuditEvent) {
	if b == nil || b.rdb == nil {
		return
	}
	raw, err := json.Marshal(event)
	if err != nil {
		b.log.Warn("Failed to marshal audit event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		b.log.Warn("Failed to publish audit event", "error", err, "type", event.Type)
	}
}

func (b *auditBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
