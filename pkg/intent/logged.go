package intent

import (
	"context"
	"time"

	"github.com/tinyland-inc/verbsbot/pkg/logger"
)

type logged struct {
	backend string
	next    Detector
}

// WithLogging reports every detection under the "intent" log component.
func WithLogging(backend string, next Detector) Detector {
	return &logged{backend: backend, next: next}
}

func (l *logged) DetectIntent(ctx context.Context, sessionID, text string) (Result, error) {
	start := time.Now()
	res, err := l.next.DetectIntent(ctx, sessionID, text)
	if err != nil {
		logger.WarnCF("intent", "Intent detection failed", map[string]any{
			"backend":    l.backend,
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return res, err
	}
	logger.DebugCF("intent", "Intent detected", map[string]any{
		"backend":     l.backend,
		"session_id":  sessionID,
		"fallback":    res.IsFallback,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return res, nil
}
