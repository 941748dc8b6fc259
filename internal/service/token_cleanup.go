package service

import (
	"context"
	"fmt"
	"time"

	"copro-smart-go/pkg/log"

	"github.com/robfig/cron/v3"
)

// StartTokenCleanup schedules the removal of expired and revoked refresh
// tokens. Stop the returned scheduler on shutdown.
func StartTokenCleanup(spec string, auth AuthService) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := auth.CleanupTokens(ctx)
		if err != nil {
			log.Errorf("[TokenCleanup] cleanup failed: %v", err)
			return
		}
		log.Infof("[TokenCleanup] deleted %d stale refresh tokens", n)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule token cleanup %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
