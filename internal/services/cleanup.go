package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StartSessionCleanup starts a background goroutine that periodically
// removes dead auth-session audit rows (expired, or revoked for longer
// than revokedAgeHours). Runs once immediately, then on the ticker.
func StartSessionCleanup(store *AuditStore, cleanupIntervalHours, revokedAgeHours int) {
	if cleanupIntervalHours <= 0 {
		cleanupIntervalHours = 1
	}
	if revokedAgeHours <= 0 {
		revokedAgeHours = 24
	}

	go func() {
		ticker := time.NewTicker(time.Duration(cleanupIntervalHours) * time.Hour)
		defer ticker.Stop()

		cleanupDeadSessions(store, revokedAgeHours)
		for range ticker.C {
			cleanupDeadSessions(store, revokedAgeHours)
		}
	}()
}

func cleanupDeadSessions(store *AuditStore, revokedAgeHours int) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := store.DeleteDeadSessions(ctx, time.Duration(revokedAgeHours)*time.Hour)
	if err != nil {
		log.Warn().Err(err).Msg("Session audit cleanup failed")
		return
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("Pruned dead auth sessions")
	}
}
