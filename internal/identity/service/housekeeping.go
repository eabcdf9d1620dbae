package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/atriumhq/atrium/internal/identity/store"
)

// DefaultInvitationRetention controls how long an expired invitation stays
// visible to administrators before the sweep removes it.
const DefaultInvitationRetention = 30 * 24 * time.Hour

// HousekeepingService periodically removes idle-expired sessions and long
// expired invitations to keep the tables from growing without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// SessionIdleTimeout mirrors the session manager's idle window; rows
	// older than it are unreachable and safe to drop.
	SessionIdleTimeout time.Duration

	// InvitationRetention is how long expired invitations remain listed
	// before they are swept.
	InvitationRetention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A zero or negative
// interval defaults to 1 hour.
func NewHousekeepingService(
	st store.Store,
	logger *slog.Logger,
	interval, sessionIdleTimeout, invitationRetention time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if sessionIdleTimeout <= 0 {
		sessionIdleTimeout = DefaultSessionIdleTimeout
	}
	if invitationRetention <= 0 {
		invitationRetention = DefaultInvitationRetention
	}

	return &HousekeepingService{
		Store:               st,
		Logger:              logger,
		Interval:            interval,
		SessionIdleTimeout:  sessionIdleTimeout,
		InvitationRetention: invitationRetention,
		stopCh:              make(chan struct{}),
		doneCh:              make(chan struct{}),
	}
}

// Start launches the background worker. Non-blocking; call Stop to shut it
// down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down and waits for any in-progress sweep to finish.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep once immediately on startup.
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep runs the deletions. Each one is independent; a failure in one does
// not stop the others.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.Store.Sessions().DeleteSessionsIdleBefore(ctx, now.Add(-s.SessionIdleTimeout)); err != nil {
		s.Logger.Error("failed to delete idle-expired sessions", "error", err)
	} else {
		s.Logger.Debug("swept idle-expired sessions")
	}

	if err := s.Store.Invitations().DeleteInvitationsExpiredBefore(ctx, now.Add(-s.InvitationRetention)); err != nil {
		s.Logger.Error("failed to delete old expired invitations", "error", err)
	} else {
		s.Logger.Debug("swept old expired invitations")
	}
}
