package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		InviteTTL:           time.Hour,
		SessionIdleTimeout:  30 * time.Minute,
		InvitationRetention: time.Hour,

		SessionCookieName: "atrium_session",
		SuccessURL:        "/",
		FailureURL:        "/login",

		DatabaseFile:         ":memory:",
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "text",
		Port:                 8080,
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
	}
}

func TestRunReleasesResourcesOnServerError(t *testing.T) {
	cfg := testConfig()
	// An unbindable port makes ListenAndServe fail immediately.
	cfg.Port = -1

	application, err := New(cfg)
	require.NoError(t, err)

	err = application.Run()
	require.Error(t, err)
	require.ErrorContains(t, err, "server failed")

	// Housekeeping is stopped and the database handle is closed, not leaked.
	require.Error(t, application.db.Ping(context.Background()))
}
