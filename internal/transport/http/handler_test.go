package httptransport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sgr/internal/auth/models"
	"sgr/internal/auth/session"
	"sgr/internal/auth/store"
	"sgr/internal/platform/metrics"
	"sgr/pkg/requestcontext"
	"sgr/pkg/testutil"
)

func TestSyncReleasesExpiredSessions(t *testing.T) {
	start := time.Now()
	provider := store.NewInMemoryProvider()
	sessions := session.NewRegistry(provider, nil, nil)
	h := NewHandler(Deps{Sessions: sessions, Metrics: metrics.New(prometheus.NewRegistry())})

	ctx := requestcontext.WithTime(context.Background(), start)
	const browsers = 20
	sids := make([]string, browsers)
	for i := range sids {
		sids[i] = fmt.Sprintf("browser-%d", i)
		c, err := sessions.Get(ctx, sids[i])
		require.NoError(t, err)
		resp := testutil.LoginResponse(t, start.Add(time.Hour), models.AuthorityUser)
		require.NoError(t, c.Login(ctx, resp, &models.Profile{ID: int64(i), Nome: "Ana"}))
	}
	require.Equal(t, browsers, sessions.Len())

	for _, sid := range sids[:browsers/2] {
		h.sync(ctx, sid)
	}
	assert.Equal(t, browsers, sessions.Len(), "valid sessions stay held")

	later := requestcontext.WithTime(context.Background(), start.Add(7*24*time.Hour))
	for _, sid := range sids {
		h.sync(later, sid)
	}
	assert.Zero(t, sessions.Len(), "expired sessions are released even with a cached profile")

	profile, err := store.Profile(later, provider.ForSession(sids[0]))
	require.NoError(t, err)
	assert.NotNil(t, profile, "releasing the context leaves persisted entries to the store's own expiry")
}
