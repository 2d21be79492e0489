package bootstrap

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/Nanyonga-Rahmah/crm-landing-pages/internal/config"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/events"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/listing"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/notify"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/session"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

func TestBuildRedisClientDisabled(t *testing.T) {
	assert.Nil(t, BuildRedisClient(context.Background(), nil, nil, true))
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true))
}

func TestBuildRedisClientVerifies(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	addr := mr.Addr()
	mr.Close()
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logging.New("error"), true))
}

func TestStoresFallBackToMemory(t *testing.T) {
	_, ok := BuildSessionStore(nil).(*session.MemoryStore)
	assert.True(t, ok)
	_, ok = BuildSnapshotStore(nil).(*listing.MemorySnapshotStore)
	assert.True(t, ok)
	_, ok = BuildJournal(nil).(*events.MemoryJournal)
	assert.True(t, ok)
}

func TestStoresUseRedisWhenAvailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, nil, false)
	t.Cleanup(func() { _ = client.Close() })

	_, ok := BuildSessionStore(client).(*session.RedisStore)
	assert.True(t, ok)
	_, ok = BuildSnapshotStore(client).(*listing.RedisSnapshotStore)
	assert.True(t, ok)
}

func TestBuildPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	assert.Nil(t, BuildPostgresPool(context.Background(), "", logging.New("error")))
}

func TestBuildEmailSender(t *testing.T) {
	sender, kind := BuildEmailSender(&appconfig.Config{}, logging.New("error"))
	assert.Equal(t, "stub", kind)
	_, ok := sender.(*notify.StubEmailSender)
	assert.True(t, ok)

	sender, kind = BuildEmailSender(&appconfig.Config{SendGridAPIKey: "SG.test", SendGridFromEmail: "crm@example.com"}, logging.New("error"))
	assert.Equal(t, "sendgrid", kind)
	_, ok = sender.(*notify.SendGridSender)
	assert.True(t, ok)
}

func TestBuildEventBusWiresJournalAndCache(t *testing.T) {
	ctx := context.Background()
	journal := events.NewMemoryJournal()
	store := listing.NewMemorySnapshotStore()
	cache := listing.NewCache(store, time.Minute, nil, logging.New("error"))
	require.NoError(t, store.Set(ctx, listing.SnapshotKey(listing.KindLeads, adminOf("org-1")), []byte("[]"), time.Minute))

	bus := BuildEventBus(cache, journal, nil, nil, logging.New("error"))
	e, err := events.New(events.TypeLeadStatusChanged, "org-1", "l1", "u1", events.LeadStatusChangedV1{From: "PROSPECT", To: "LEAD", Description: "called"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, e))
	bus.Wait()

	history, err := journal.History(ctx, "org-1", "l1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "LEAD", history[0].ToStatus)

	_, found, err := store.Get(ctx, listing.SnapshotKey(listing.KindLeads, adminOf("org-1")))
	require.NoError(t, err)
	assert.False(t, found)
}

func adminOf(orgID string) tenancy.Identity {
	return tenancy.Identity{UserID: "u1", OrganizationID: orgID, Role: tenancy.RoleAdmin}
}
