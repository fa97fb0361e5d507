package relay

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/truefriend/pkg/model"
	"github.com/tinyland-inc/truefriend/pkg/store"
	"github.com/tinyland-inc/truefriend/pkg/vault"
)

func newTestRelay(t *testing.T) (*Relay, *store.Store) {
	t.Helper()
	key, err := vault.GenerateKey()
	require.NoError(t, err)
	v, err := vault.New(key)
	require.NoError(t, err)
	st, err := store.OpenMemory(v)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	r := New(st)
	t.Cleanup(r.Close)
	return r, st
}

func createUser(t *testing.T, st *store.Store, username string, platform model.Platform, senderKey string) int64 {
	t.Helper()
	id, _, err := st.CreateIdentity(store.NewIdentity{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "hunter22",
		Platform:  platform,
		SenderKey: senderKey,
	})
	require.NoError(t, err)
	return id
}

func makeFriends(t *testing.T, st *store.Store, a int64, bName string, b int64, aName string) {
	t.Helper()
	require.NoError(t, st.SendFriendRequest(a, bName))
	require.NoError(t, st.AcceptFriendRequest(b, aName))
}

func TestResolvePrefersPreferredPlatform(t *testing.T) {
	u := &model.Identity{
		WhatsAppID:        sql.NullString{String: "wa:1", Valid: true},
		TelegramID:        sql.NullString{String: "tg:1", Valid: true},
		PreferredPlatform: sql.NullString{String: "telegram", Valid: true},
	}
	platform, addr, err := Resolve(u)
	require.NoError(t, err)
	assert.Equal(t, model.PlatformTelegram, platform)
	assert.Equal(t, "tg:1", addr)
}

func TestResolveFallsBackToAlternate(t *testing.T) {
	u := &model.Identity{
		TelegramID:        sql.NullString{String: "tg:1", Valid: true},
		PreferredPlatform: sql.NullString{String: "whatsapp", Valid: true},
	}
	platform, addr, err := Resolve(u)
	require.NoError(t, err)
	assert.Equal(t, model.PlatformTelegram, platform)
	assert.Equal(t, "tg:1", addr)
}

func TestResolveDefaultsToWhatsApp(t *testing.T) {
	u := &model.Identity{
		WhatsAppID: sql.NullString{String: "wa:1", Valid: true},
	}
	platform, _, err := Resolve(u)
	require.NoError(t, err)
	assert.Equal(t, model.PlatformWhatsApp, platform)
}

func TestResolveUnreachable(t *testing.T) {
	u := &model.Identity{
		PreferredPlatform: sql.NullString{String: "telegram", Valid: true},
	}
	_, _, err := Resolve(u)

	var unreachable *UnreachableError
	require.ErrorAs(t, err, &unreachable)
	assert.Equal(t, model.PlatformWhatsApp, unreachable.Platform)
}

func TestSendPrivateDelivers(t *testing.T) {
	r, st := newTestRelay(t)
	alice := createUser(t, st, "alice", model.PlatformWhatsApp, "wa:1")
	bob := createUser(t, st, "bob", model.PlatformTelegram, "tg:2")
	makeFriends(t, st, alice, "bob", bob, "alice")

	confirmation, err := r.SendPrivate(context.Background(), alice, "bob", "hey!")
	require.NoError(t, err)
	assert.Contains(t, confirmation, "bob")
	assert.Contains(t, confirmation, "telegram")

	q := r.Queue(model.PlatformTelegram)
	require.Equal(t, 1, q.Len())
	env, ok := q.Dequeue(context.Background())
	require.True(t, ok)
	assert.Equal(t, "tg:2", env.Address)
	assert.Contains(t, env.Text, "Message from alice")
	assert.Contains(t, env.Text, "hey!")
	assert.Equal(t, 0, r.Queue(model.PlatformWhatsApp).Len())
}

func TestSendPrivateOutcomes(t *testing.T) {
	r, st := newTestRelay(t)
	alice := createUser(t, st, "alice", model.PlatformWhatsApp, "wa:1")
	bob := createUser(t, st, "bob", model.PlatformTelegram, "tg:2")

	ctx := context.Background()

	_, err := r.SendPrivate(ctx, alice, "ghost", "hi")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = r.SendPrivate(ctx, alice, "bob", "hi")
	assert.ErrorIs(t, err, ErrNotFriends)

	// A block wins even over an established friendship.
	makeFriends(t, st, alice, "bob", bob, "alice")
	require.NoError(t, st.Block(bob, "alice"))
	_, err = r.SendPrivate(ctx, alice, "bob", "hi")
	assert.ErrorIs(t, err, ErrBlocked)

	// Nothing was queued for any of the failures.
	assert.Equal(t, 0, r.Queue(model.PlatformWhatsApp).Len())
	assert.Equal(t, 0, r.Queue(model.PlatformTelegram).Len())
}

func TestSendPrivateUnreachableTarget(t *testing.T) {
	r, st := newTestRelay(t)
	alice := createUser(t, st, "alice", model.PlatformWhatsApp, "wa:1")
	bob := createUser(t, st, "bob", model.PlatformTelegram, "")
	makeFriends(t, st, alice, "bob", bob, "alice")

	_, err := r.SendPrivate(context.Background(), alice, "bob", "hi")
	var unreachable *UnreachableError
	assert.ErrorAs(t, err, &unreachable)
}

type recordingDeliverer struct {
	envs     chan model.OutboundEnvelope
	failures map[string]error
}

func (d *recordingDeliverer) Deliver(_ context.Context, env model.OutboundEnvelope) error {
	if err, ok := d.failures[env.ID]; ok && env.AttachmentPath != "" {
		return err
	}
	d.envs <- env
	return nil
}

func TestWorkerDeliversInOrder(t *testing.T) {
	r, _ := newTestRelay(t)

	d := &recordingDeliverer{envs: make(chan model.OutboundEnvelope, 4)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.RunWorker(ctx, model.PlatformWhatsApp, d)

	require.NoError(t, r.Enqueue(model.OutboundEnvelope{ID: "a", Platform: model.PlatformWhatsApp}))
	require.NoError(t, r.Enqueue(model.OutboundEnvelope{ID: "b", Platform: model.PlatformWhatsApp}))

	assert.Equal(t, "a", waitEnv(t, d.envs).ID)
	assert.Equal(t, "b", waitEnv(t, d.envs).ID)
}

func TestWorkerRetriesAttachmentAsText(t *testing.T) {
	r, _ := newTestRelay(t)

	d := &recordingDeliverer{
		envs:     make(chan model.OutboundEnvelope, 1),
		failures: map[string]error{"qr": errors.New("attachment too large")},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.RunWorker(ctx, model.PlatformWhatsApp, d)

	require.NoError(t, r.Enqueue(model.OutboundEnvelope{
		ID:             "qr",
		Platform:       model.PlatformWhatsApp,
		Text:           "scan me",
		AttachmentPath: "/tmp/qr.png",
	}))

	env := waitEnv(t, d.envs)
	assert.Equal(t, "qr", env.ID)
	assert.Equal(t, "scan me", env.Text)
	assert.Empty(t, env.AttachmentPath)
}

func waitEnv(t *testing.T, ch chan model.OutboundEnvelope) model.OutboundEnvelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery observed")
		return model.OutboundEnvelope{}
	}
}
