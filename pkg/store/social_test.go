package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/truefriend/pkg/model"
)

func TestFriendRequestLifecycle(t *testing.T) {
	s := newTestStore(t)
	alice := mustCreate(t, s, "alice", model.PlatformWhatsApp, "wa:1")
	bob := mustCreate(t, s, "bob", model.PlatformTelegram, "tg:2")

	friends, err := s.AreFriends(alice, bob)
	require.NoError(t, err)
	assert.False(t, friends)

	require.NoError(t, s.SendFriendRequest(alice, "bob"))

	pending, err := s.PendingRequests(bob)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, pending)

	require.NoError(t, s.AcceptFriendRequest(bob, "alice"))

	friends, err = s.AreFriends(alice, bob)
	require.NoError(t, err)
	assert.True(t, friends)
	// Accepted friendship is undirected.
	friends, err = s.AreFriends(bob, alice)
	require.NoError(t, err)
	assert.True(t, friends)

	names, err := s.Friends(alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, names)

	assert.ErrorIs(t, s.SendFriendRequest(alice, "bob"), ErrAlreadyFriends)
}

func TestMutualRequestsAutoAccept(t *testing.T) {
	s := newTestStore(t)
	alice := mustCreate(t, s, "alice", model.PlatformWhatsApp, "wa:1")
	bob := mustCreate(t, s, "bob", model.PlatformTelegram, "tg:2")

	require.NoError(t, s.SendFriendRequest(alice, "bob"))
	require.NoError(t, s.SendFriendRequest(bob, "alice"))

	friends, err := s.AreFriends(alice, bob)
	require.NoError(t, err)
	assert.True(t, friends)

	pending, err := s.PendingRequests(alice)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestFriendRequestErrors(t *testing.T) {
	s := newTestStore(t)
	alice := mustCreate(t, s, "alice", model.PlatformWhatsApp, "wa:1")
	bob := mustCreate(t, s, "bob", model.PlatformTelegram, "tg:2")

	assert.ErrorIs(t, s.SendFriendRequest(alice, "alice"), ErrSelfRelation)
	assert.ErrorIs(t, s.SendFriendRequest(alice, "ghost"), ErrNotFound)
	assert.ErrorIs(t, s.AcceptFriendRequest(bob, "alice"), ErrNoRequest)
	assert.ErrorIs(t, s.AcceptFriendRequest(bob, "ghost"), ErrNotFound)
}

func TestBlockIsDirectional(t *testing.T) {
	s := newTestStore(t)
	alice := mustCreate(t, s, "alice", model.PlatformWhatsApp, "wa:1")
	bob := mustCreate(t, s, "bob", model.PlatformTelegram, "tg:2")

	require.NoError(t, s.Block(alice, "bob"))

	blocked, err := s.IsBlocked(alice, bob)
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = s.IsBlocked(bob, alice)
	require.NoError(t, err)
	assert.False(t, blocked)

	// Blocking twice is idempotent.
	require.NoError(t, s.Block(alice, "bob"))

	require.NoError(t, s.Unblock(alice, "bob"))
	blocked, err = s.IsBlocked(alice, bob)
	require.NoError(t, err)
	assert.False(t, blocked)

	assert.ErrorIs(t, s.Block(alice, "alice"), ErrSelfRelation)
}

func TestFollowAndFollowerCount(t *testing.T) {
	s := newTestStore(t)
	alice := mustCreate(t, s, "alice", model.PlatformWhatsApp, "wa:1")
	bob := mustCreate(t, s, "bob", model.PlatformTelegram, "tg:2")
	carol := mustCreate(t, s, "carol", model.PlatformWhatsApp, "wa:3")

	require.NoError(t, s.Follow(alice, "bob"))
	require.NoError(t, s.Follow(carol, "bob"))
	assert.ErrorIs(t, s.Follow(alice, "bob"), ErrAlreadyFollowed)
	assert.ErrorIs(t, s.Follow(bob, "bob"), ErrSelfRelation)

	n, err := s.FollowerCount(bob)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.FollowerCount(alice)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMutualFriends(t *testing.T) {
	s := newTestStore(t)
	alice := mustCreate(t, s, "alice", model.PlatformWhatsApp, "wa:1")
	bob := mustCreate(t, s, "bob", model.PlatformTelegram, "tg:2")
	carol := mustCreate(t, s, "carol", model.PlatformWhatsApp, "wa:3")

	require.NoError(t, s.SendFriendRequest(alice, "carol"))
	require.NoError(t, s.AcceptFriendRequest(carol, "alice"))
	require.NoError(t, s.SendFriendRequest(bob, "carol"))
	require.NoError(t, s.AcceptFriendRequest(carol, "bob"))

	n, err := s.MutualFriends(alice, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
