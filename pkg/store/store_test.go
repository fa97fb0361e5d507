package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/truefriend/pkg/model"
	"github.com/tinyland-inc/truefriend/pkg/vault"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	key, err := vault.GenerateKey()
	require.NoError(t, err)
	v, err := vault.New(key)
	require.NoError(t, err)

	s, err := OpenMemory(v)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreate(t *testing.T, s *Store, username string, platform model.Platform, senderKey string) int64 {
	t.Helper()
	id, _, err := s.CreateIdentity(NewIdentity{
		Username:    username,
		Email:       username + "@example.com",
		Password:    "hunter22",
		Platform:    platform,
		SenderKey:   senderKey,
		SelfGender:  model.GenderFemale,
		AgentGender: model.GenderMale,
	})
	require.NoError(t, err)
	return id
}
