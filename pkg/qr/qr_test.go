package qr

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/truefriend/pkg/vault"
)

func TestGenerateWritesImage(t *testing.T) {
	g, err := NewGenerator(t.TempDir(), nil)
	require.NoError(t, err)

	path, err := g.Generate("truefriend://pair/telegram/12345", false)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filepath.Base(path), "qr_"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestGenerateSecureEncryptsPayload(t *testing.T) {
	key, err := vault.GenerateKey()
	require.NoError(t, err)
	v, err := vault.New(key)
	require.NoError(t, err)

	g, err := NewGenerator(t.TempDir(), v)
	require.NoError(t, err)

	path, err := g.Generate("truefriend://pair/telegram/12345", true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "secure_qr_"))
}

func TestGenerateSecureWithoutVaultStaysPlain(t *testing.T) {
	g, err := NewGenerator(t.TempDir(), nil)
	require.NoError(t, err)

	path, err := g.Generate("payload", true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "qr_"))
}

func TestGenerateRejectsEmptyPayload(t *testing.T) {
	g, err := NewGenerator(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = g.Generate("", false)
	assert.Error(t, err)
}
