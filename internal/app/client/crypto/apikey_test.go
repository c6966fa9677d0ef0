package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeyStore(t *testing.T) *KeyStore {
	t.Helper()
	ks, err := NewKeyStore(filepath.Join(t.TempDir(), "apikey.enc"))
	require.NoError(t, err)
	return ks
}

func TestKeyStore_SaveLoadRoundtrip(t *testing.T) {
	ks := newTestKeyStore(t)
	assert.False(t, ks.Exists())

	require.NoError(t, ks.Save("sk-ant-test-key-123", "korrekt häst batteri"))
	assert.True(t, ks.Exists())

	got, err := ks.Load("korrekt häst batteri")
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-test-key-123", got)
}

func TestKeyStore_WrongPassphrase(t *testing.T) {
	ks := newTestKeyStore(t)
	require.NoError(t, ks.Save("sk-ant-test-key-123", "rätt fras"))

	_, err := ks.Load("fel fras")
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestKeyStore_FilePermissions(t *testing.T) {
	ks := newTestKeyStore(t)
	require.NoError(t, ks.Save("sk-ant-test-key-123", "fras"))

	info, err := os.Stat(ks.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestKeyStore_CiphertextNotPlaintext(t *testing.T) {
	ks := newTestKeyStore(t)
	secret := "sk-ant-very-secret"
	require.NoError(t, ks.Save(secret, "fras"))

	raw, err := os.ReadFile(ks.path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), secret)
}

func TestKeyStore_SaveOverwrites(t *testing.T) {
	ks := newTestKeyStore(t)
	require.NoError(t, ks.Save("gammal-nyckel", "fras"))
	require.NoError(t, ks.Save("ny-nyckel", "annan fras"))

	got, err := ks.Load("annan fras")
	require.NoError(t, err)
	assert.Equal(t, "ny-nyckel", got)

	// Старая фраза после перезаписи больше не подходит.
	_, err = ks.Load("fras")
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestKeyStore_Delete(t *testing.T) {
	ks := newTestKeyStore(t)
	require.NoError(t, ks.Save("nyckel", "fras"))
	require.NoError(t, ks.Delete())
	assert.False(t, ks.Exists())

	// Повторное удаление несуществующего файла не считается ошибкой.
	assert.NoError(t, ks.Delete())
}
