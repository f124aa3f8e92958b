package vault

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var testParams = params{n: 1 << 10, r: 8, p: 1}

func TestSealOpen_RoundTrip(t *testing.T) {
	creds := Credentials{Username: "fox", APIKey: "abc123"}
	data, err := seal(creds, "hunter2", testParams)
	require.NoError(t, err)
	require.NotContains(t, string(data), "abc123")

	got, err := Open(data, "hunter2")
	require.NoError(t, err)
	require.Equal(t, creds, got)
}

func TestOpen_WrongPassphrase(t *testing.T) {
	data, err := seal(Credentials{Username: "fox", APIKey: "k"}, "right", testParams)
	require.NoError(t, err)

	_, err = Open(data, "wrong")
	require.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestOpen_TamperedCipher(t *testing.T) {
	data, err := seal(Credentials{Username: "fox", APIKey: "k"}, "pass", testParams)
	require.NoError(t, err)

	var bl blob
	require.NoError(t, json.Unmarshal(data, &bl))
	bl.Cipher[0] ^= 0xff
	tampered, err := json.Marshal(bl)
	require.NoError(t, err)

	_, err = Open(tampered, "pass")
	require.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestOpen_RejectsNewerVersionAndGarbage(t *testing.T) {
	data, err := seal(Credentials{}, "pass", testParams)
	require.NoError(t, err)
	var bl blob
	require.NoError(t, json.Unmarshal(data, &bl))
	bl.V = formatVersion + 1
	newer, err := json.Marshal(bl)
	require.NoError(t, err)

	_, err = Open(newer, "pass")
	require.ErrorContains(t, err, "unsupported credentials version")

	_, err = Open([]byte("not json"), "pass")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrWrongPassphrase))
}

func TestEmptyPassphrase(t *testing.T) {
	_, err := Seal(Credentials{}, "")
	require.ErrorIs(t, err, ErrEmptyPassphrase)
	_, err = Open([]byte("{}"), "")
	require.ErrorIs(t, err, ErrEmptyPassphrase)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	require.False(t, Exists(path))

	creds := Credentials{Username: "fox", APIKey: "abc"}
	require.NoError(t, Save(path, creds, "pass"))
	require.True(t, Exists(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := Load(path, "pass")
	require.NoError(t, err)
	require.Equal(t, creds, got)

	// Saving again replaces the file and leaves no temp files behind.
	require.NoError(t, Save(path, Credentials{Username: "wolf", APIKey: "def"}, "pass"))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	_, err = Load(path, "nope")
	require.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.json"), "pass")
	require.ErrorIs(t, err, os.ErrNotExist)
}
