package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumable/uploadkit/internal/uploaderr"
)

func TestParseAlgorithm_Valid(t *testing.T) {
	for _, name := range []string{"sha-256", "sha-384", "sha-512"} {
		algo, err := ParseAlgorithm(name)
		require.NoError(t, err)
		assert.Equal(t, Algorithm(name), algo)
	}
}

func TestParseAlgorithm_Unknown(t *testing.T) {
	_, err := ParseAlgorithm("md5")
	require.Error(t, err)

	var ue *uploaderr.Error
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, uploaderr.CodeConfigError, ue.Code)
	assert.False(t, ue.Retryable())
}

func TestBytes_MatchesStdlibSHA256(t *testing.T) {
	data := []byte("hello uploadkit")

	got, err := SHA256.Bytes(data)
	require.NoError(t, err)

	want := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(want[:]), got)
}

func TestFile_StreamsAndMatchesBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")
	content := []byte("streamed content for digest comparison")

	require.NoError(t, os.WriteFile(path, content, 0o644))

	fromFile, err := SHA256.File(path)
	require.NoError(t, err)

	fromBytes, err := SHA256.Bytes(content)
	require.NoError(t, err)

	assert.Equal(t, fromBytes, fromFile)
}

func TestFile_MissingFile(t *testing.T) {
	_, err := SHA256.File("/nonexistent/path/does-not-exist")
	require.Error(t, err)

	var ue *uploaderr.Error
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, uploaderr.CodeIoError, ue.Code)
}

func TestFile_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	got, err := SHA256.File(path)
	require.NoError(t, err)

	want := sha256.Sum256(nil)
	assert.Equal(t, hex.EncodeToString(want[:]), got)
}
