// Package digest computes hex-encoded cryptographic digests of byte buffers
// and files under a selectable algorithm. Whole-file digests stream the
// source so memory footprint never scales with file size.
package digest

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/resumable/uploadkit/internal/uploaderr"
)

// Algorithm identifies a supported hash function.
type Algorithm string

// Supported algorithms, matching configuration option checksum_algorithm.
const (
	SHA256 Algorithm = "sha-256"
	SHA384 Algorithm = "sha-384"
	SHA512 Algorithm = "sha-512"
)

// ParseAlgorithm validates a configured algorithm name before any I/O is
// attempted, so a typo in configuration fails fast with ConfigError rather
// than surfacing as a confusing read failure later.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case SHA256, SHA384, SHA512:
		return Algorithm(name), nil
	default:
		return "", uploaderr.New(uploaderr.CodeConfigError, false,
			fmt.Sprintf("unknown checksum algorithm %q", name), nil)
	}
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New(), nil
	case SHA384:
		return sha512.New384(), nil
	case SHA512:
		return sha512.New(), nil
	default:
		return nil, uploaderr.New(uploaderr.CodeConfigError, false,
			fmt.Sprintf("unknown checksum algorithm %q", a), nil)
	}
}

// Bytes returns the hex digest of a byte buffer under algorithm a.
func (a Algorithm) Bytes(b []byte) (string, error) {
	h, err := a.newHash()
	if err != nil {
		return "", err
	}

	h.Write(b)

	return hex.EncodeToString(h.Sum(nil)), nil
}

// File streams the file at path and returns its hex digest under algorithm a.
// Streaming keeps memory usage constant regardless of file size. Read
// failures are classified as IoError.
func (a Algorithm) File(path string) (string, error) {
	h, err := a.newHash()
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", uploaderr.New(uploaderr.CodeIoError, false,
			fmt.Sprintf("opening %s for digest: %v", path, err), nil)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", uploaderr.New(uploaderr.CodeIoError, false,
			fmt.Sprintf("reading %s for digest: %v", path, err), nil)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
