package digest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchecker/datachecker/internal/digest"
)

func writeTmp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "f.bin")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOfIsDeterministicAndSensitiveToContent(t *testing.T) {
	p1 := writeTmp(t, "hello world")
	p2 := writeTmp(t, "hello world")
	p3 := writeTmp(t, "goodbye world")

	for _, alg := range []string{"sha-256", "md5", "sha1", "blake3", "blake2b-256", "blake2s-256", "sha3-256", "ascon256"} {
		d1, err := digest.Of(alg, p1, 4)
		require.NoError(t, err, alg)
		d2, err := digest.Of(alg, p2, 64)
		require.NoError(t, err, alg)
		d3, err := digest.Of(alg, p3, 1024)
		require.NoError(t, err, alg)

		assert.Equal(t, d1, d2, "alg %s: identical content must hash identically regardless of chunk size", alg)
		assert.NotEqual(t, d1, d3, "alg %s: different content must hash differently", alg)
	}
}

func TestSizeMatchesDigestLength(t *testing.T) {
	cases := map[string]int{
		"md5":          16,
		"sha1":         20,
		"sha-224":      28,
		"sha-256":      32,
		"sha-256t192":  24,
		"sha-384":      48,
		"sha-512":      64,
		"sha-512_224":  28,
		"sha-512_256":  32,
		"sha3-224":     28,
		"sha3-256":     32,
		"sha3-384":     48,
		"sha3-512":     64,
		"blake3":       32,
		"blake2b-128":  16,
		"blake2b-160":  20,
		"blake2b-256":  32,
		"blake2b-384":  48,
		"blake2b-512":  64,
		"blake2s-128":  16,
		"blake2s-160":  20,
		"blake2s-224":  28,
		"blake2s-256":  32,
		"ascon256":     32,
	}
	p := writeTmp(t, "some content")
	for alg, want := range cases {
		d, err := digest.Of(alg, p, 0)
		require.NoError(t, err, alg)
		assert.Len(t, d, want, alg)
		sz, err := digest.Size(alg)
		require.NoError(t, err, alg)
		assert.Equal(t, want, sz, alg)
	}
}

func TestHexOfIsLowercase(t *testing.T) {
	p := writeTmp(t, "x")
	h, err := digest.HexOf("sha-256", p, 0)
	require.NoError(t, err)
	for _, r := range h {
		assert.False(t, r >= 'A' && r <= 'F', "hex must be lowercase")
	}
	assert.Len(t, h, 64)
}

func TestUnsupportedAlgorithm(t *testing.T) {
	assert.False(t, digest.Supported("rot13"))
	_, err := digest.Of("rot13", writeTmp(t, "x"), 0)
	assert.Error(t, err)
}

func TestOfMissingFile(t *testing.T) {
	_, err := digest.Of("sha-256", "/nonexistent/path", 0)
	assert.Error(t, err)
}
