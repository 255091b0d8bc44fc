package changetrack

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

// Algorithm names the content hash used for fingerprints.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"

	// DefaultAlgorithm matches the md5 hash files kept by existing jobs.
	DefaultAlgorithm = MD5
)

// ParseAlgorithm accepts the algorithm name case-insensitively. An empty
// name yields DefaultAlgorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(name))); a {
	case "":
		return DefaultAlgorithm, nil
	case MD5, SHA256, BLAKE3:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case MD5:
		return md5.New(), nil
	case SHA256:
		return sha256.New(), nil
	case BLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
	}
}

// DigestReader hashes everything read from r and returns the lowercase hex
// digest together with the number of bytes consumed.
func DigestReader(r io.Reader, algo Algorithm) (string, int64, error) {
	h, err := algo.newHash()
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Digest hashes the file at path.
func Digest(path string, algo Algorithm) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	digest, size, err := DigestReader(f, algo)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return digest, size, nil
}
