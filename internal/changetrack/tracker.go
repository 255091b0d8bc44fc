// Package changetrack decides whether an artifact needs to be republished by
// comparing the content hash of the file with the one recorded at its last
// successful publication.
package changetrack

import (
	"fmt"
	"time"

	"github.com/opendatabs/odsync/internal/utils"
)

// Check is the outcome of comparing an artifact against its stored fingerprint.
type Check struct {
	Path    string
	Changed bool
	Current string
	Size    int64
	// Stored is nil when the artifact was never published.
	Stored *Record
}

// Tracker computes fingerprints and consults a Backend.
type Tracker struct {
	backend   Backend
	algorithm Algorithm
	now       func() time.Time
}

func NewTracker(backend Backend, algo Algorithm) (*Tracker, error) {
	if _, err := algo.newHash(); err != nil {
		return nil, err
	}
	return &Tracker{
		backend:   backend,
		algorithm: algo,
		now:       time.Now,
	}, nil
}

func (t *Tracker) Algorithm() Algorithm {
	return t.algorithm
}

// Records lists every stored fingerprint with the total count.
func (t *Tracker) Records() ([]*Record, int, error) {
	records, err := t.backend.List()
	if err != nil {
		return nil, 0, err
	}
	count, err := t.backend.Count()
	if err != nil {
		return nil, 0, err
	}
	return records, count, nil
}

// key normalizes artifact paths so that ./export.csv and export.csv share a record.
func key(path string) (string, error) {
	resolved, err := utils.ResolvePath(path)
	if err != nil {
		return "", fmt.Errorf("resolve artifact path: %w", err)
	}
	return resolved, nil
}

// Check hashes the artifact and compares it with the stored record. A record
// hashed with another algorithm counts as changed.
func (t *Tracker) Check(path string) (*Check, error) {
	k, err := key(path)
	if err != nil {
		return nil, err
	}

	digest, size, err := Digest(k, t.algorithm)
	if err != nil {
		return nil, err
	}

	stored, err := t.backend.Get(k)
	if err != nil {
		return nil, err
	}

	changed := stored == nil || stored.Algorithm != t.algorithm || stored.Digest != digest
	return &Check{
		Path:    k,
		Changed: changed,
		Current: digest,
		Size:    size,
		Stored:  stored,
	}, nil
}

// HasChanged reports whether the artifact differs from its last published
// version or was never published. It fails if path cannot be read.
func (t *Tracker) HasChanged(path string) (bool, error) {
	c, err := t.Check(path)
	if err != nil {
		return false, err
	}
	return c.Changed, nil
}

// Update recomputes the fingerprint of path and persists it. Call it only
// after the artifact was delivered successfully.
func (t *Tracker) Update(path string) error {
	k, err := key(path)
	if err != nil {
		return err
	}

	digest, size, err := Digest(k, t.algorithm)
	if err != nil {
		return err
	}
	return t.UpdateDigest(k, digest, size)
}

// UpdateDigest persists a digest computed earlier, typically Check.Current of
// the content that was actually delivered. The file is not read again.
func (t *Tracker) UpdateDigest(path, digest string, size int64) error {
	k, err := key(path)
	if err != nil {
		return err
	}

	return t.backend.Set(&Record{
		Path:      k,
		Algorithm: t.algorithm,
		Digest:    digest,
		Size:      size,
		UpdatedAt: t.now(),
	})
}

func (t *Tracker) Close() error {
	return t.backend.Close()
}
