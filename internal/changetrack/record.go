package changetrack

import "time"

// Record is the fingerprint of the artifact last published at Path.
type Record struct {
	Path      string
	Algorithm Algorithm
	Digest    string
	Size      int64
	UpdatedAt time.Time
}

// Backend persists fingerprint records, one per artifact path. Get returns
// (nil, nil) when no record exists for path. List is ordered by path.
type Backend interface {
	Get(path string) (*Record, error)
	Set(rec *Record) error
	List() ([]*Record, error)
	Count() (int, error)
	Close() error
}
