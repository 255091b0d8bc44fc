package publish

import (
	"context"
	"path/filepath"
)

// Artifact is a local file produced by a job.
type Artifact struct {
	Path string
	// Name is the remote file name, the base name of Path when empty.
	Name string
}

func NewArtifact(path string) *Artifact {
	return &Artifact{Path: path}
}

func (a *Artifact) RemoteName() string {
	if a.Name != "" {
		return a.Name
	}
	return filepath.Base(a.Path)
}

// Destination delivers an artifact's bytes somewhere remote.
type Destination interface {
	Name() string
	Deliver(ctx context.Context, a *Artifact) error
}
