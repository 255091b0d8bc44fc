package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/opendatabs/odsync/internal/table"
	"gopkg.in/yaml.v3"
)

const (
	DestinationFTP      = "ftp"
	DestinationS3       = "s3"
	DestinationRealtime = "realtime"
)

var (
	ErrNoJobs       = errors.New("manifest: no jobs")
	ErrInvalidJob   = errors.New("manifest: invalid job")
	ErrDuplicateJob = errors.New("manifest: duplicate job name")
)

// Push holds the realtime API settings of a job.
type Push struct {
	URL       string `yaml:"url"`
	Key       string `yaml:"key"`
	APIKey    string `yaml:"api_key,omitempty"`
	DeleteURL string `yaml:"delete_url,omitempty"`
}

// Job publishes the artifacts matching its globs to one destination.
type Job struct {
	Name        string   `yaml:"name"`
	Artifacts   []string `yaml:"artifacts"`
	Destination string   `yaml:"destination"`
	RemoteDir   string   `yaml:"remote_dir,omitempty"`
	Push        *Push    `yaml:"push,omitempty"`
	// ODSDataset lists the dataset uids (comma separated) to publish after
	// each delivered artifact.
	ODSDataset string `yaml:"ods_dataset,omitempty"`
	Delimiter  string `yaml:"delimiter,omitempty"`
	InferTypes bool   `yaml:"infer_types,omitempty"`
	Force      bool   `yaml:"force,omitempty"`
}

type Manifest struct {
	Jobs []*Job `yaml:"jobs"`
	// Dir anchors relative artifact globs, the manifest's directory when loaded from a file.
	Dir string `yaml:"-"`
}

func LoadManifest(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return ParseManifest(file, dir)
}

func ParseManifest(r io.Reader, dir string) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoJobs
		}
		return nil, fmt.Errorf("manifest: %w", err)
	}
	m.Dir = dir

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) Validate() error {
	if len(m.Jobs) == 0 {
		return ErrNoJobs
	}

	seen := make(map[string]bool, len(m.Jobs))
	for i, job := range m.Jobs {
		if job == nil {
			return fmt.Errorf("%w: jobs[%d] is empty", ErrInvalidJob, i)
		}
		if err := job.Validate(); err != nil {
			return err
		}
		if seen[job.Name] {
			return fmt.Errorf("%w %q", ErrDuplicateJob, job.Name)
		}
		seen[job.Name] = true
	}
	return nil
}

func (j *Job) Validate() error {
	if strings.TrimSpace(j.Name) == "" {
		return fmt.Errorf("%w: name missing", ErrInvalidJob)
	}
	if len(j.Artifacts) == 0 {
		return fmt.Errorf("%w %q: no artifacts", ErrInvalidJob, j.Name)
	}

	switch j.Destination {
	case DestinationFTP, DestinationS3:
	case DestinationRealtime:
		if j.Push == nil || j.Push.URL == "" || j.Push.Key == "" {
			return fmt.Errorf("%w %q: realtime needs push.url and push.key", ErrInvalidJob, j.Name)
		}
	default:
		return fmt.Errorf("%w %q: unknown destination %q", ErrInvalidJob, j.Name, j.Destination)
	}

	if j.Delimiter != "" && utf8.RuneCountInString(j.Delimiter) != 1 {
		return fmt.Errorf("%w %q: delimiter must be a single character", ErrInvalidJob, j.Name)
	}
	return nil
}

// Datasets returns the uids of ODSDataset.
func (j *Job) Datasets() []string {
	var uids []string
	for _, uid := range strings.Split(j.ODSDataset, ",") {
		if uid = strings.TrimSpace(uid); uid != "" {
			uids = append(uids, uid)
		}
	}
	return uids
}

func (j *Job) TableOptions() table.Options {
	opts := table.Options{Comma: ',', InferTypes: j.InferTypes}
	if j.Delimiter != "" {
		opts.Comma, _ = utf8.DecodeRuneInString(j.Delimiter)
	}
	return opts
}
