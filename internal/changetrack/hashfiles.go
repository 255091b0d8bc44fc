package changetrack

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/opendatabs/odsync/internal/utils"
)

// HashFiles is a Backend keeping one md5sum-style file per artifact in a
// state directory. The file name is derived from the artifact path so that
// artifacts with equal base names in different directories do not collide.
type HashFiles struct {
	dir string
}

func NewHashFiles(dir string) (*HashFiles, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create hash file directory: %w", err)
	}
	return &HashFiles{dir: dir}, nil
}

func (h *HashFiles) fileFor(path string) string {
	sum := sha256.Sum256([]byte(path))
	return filepath.Join(h.dir, hex.EncodeToString(sum[:16])+".hash")
}

func (h *HashFiles) Get(path string) (*Record, error) {
	rec, err := readHashFile(h.fileFor(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("hash file for %s: %w", path, err)
	}
	if rec.Path != path {
		return nil, fmt.Errorf("hash file for %s is malformed", path)
	}
	return rec, nil
}

// List reads every hash file in the directory, ordered by artifact path.
func (h *HashFiles) List() ([]*Record, error) {
	names, err := filepath.Glob(filepath.Join(h.dir, "*.hash"))
	if err != nil {
		return nil, err
	}

	records := make([]*Record, 0, len(names))
	for _, name := range names {
		rec, err := readHashFile(name)
		if err != nil {
			slog.Warn("skipping unreadable hash file", "file", name, "error", err)
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records, nil
}

func (h *HashFiles) Count() (int, error) {
	records, err := h.List()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// readHashFile parses "<digest>  <path>" plus the trailing
// "# algorithm size updated_at" line.
func readHashFile(name string) (*Record, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("empty hash file")
	}
	digest, path, ok := strings.Cut(scanner.Text(), "  ")
	if !ok || digest == "" || path == "" {
		return nil, errors.New("malformed hash file")
	}
	rec := &Record{Path: path, Digest: digest, Algorithm: DefaultAlgorithm}

	if scanner.Scan() {
		var algo, updated string
		if _, err := fmt.Sscanf(scanner.Text(), "# %s %d %s", &algo, &rec.Size, &updated); err == nil {
			rec.Algorithm = Algorithm(algo)
			if ts, err := time.Parse(time.RFC3339, updated); err == nil {
				rec.UpdatedAt = ts
			}
		}
	}
	return rec, scanner.Err()
}

func (h *HashFiles) Set(rec *Record) error {
	if rec == nil {
		return ErrNilRecord
	}
	content := fmt.Sprintf("%s  %s\n# %s %d %s\n",
		rec.Digest, rec.Path, rec.Algorithm, rec.Size, rec.UpdatedAt.UTC().Format(time.RFC3339))
	return utils.WriteFileAtomic(h.fileFor(rec.Path), []byte(content), 0o644)
}

func (h *HashFiles) Close() error {
	return nil
}
