// Package snapshot reads the capture files a crawler drops under
// <root>/<date dir>/<epoch seconds>.<ext>, one whitespace-delimited
// identifier list per file.
package snapshot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

const (
	DefaultExtension = "cwl"

	// maxTokenSize bounds a single identifier; anything longer marks the file malformed.
	maxTokenSize = 64 * 1024
)

var (
	ErrRootNotFound      = errors.New("snapshot root not found")
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)

// Snapshot is one capture file. Its identifiers are read on demand.
type Snapshot struct {
	Path      string
	Timestamp int64
}

// IdentifierSet holds the distinct identifiers of one snapshot.
type IdentifierSet map[string]struct{}

func (s IdentifierSet) Len() int {
	return len(s)
}

// Sorted returns the identifiers in lexical order.
func (s IdentifierSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Source enumerates and reads snapshots below one root directory.
type Source struct {
	fs   afero.Fs
	root string
	ext  string
}

func NewSource(fs afero.Fs, root, ext string) (*Source, error) {
	if ext == "" {
		ext = DefaultExtension
	}
	info, err := fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRootNotFound, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootNotFound, root)
	}
	return &Source{fs: fs, root: root, ext: strings.TrimPrefix(ext, ".")}, nil
}

func (s *Source) Root() string {
	return s.root
}

func (s *Source) Fs() afero.Fs {
	return s.fs
}

// ListSince returns every snapshot newer than ts. Date directories are
// visited in lexical order and files within each by timestamp. Names that do
// not look like <digits>.<ext> are ignored. Repeated timestamps keep the first file.
func (s *Source) ListSince(ctx context.Context, ts int64) ([]Snapshot, error) {
	dirs, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, fmt.Errorf("list snapshot root %s: %w", s.root, err)
	}

	var (
		out  []Snapshot
		seen = make(map[int64]string)
	)
	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dirPath := filepath.Join(s.root, dir.Name())
		files, err := afero.ReadDir(s.fs, dirPath)
		if err != nil {
			return nil, fmt.Errorf("list snapshot dir %s: %w", dirPath, err)
		}

		var batch []Snapshot
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			stamp, ok := s.parseName(f.Name())
			if !ok || stamp <= ts {
				continue
			}
			batch = append(batch, Snapshot{Path: filepath.Join(dirPath, f.Name()), Timestamp: stamp})
		}
		sort.SliceStable(batch, func(i, j int) bool { return batch[i].Timestamp < batch[j].Timestamp })

		for _, snap := range batch {
			if first, dup := seen[snap.Timestamp]; dup {
				slog.Warn("[Snapshot] Duplicate timestamp, keeping first file",
					"timestamp", snap.Timestamp,
					"kept", first,
					"ignored", snap.Path)
				continue
			}
			seen[snap.Timestamp] = snap.Path
			out = append(out, snap)
		}
	}
	return out, nil
}

func (s *Source) parseName(name string) (int64, bool) {
	stem, ok := strings.CutSuffix(name, "."+s.ext)
	if !ok || stem == "" {
		return 0, false
	}
	for _, r := range stem {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	ts, err := strconv.ParseInt(stem, 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

// Read returns the distinct identifiers of snap. Failures wrap ErrMalformedSnapshot.
func (s *Source) Read(ctx context.Context, snap Snapshot) (IdentifierSet, error) {
	f, err := s.fs.Open(snap.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrMalformedSnapshot, snap.Path, err)
	}
	defer f.Close()

	set := make(IdentifierSet)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTokenSize)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		set[scanner.Text()] = struct{}{}
		if len(set)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrMalformedSnapshot, snap.Path, err)
	}
	return set, nil
}
