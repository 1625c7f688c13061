// Package store indexes the replay clips the checker writes, for the status
// API and for keeping the output directory inside its disk budget.
package store

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"keypad-hil/pkg/utils"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger()
}

const defaultDirPerm = 0o755

// clipExts are the file types the checker and the record tool produce.
var clipExts = []string{".mp4", ".avi"}

// Clip describes one stored replay file.
type Clip struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	HumanSize string    `json:"humanSize"`
	ModTime   time.Time `json:"modTime"`
}

// Store lists and prunes clips under one directory. It holds no state beyond
// the path, so concurrent use is safe as long as the filesystem is.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("store dir can not be empty")
	}
	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func isClip(name string) bool {
	for _, ext := range clipExts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// List returns the stored clips, newest first.
func (s *Store) List() ([]Clip, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read store dir: %w", err)
	}

	clips := make([]Clip, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isClip(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		clips = append(clips, Clip{
			Name:      e.Name(),
			Size:      info.Size(),
			HumanSize: humanize.Bytes(uint64(info.Size())),
			ModTime:   info.ModTime(),
		})
	}
	sort.Slice(clips, func(i, j int) bool {
		return clips[i].ModTime.After(clips[j].ModTime)
	})
	return clips, nil
}

// Usage returns the total clip bytes and a humanized rendering of them.
func (s *Store) Usage() (int64, string, error) {
	clips, err := s.List()
	if err != nil {
		return 0, "", err
	}
	var total int64
	for _, c := range clips {
		total += c.Size
	}
	return total, humanize.Bytes(uint64(total)), nil
}

// Path resolves a clip name inside the store, refusing anything that would
// escape the directory.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name != path.Base(name) || !isClip(name) {
		return "", fmt.Errorf("invalid clip name %q", name)
	}
	p := path.Join(s.dir, name)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("clip %s: %w", name, err)
	}
	return p, nil
}

// Prune deletes the oldest clips until total usage fits the byte budget,
// returning the removed names.
func (s *Store) Prune(budget int64) ([]string, error) {
	clips, err := s.List()
	if err != nil {
		return nil, err
	}
	var total int64
	for _, c := range clips {
		total += c.Size
	}
	if total <= budget {
		return nil, nil
	}

	var removed []string
	for i := len(clips) - 1; i >= 0 && total > budget; i-- {
		c := clips[i]
		if err := os.Remove(path.Join(s.dir, c.Name)); err != nil {
			return removed, fmt.Errorf("prune %s: %w", c.Name, err)
		}
		total -= c.Size
		removed = append(removed, c.Name)
		logger.Infof("pruned replay clip %s (%s)", c.Name, c.HumanSize)
	}
	return removed, nil
}
