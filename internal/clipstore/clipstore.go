// Package clipstore owns the single location the clip is recorded to.
package clipstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/alkime/whistle/internal/audio"
	"github.com/alkime/whistle/internal/session"
)

// DefaultDir returns the directory clips live in unless configured:
//
//	$HOME/Documents/Whistle
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, "Documents", "Whistle"), nil
}

// ErrNoClip is returned when no clip has been recorded.
var ErrNoClip = errors.New("no clip recorded")

// Store is a clip directory and the fixed clip name inside it.
type Store struct {
	dir  string
	name string
}

// New creates a Store. name must be a bare file name.
func New(dir, name string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("clip directory cannot be empty")
	}

	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid clip name %q", name)
	}

	return &Store{dir: dir, name: name}, nil
}

// Dir is the clip directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path is the fixed clip location every recording is written to.
func (s *Store) Path() string {
	return filepath.Join(s.dir, s.name)
}

// FilePath returns another file inside the clip directory.
func (s *Store) FilePath(name string) string {
	return filepath.Join(s.dir, name)
}

// Prep ensures the clip directory exists.
func (s *Store) Prep() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create clip directory %s: %w", s.dir, err)
	}

	return nil
}

// Exists reports whether a clip file is present.
func (s *Store) Exists() bool {
	stat, err := os.Stat(s.Path())
	return err == nil && stat.Mode().IsRegular()
}

// Discard removes the clip. Discarding a missing clip is not an error.
func (s *Store) Discard() error {
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to discard clip: %w", err)
	}

	return nil
}

// Info describes the stored clip. The duration is read by decoding the
// clip.
func (s *Store) Info() (session.ClipInfo, error) {
	path := s.Path()

	stat, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return session.ClipInfo{}, ErrNoClip
	}

	if err != nil {
		return session.ClipInfo{}, fmt.Errorf("failed to stat clip: %w", err)
	}

	duration, err := decodeDuration(path)
	if err != nil {
		return session.ClipInfo{}, err
	}

	return session.ClipInfo{
		Location: path,
		Duration: duration,
		Bytes:    stat.Size(),
	}, nil
}

func decodeDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open clip: %w", err)
	}

	streamer, format, err := audio.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("failed to decode clip: %w", err)
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()), nil
}
