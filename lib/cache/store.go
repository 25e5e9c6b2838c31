// Package cache keeps encoded artifacts in a single cache directory.
// Files are only ever created by Persist and removed by Purge.
package cache

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-multierror"
	"github.com/nvlled/gifburst/lib/failure"
	"github.com/nvlled/gifburst/lib/logger"
)

var (
	ErrPersist = failure.New(failure.PersistFailure, "An error occurred while trying to save the gif to the cache.")
	ErrPurge   = failure.New(failure.PurgeFailure, "An error occurred deleting the cached files.")
)

const DefaultExt = ".gif"

// Handle locates a persisted artifact.
type Handle struct {
	Path string
	Size int64
}

func (h Handle) URI() string {
	path := h.Path
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

func (h Handle) Name() string { return filepath.Base(h.Path) }


type Option func(*Store)

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithExt(ext string) Option { return func(s *Store) { s.ext = ext } }

func WithLogger(log *logger.Logger) Option { return func(s *Store) { s.log = logger.OrNop(log) } }

// Store serializes access to its directory within the process with a mutex
// and across processes with a lock file placed beside the directory.
type Store struct {
	mu   sync.Mutex
	dir  string
	ext  string
	lock *flock.Flock
	now  func() time.Time
	log  *logger.Logger
}

func NewStore(dir string, opts ...Option) *Store {
	dir = filepath.Clean(dir)
	s := &Store{
		dir:  dir,
		ext:  DefaultExt,
		lock: flock.New(dir + ".lock"),
		now:  time.Now,
		log:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) acquire() (func(), error) {
	s.mu.Lock()
	if err := os.MkdirAll(filepath.Dir(s.dir), 0o755); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := s.lock.Lock(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return func() {
		if err := s.lock.Unlock(); err != nil {
			s.log.Warn().Err(err).Str("lock", s.lock.Path()).Msg("unlock failed")
		}
		s.mu.Unlock()
	}, nil
}

// Persist writes data to a new file named after the current time. The
// returned handle always refers to a file of exactly len(data) bytes.
func (s *Store) Persist(data []byte) (Handle, error) {
	if len(data) == 0 {
		return Handle{}, ErrPersist.With(errors.New("empty artifact"))
	}
	release, err := s.acquire()
	if err != nil {
		return Handle{}, s.persistFailed(err)
	}
	defer release()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Handle{}, s.persistFailed(err)
	}

	path, err := s.freePath(BuildFileName(s.now()) + s.ext)
	if err != nil {
		return Handle{}, s.persistFailed(err)
	}
	if err := writeFile(s.dir, path, data); err != nil {
		return Handle{}, s.persistFailed(err)
	}

	handle := Handle{Path: path, Size: int64(len(data))}
	s.log.Info().Str("path", path).Int64("size", handle.Size).Msg("artifact persisted")
	return handle, nil
}

func (s *Store) persistFailed(err error) error {
	s.log.Error().Err(err).Str("dir", s.dir).Msg("persist failed")
	return ErrPersist.With(err)
}

// freePath returns a path for name inside the store directory that is not
// taken yet, adding a -N counter on collision.
func (s *Store) freePath(name string) (string, error) {
	path := filepath.Join(s.dir, name)
	for n := 1; ; n++ {
		_, err := os.Lstat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", err
		}
		path = filepath.Join(s.dir, Numbered(name, n))
	}
}

// writeFile stages data in a temporary file and renames it into place, so
// path never holds a partial artifact.
func writeFile(dir, path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(dir, ".persist-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() != int64(len(data)) {
		_ = os.Remove(path)
		return errors.New("short write")
	}
	return nil
}

// List returns the persisted artifacts, ordered by name.
func (s *Store) List() ([]Handle, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var handles []Handle
	for _, entry := range entries {
		if !entry.Type().IsRegular() || filepath.Ext(entry.Name()) != s.ext {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		handles = append(handles, Handle{Path: filepath.Join(s.dir, entry.Name()), Size: info.Size()})
	}
	return handles, nil
}

// Purge deletes every entry of the cache directory and reports how many
// were removed. It keeps going past individual failures; a missing or empty
// directory is not an error.
func (s *Store) Purge() (int, error) {
	release, err := s.acquire()
	if err != nil {
		s.log.Warn().Err(err).Str("dir", s.dir).Msg("purge skipped")
		return 0, ErrPurge.With(err)
	}
	defer release()

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		s.log.Warn().Err(err).Str("dir", s.dir).Msg("purge failed")
		return 0, ErrPurge.With(err)
	}

	var result *multierror.Error
	removed := 0
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(s.dir, entry.Name())); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		removed++
	}

	if err := result.ErrorOrNil(); err != nil {
		s.log.Warn().Err(err).Int("removed", removed).Int("failed", result.Len()).Msg("purge incomplete")
		return removed, ErrPurge.With(err)
	}
	s.log.Debug().Int("removed", removed).Str("dir", s.dir).Msg("cache purged")
	return removed, nil
}
