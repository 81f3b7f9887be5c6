package directory

import (
	"context"
	"hash/fnv"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"taigabot/internal/eventbus"
	"taigabot/internal/runtime/filewatch"
	"taigabot/pkg/logx"
)

// Reloaded is published on eventbus.TopicUsersReloaded.
type Reloaded struct {
	Path     string
	Users    int
	Problems int
}

// Store holds the current Snapshot of a users file.
type Store struct {
	log logx.Logger
	bus eventbus.Bus

	// mu serializes loads; readers only touch cur.
	mu       sync.Mutex
	path     string
	lastHash uint64

	cur atomic.Pointer[Snapshot]
}

func NewStore(path string, log logx.Logger, bus eventbus.Bus) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Store{path: path, log: log, bus: bus}
	s.cur.Store(NewSnapshot(nil))
	return s
}

func (s *Store) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Current returns the snapshot to use for one unit of work.
func (s *Store) Current() *Snapshot { return s.cur.Load() }

// Load reads the file and replaces the snapshot. On error the previous
// snapshot stays in place.
func (s *Store) Load() error {
	_, err := s.load(true)
	return err
}

// SetPath points the store at a new file and loads it. The old path is kept
// when the new file cannot be read.
func (s *Store) SetPath(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path == s.path {
		return nil
	}
	snap, h, err := readSnapshot(path)
	if err != nil {
		return err
	}
	s.path = path
	s.commitLocked(snap, h)
	return nil
}

// Reload re-reads the file and reports whether a new snapshot was installed.
// Unchanged content is ignored.
func (s *Store) Reload(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	changed, err := s.load(false)
	if err != nil {
		s.log.Warn("users reload rejected, keeping previous directory",
			logx.String("path", s.Path()),
			logx.Err(err))
		return false
	}
	return changed
}

func (s *Store) load(force bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, h, err := readSnapshot(s.path)
	if err != nil {
		return false, err
	}
	if !force && h == s.lastHash {
		return false, nil
	}
	s.commitLocked(snap, h)
	return true, nil
}

func (s *Store) commitLocked(snap *Snapshot, h uint64) {
	s.cur.Store(snap)
	s.lastHash = h

	problems := snap.Problems()
	s.log.Info("users loaded",
		logx.String("path", s.path),
		logx.Int("users", snap.Len()),
		logx.Int("problems", len(problems)))
	for _, p := range problems {
		s.log.Warn("users file problem", logx.String("user_id", p.UserID), logx.String("problem", p.Message))
	}
	eventbus.Publish(s.bus, eventbus.TopicUsersReloaded, Reloaded{Path: s.path, Users: snap.Len(), Problems: len(problems)})
}

func readSnapshot(path string) (*Snapshot, uint64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	snap, err := Parse(path, b)
	if err != nil {
		return nil, 0, err
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return snap, h.Sum64(), nil
}

// Watch reloads on file changes until ctx is done.
func (s *Store) Watch(ctx context.Context, debounce time.Duration) error {
	opts := []filewatch.Option{filewatch.WithLogger(s.log.With(logx.String("comp", "users.watch")))}
	if debounce > 0 {
		opts = append(opts, filewatch.WithDebounce(debounce))
	}
	w := filewatch.New(s.Path(), func(c context.Context) { s.Reload(c) }, opts...)
	return w.Run(ctx)
}
