package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"ytscribe/internal/fileutil"
	"ytscribe/internal/logging"
	"ytscribe/internal/services"
)

// TimestampLayout names snapshot directories.
const TimestampLayout = "2006-01-02_15-04-05"

const (
	stageArchive = "archive"
	maxSuffix    = 10000
)

// Snapshot describes one archived output tree.
type Snapshot struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Entries   int       `json:"entries"`
}

// Manager moves output trees into timestamped snapshots under Root.
type Manager struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Manager rooted at archiveRoot. A nil clock uses time.Now.
func New(archiveRoot string, logger *slog.Logger, clock func() time.Time) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		root:   archiveRoot,
		logger: logging.NewComponentLogger(logger, "archive"),
		now:    clock,
	}
}

// Root returns the archive root directory.
func (m *Manager) Root() string {
	return m.root
}

// ArchiveExisting moves every entry of outputRoot into a new snapshot
// directory and returns it. A missing or empty outputRoot is a no-op that
// returns a zero Snapshot. outputRoot itself is kept so the run can write
// into it.
func (m *Manager) ArchiveExisting(outputRoot string) (Snapshot, error) {
	outputRoot = strings.TrimSpace(outputRoot)
	if outputRoot == "" {
		return Snapshot{}, services.Wrap(services.ErrConfiguration, stageArchive, "archive_existing", "output root is empty", nil)
	}
	entries, err := os.ReadDir(outputRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, nil
		}
		return Snapshot{}, services.Wrap(services.ErrCacheIO, stageArchive, "archive_existing", "read output directory", err)
	}
	if len(entries) == 0 {
		return Snapshot{}, nil
	}

	created := m.now()
	dir, err := m.claim(created)
	if err != nil {
		return Snapshot{}, err
	}
	snapshot := Snapshot{Path: dir, Name: filepath.Base(dir), CreatedAt: created}

	for _, entry := range entries {
		src := filepath.Join(outputRoot, entry.Name())
		dst := filepath.Join(dir, entry.Name())
		if err := fileutil.MovePath(src, dst); err != nil {
			return snapshot, services.Wrap(services.ErrCacheIO, stageArchive, "archive_existing",
				fmt.Sprintf("move %s into %s (%d of %d entries moved)", entry.Name(), dir, snapshot.Entries, len(entries)), err)
		}
		snapshot.Entries++
		m.logger.Debug("archived output entry",
			logging.String("name", entry.Name()),
			logging.String("snapshot", snapshot.Name))
	}

	m.logger.Info("archived previous transcripts",
		logging.String("path", dir),
		logging.Int("entries", snapshot.Entries),
		logging.String(logging.FieldEventType, "archive_created"))
	return snapshot, nil
}

// claim creates a fresh snapshot directory for ts, adding a numeric suffix
// when the second is already taken.
func (m *Manager) claim(ts time.Time) (string, error) {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return "", services.Wrap(services.ErrCacheIO, stageArchive, "claim", "create archive root", err)
	}
	base := ts.Format(TimestampLayout)
	for n := 0; n < maxSuffix; n++ {
		name := base
		if n > 0 {
			name = base + "_" + strconv.Itoa(n)
		}
		dir := filepath.Join(m.root, name)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", services.Wrap(services.ErrCacheIO, stageArchive, "claim", "create snapshot directory", err)
		}
	}
	return "", services.Wrap(services.ErrCacheIO, stageArchive, "claim",
		fmt.Sprintf("no free snapshot name for %s", base), nil)
}

// List returns snapshots under the archive root, newest first. Directories
// that do not follow the snapshot naming scheme are ignored.
func (m *Manager) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrCacheIO, stageArchive, "list", "read archive root", err)
	}

	type found struct {
		snapshot Snapshot
		suffix   int
	}
	var all []found
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		created, suffix, ok := parseName(entry.Name())
		if !ok {
			continue
		}
		dir := filepath.Join(m.root, entry.Name())
		children, err := os.ReadDir(dir)
		if err != nil {
			return nil, services.Wrap(services.ErrCacheIO, stageArchive, "list", "read snapshot "+entry.Name(), err)
		}
		all = append(all, found{
			snapshot: Snapshot{Path: dir, Name: entry.Name(), CreatedAt: created, Entries: len(children)},
			suffix:   suffix,
		})
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if !a.snapshot.CreatedAt.Equal(b.snapshot.CreatedAt) {
			return a.snapshot.CreatedAt.After(b.snapshot.CreatedAt)
		}
		return a.suffix > b.suffix
	})

	snapshots := make([]Snapshot, 0, len(all))
	for _, f := range all {
		snapshots = append(snapshots, f.snapshot)
	}
	return snapshots, nil
}

// parseName splits "2006-01-02_15-04-05[_n]" into its time and suffix.
func parseName(name string) (time.Time, int, bool) {
	if len(name) < len(TimestampLayout) {
		return time.Time{}, 0, false
	}
	ts, err := time.ParseInLocation(TimestampLayout, name[:len(TimestampLayout)], time.Local)
	if err != nil {
		return time.Time{}, 0, false
	}
	rest := name[len(TimestampLayout):]
	if rest == "" {
		return ts, 0, true
	}
	digits, ok := strings.CutPrefix(rest, "_")
	if !ok {
		return time.Time{}, 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return time.Time{}, 0, false
	}
	return ts, n, true
}
