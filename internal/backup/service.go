package backup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pulse/internal/db"
)

const filePrefix = "pulse-"

// Service writes a dated copy of the database once per scheduler period and
// prunes old copies beyond the configured count.
type Service struct {
	repo *db.Repository
	dir  string
	keep int
	log  *slog.Logger
	now  func() time.Time
}

func NewService(repo *db.Repository, dir string, keep int, logger *slog.Logger) *Service {
	if keep <= 0 {
		keep = 7
	}
	return &Service{repo: repo, dir: dir, keep: keep, log: logger, now: time.Now}
}

func (s *Service) Run(ctx context.Context) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.log.Error("create backup dir", "err", err)
		return
	}
	name := filePrefix + s.now().UTC().Format("20060102-150405") + ".db"
	path := filepath.Join(s.dir, name)
	if err := s.repo.BackupTo(ctx, path); err != nil {
		s.log.Error("database backup failed", "err", err)
		return
	}
	s.log.Info("database backup written", "path", path)
	s.prune()
}

func (s *Service) prune() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn("list backups", "err", err)
		return
	}
	var backups []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), filePrefix) && strings.HasSuffix(e.Name(), ".db") {
			backups = append(backups, e.Name())
		}
	}
	if len(backups) <= s.keep {
		return
	}
	// Names embed the timestamp, lexicographic order is chronological.
	sort.Strings(backups)
	for _, name := range backups[:len(backups)-s.keep] {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			s.log.Warn("remove old backup", "name", name, "err", err)
		}
	}
}
