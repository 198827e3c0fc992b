package jobsource

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/faaalmv/saf-gda/constants"
)

// DirectorySource walks Root and emits one NORMAL-priority job per image
// file with an allowed extension. Hidden files and directories are skipped.
// Walk order is made deterministic by sorting paths before minting jobs.
type DirectorySource struct {
	Root   string
	Logger *slog.Logger
}

func NewDirectorySource(root string, logger *slog.Logger) *DirectorySource {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectorySource{Root: root, Logger: logger}
}

func (s *DirectorySource) Fetch(ctx context.Context) ([]Job, error) {
	if strings.TrimSpace(s.Root) == "" {
		return nil, errors.New("source root is required")
	}

	var paths []string
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			s.Logger.Warn("walk error, skipping entry", "path", path, "error", walkErr)
			return nil
		}
		if isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !constants.AllowedExt(filepath.Ext(path)) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	jobs := make([]Job, 0, len(paths))
	for _, p := range paths {
		jobs = append(jobs, Job{
			ID:           uuid.NewString(),
			DocumentPath: p,
			Priority:     constants.PriorityNormal,
		})
	}
	s.Logger.Info("directory source fetched", "root", s.Root, "jobs", len(jobs))
	return jobs, nil
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
