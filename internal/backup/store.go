package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"apiheal/internal/domain"
)

// TimestampLayout is the timestamp encoded into backup filenames. The
// format is load-bearing: List parses it back out and rejects files that
// do not conform.
const TimestampLayout = "20060102_150405"

var timestampPattern = regexp.MustCompile(`^\d{8}_\d{6}$`)

// Store manages timestamped backups of protected test files. Backups are
// immutable once written and never auto-deleted; restores are constrained
// to the tests root so a mangled backup name can never overwrite an
// arbitrary file.
type Store struct {
	dir       string
	testsRoot string
}

// NewStore creates a Store writing backups under dir, restoring only into
// testsRoot.
func NewStore(dir, testsRoot string) *Store {
	return &Store{dir: dir, testsRoot: testsRoot}
}

// Create snapshots path into the backup directory and returns the backup
// path. The source must exist; a missing source is a failure and no file
// is created. An existing backup is never overwritten: on a timestamp
// collision the encoded timestamp is bumped forward until the name is free.
func (s *Store) Create(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read source file %s: %w", path, err)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	ts := time.Now()
	backupPath := filepath.Join(s.dir, fmt.Sprintf("%s.backup.%s%s", stem, ts.Format(TimestampLayout), ext))
	for {
		if _, err := os.Stat(backupPath); os.IsNotExist(err) {
			break
		}
		ts = ts.Add(time.Second)
		backupPath = filepath.Join(s.dir, fmt.Sprintf("%s.backup.%s%s", stem, ts.Format(TimestampLayout), ext))
	}

	if err := os.WriteFile(backupPath, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	return backupPath, nil
}

// List returns all backups, newest first by encoded timestamp. When filter
// is non-empty only backups whose original name contains it are returned.
// Files in the backup directory that do not conform to the backup naming
// format are skipped.
func (s *Store) List(filter string) []domain.BackupInfo {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}

	var backups []domain.BackupInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, ok := s.parseName(entry.Name())
		if !ok {
			continue
		}
		if filter != "" && !strings.Contains(info.OriginalName, filter) {
			continue
		}
		backups = append(backups, info)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp > backups[j].Timestamp
	})
	return backups
}

// parseName parses "{stem}.backup.{timestamp}{ext}" into a BackupInfo.
func (s *Store) parseName(name string) (domain.BackupInfo, bool) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	parts := strings.SplitN(stem, ".backup.", 2)
	if len(parts) != 2 || parts[0] == "" || !timestampPattern.MatchString(parts[1]) {
		return domain.BackupInfo{}, false
	}

	originalName := parts[0] + ext
	return domain.BackupInfo{
		BackupPath:   filepath.Join(s.dir, name),
		BackupName:   name,
		OriginalFile: filepath.Join(s.testsRoot, originalName),
		OriginalName: originalName,
		Timestamp:    parts[1],
	}, true
}

// Restore copies a backup's content over its target file. When targetPath
// is empty the target is derived from the backup's encoded original name.
// Targets outside the tests root are rejected before any I/O.
func (s *Store) Restore(backupPath, targetPath string) domain.RestoreResult {
	result := domain.RestoreResult{BackupPath: backupPath}

	content, err := os.ReadFile(backupPath)
	if err != nil {
		if os.IsNotExist(err) {
			result.Error = fmt.Sprintf("Backup file not found: %s", backupPath)
		} else {
			result.Error = fmt.Sprintf("Restore failed: %v", err)
		}
		return result
	}

	if targetPath == "" {
		info, ok := s.parseName(filepath.Base(backupPath))
		if !ok {
			result.Error = fmt.Sprintf("Could not parse backup filename: %s", filepath.Base(backupPath))
			return result
		}
		targetPath = info.OriginalFile
	}

	if !s.withinTestsRoot(targetPath) {
		result.Error = fmt.Sprintf("Restore target must be inside %s: %s", s.testsRoot, targetPath)
		return result
	}

	if err := os.WriteFile(targetPath, content, 0644); err != nil {
		result.Error = fmt.Sprintf("Restore failed: %v", err)
		return result
	}

	result.Success = true
	result.RestoredFile = targetPath
	return result
}

// RestoreLatest restores the newest backup whose original name contains
// originalName.
func (s *Store) RestoreLatest(originalName string) domain.RestoreResult {
	backups := s.List(originalName)
	if len(backups) == 0 {
		return domain.RestoreResult{
			Error: fmt.Sprintf("No backups found for %s", originalName),
		}
	}
	latest := backups[0]
	return s.Restore(latest.BackupPath, latest.OriginalFile)
}

// RestoreAllLatest restores every distinct original file from its newest
// backup. A failure for one file does not abort the others; the result map
// carries the per-file outcome keyed by original name.
func (s *Store) RestoreAllLatest() map[string]domain.RestoreResult {
	results := make(map[string]domain.RestoreResult)
	for _, b := range s.List("") {
		// List is newest-first, so the first backup seen per file wins.
		if _, done := results[b.OriginalName]; done {
			continue
		}
		results[b.OriginalName] = s.Restore(b.BackupPath, b.OriginalFile)
	}
	return results
}

// withinTestsRoot reports whether path resolves lexically inside the tests
// root. Traversal via ".." is caught by the relative-path check.
func (s *Store) withinTestsRoot(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	root, err := filepath.Abs(s.testsRoot)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
