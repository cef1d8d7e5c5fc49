package storage

import (
	"io"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/spf13/afero"

	errs "s3ripper/pkg/errors"
)

// Manager writes downloaded payloads below an output directory
type Manager struct {
	fs        afero.Fs
	outputDir string

	mu    sync.Mutex
	saved int
	bytes int64
}

// NewManager creates a storage manager on the local filesystem
func NewManager(outputDir string) (*Manager, error) {
	return NewManagerWithFS(afero.NewOsFs(), outputDir)
}

// NewManagerWithFS creates a storage manager on fs, creating outputDir
func NewManagerWithFS(fs afero.Fs, outputDir string) (*Manager, error) {
	if outputDir == "" {
		return nil, errs.New(errs.ErrorTypeFilesystem, "output directory is required")
	}
	if err := fs.MkdirAll(outputDir, 0755); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to create output directory")
	}
	return &Manager{fs: fs, outputDir: outputDir}, nil
}

// Save writes r to outputDir/subdir/filename, creating directories as
// needed and replacing any existing file. The data goes to a temporary
// file first, so an interrupted write never leaves a truncated payload
// under the final name. Returns the stored path and the bytes written.
func (m *Manager) Save(subdir, filename string, r io.Reader) (string, int64, error) {
	dir, err := m.resolveDir(subdir)
	if err != nil {
		return "", 0, err
	}
	name := filepath.Base(filepath.Clean(filename))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", 0, errs.Newf(errs.ErrorTypeFilesystem, "invalid file name %q", filename)
	}

	if err := m.fs.MkdirAll(dir, 0755); err != nil {
		return "", 0, errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to create destination directory")
	}

	final := filepath.Join(dir, name)

	tmp, err := afero.TempFile(m.fs, dir, "."+name+".*.part")
	if err != nil {
		return "", 0, errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to create temporary file")
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, r)
	closeErr := tmp.Close()

	if err != nil {
		m.fs.Remove(tmpName)
		return "", written, errs.Wrap(errs.ErrorTypeDownload, err, "failed to write payload")
	}
	if closeErr != nil {
		m.fs.Remove(tmpName)
		return "", written, errs.Wrap(errs.ErrorTypeFilesystem, closeErr, "failed to close file")
	}

	if err := m.fs.Rename(tmpName, final); err != nil {
		m.fs.Remove(tmpName)
		return "", written, errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to move file into place")
	}

	m.mu.Lock()
	m.saved++
	m.bytes += written
	m.mu.Unlock()

	return final, written, nil
}

// resolveDir joins subdir under the output directory and refuses paths
// that would leave it.
func (m *Manager) resolveDir(subdir string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(subdir))
	if clean == "." || clean == "" {
		return m.outputDir, nil
	}
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errs.Newf(errs.ErrorTypeFilesystem, "destination %q escapes the output directory", subdir)
	}
	return filepath.Join(m.outputDir, clean), nil
}

// Exists reports whether a file is stored at outputDir/subdir/filename
func (m *Manager) Exists(subdir, filename string) bool {
	dir, err := m.resolveDir(subdir)
	if err != nil {
		return false
	}
	_, err = m.fs.Stat(filepath.Join(dir, filename))
	return err == nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// Stats returns the number of files and bytes saved by this manager
func (m *Manager) Stats() (files int, bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved, m.bytes
}

// SanitizeSegment turns a catalog title into a single safe path segment.
// Separators, characters reserved on common filesystems and control
// characters become underscores; names made only of dots become "_".
func SanitizeSegment(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			b.WriteRune('_')
		case unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	out := strings.TrimSpace(b.String())
	out = strings.TrimRight(out, ". ")
	if strings.Trim(out, ".") == "" {
		return "_"
	}
	return out
}

// JoinSegments sanitizes each segment and joins them into a relative path
func JoinSegments(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, SanitizeSegment(s))
	}
	return filepath.Join(parts...)
}
