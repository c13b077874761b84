package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
	gitignore "github.com/sabhiram/go-gitignore"
)

// FileInfo is metadata about one candidate document file.
type FileInfo struct {
	Path    string    // absolute path
	RelPath string    // path relative to the walk root
	Size    int64
	ModTime time.Time
	Hash    string // xxhash of file contents
}

// WalkOptions configures the document walker.
type WalkOptions struct {
	// Root is the directory to start walking from.
	Root string

	// MaxFileSize is the maximum file size to ingest, in bytes.
	MaxFileSize int64

	// MaxFileCount stops the walk after this many accepted files.
	MaxFileCount int

	// IgnorePatterns are additional ignore patterns (gitignore syntax).
	IgnorePatterns []string

	// IncludeHidden includes hidden files and directories.
	IncludeHidden bool

	// UseGitignore respects a .gitignore file at the root.
	UseGitignore bool

	// Extensions limits ingestion to these file extensions. Empty means any
	// text file.
	Extensions []string
}

// WalkStats counts what a walk saw and skipped.
type WalkStats struct {
	FilesFound   int
	FilesSkipped int
	DirsSkipped  int
	TotalBytes   int64
}

// ignorer matches paths against ignore patterns.
type ignorer interface {
	MatchesPath(path string) bool
}

// combinedIgnorer checks the root .gitignore plus configured patterns.
type combinedIgnorer struct {
	file     *gitignore.GitIgnore
	patterns *gitignore.GitIgnore
}

func (c *combinedIgnorer) MatchesPath(path string) bool {
	return c.file.MatchesPath(path) || c.patterns.MatchesPath(path)
}

// Walker traverses a directory tree and yields ingestable text files.
type Walker struct {
	opts    WalkOptions
	ignorer ignorer
	stats   WalkStats
	extSet  map[string]bool
}

// NewWalker creates a walker rooted at opts.Root.
func NewWalker(opts WalkOptions) (*Walker, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}
	opts.Root = root

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", root)
	}

	w := &Walker{opts: opts}

	if len(opts.Extensions) > 0 {
		w.extSet = make(map[string]bool)
		for _, ext := range opts.Extensions {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			w.extSet[strings.ToLower(ext)] = true
		}
	}

	w.initIgnorer()
	return w, nil
}

// initIgnorer compiles the ignore patterns, merging a root .gitignore when
// configured.
func (w *Walker) initIgnorer() {
	patterns := gitignore.CompileIgnoreLines(w.opts.IgnorePatterns...)

	if w.opts.UseGitignore {
		gitignorePath := filepath.Join(w.opts.Root, ".gitignore")
		if _, err := os.Stat(gitignorePath); err == nil {
			gi, err := gitignore.CompileIgnoreFile(gitignorePath)
			if err != nil {
				log.Warn("Failed to parse .gitignore", "path", gitignorePath, "error", err)
			} else {
				w.ignorer = &combinedIgnorer{file: gi, patterns: patterns}
				return
			}
		}
	}

	w.ignorer = patterns
}

// Walk traverses the tree and calls fn for each accepted file. Unreadable
// entries are skipped, not fatal.
func (w *Walker) Walk(fn func(FileInfo) error) error {
	w.stats = WalkStats{}

	return filepath.WalkDir(w.opts.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Debug("Error accessing path", "path", path, "error", err)
			return nil
		}

		relPath, err := filepath.Rel(w.opts.Root, path)
		if err != nil {
			relPath = path
		}

		if d.IsDir() {
			if w.shouldSkipDir(d.Name(), relPath) {
				w.stats.DirsSkipped++
				return filepath.SkipDir
			}
			return nil
		}

		if w.opts.MaxFileCount > 0 && w.stats.FilesFound >= w.opts.MaxFileCount {
			return filepath.SkipAll
		}

		if w.shouldSkipFile(d.Name(), relPath) {
			w.stats.FilesSkipped++
			return nil
		}

		info, err := d.Info()
		if err != nil {
			log.Debug("Failed to get file info", "path", path, "error", err)
			return nil
		}

		if w.opts.MaxFileSize > 0 && info.Size() > w.opts.MaxFileSize {
			w.stats.FilesSkipped++
			return nil
		}

		if w.extSet != nil {
			if !w.extSet[strings.ToLower(filepath.Ext(path))] {
				w.stats.FilesSkipped++
				return nil
			}
		}

		if isBinary, err := isBinaryFile(path); err != nil || isBinary {
			w.stats.FilesSkipped++
			return nil
		}

		hash, err := hashFile(path)
		if err != nil {
			log.Debug("Failed to hash file", "path", path, "error", err)
			return nil
		}

		w.stats.FilesFound++
		w.stats.TotalBytes += info.Size()

		return fn(FileInfo{
			Path:    path,
			RelPath: relPath,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Hash:    hash,
		})
	})
}

// Stats returns counters from the last Walk.
func (w *Walker) Stats() WalkStats {
	return w.stats
}

func (w *Walker) shouldSkipDir(name, relPath string) bool {
	if name == ".git" {
		return true
	}
	if !w.opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	return w.ignorer != nil && w.ignorer.MatchesPath(relPath+"/")
}

func (w *Walker) shouldSkipFile(name, relPath string) bool {
	if !w.opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	return w.ignorer != nil && w.ignorer.MatchesPath(relPath)
}

// hashFile computes the xxhash of a file's contents.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// isBinaryFile sniffs the first 8KB for binary content.
func isBinaryFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, 8192)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false, err
	}

	return isBinaryContent(buf[:n]), nil
}

// isBinaryContent reports whether content looks binary. Null bytes are a
// strong signal; otherwise more than 30% non-printable bytes.
func isBinaryContent(content []byte) bool {
	if len(content) == 0 {
		return false
	}

	nonPrintable := 0
	for _, b := range content {
		if b == 0 {
			return true
		}
		if b < 32 && b != '\t' && b != '\n' && b != '\r' {
			nonPrintable++
		}
	}

	return float64(nonPrintable)/float64(len(content)) > 0.3
}
