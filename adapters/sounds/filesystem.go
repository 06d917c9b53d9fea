package sounds

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/woodguard/server/domain/repositories"
)

// FilesystemLibrary serves deterrent sounds from a directory tree of the
// form <root>/<category>/<file>.mp3. The tree is scanned once at startup;
// Rescan refreshes it.
type FilesystemLibrary struct {
	root   string
	logger *zap.Logger

	mu         sync.RWMutex
	categories map[string][]string
}

var _ repositories.SoundLibrary = (*FilesystemLibrary)(nil)

// NewFilesystemLibrary scans root and returns the library. A missing root
// is not an error: the library is simply empty and the deterrent response
// degrades to detection-only.
func NewFilesystemLibrary(root string, logger *zap.Logger) *FilesystemLibrary {
	l := &FilesystemLibrary{
		root:       root,
		logger:     logger,
		categories: make(map[string][]string),
	}
	l.Rescan()
	return l
}

// Rescan rebuilds the category index from the filesystem.
func (l *FilesystemLibrary) Rescan() {
	categories := make(map[string][]string)

	entries, err := os.ReadDir(l.root)
	if err != nil {
		l.logger.Warn("sound library root not readable, deterrent sounds disabled",
			zap.String("root", l.root),
			zap.Error(err))
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(l.root, entry.Name()))
		if err != nil {
			continue
		}
		var names []string
		for _, f := range files {
			if !f.IsDir() && strings.HasSuffix(f.Name(), ".mp3") {
				names = append(names, f.Name())
			}
		}
		if len(names) > 0 {
			categories[entry.Name()] = names
		}
	}

	l.mu.Lock()
	l.categories = categories
	l.mu.Unlock()

	l.logger.Info("sound library scanned",
		zap.String("root", l.root),
		zap.Int("categories", len(categories)))
}

// Categories implements repositories.SoundLibrary.
func (l *FilesystemLibrary) Categories() map[string][]string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string][]string, len(l.categories))
	for cat, files := range l.categories {
		out[cat] = append([]string(nil), files...)
	}
	return out
}

// Resolve implements repositories.SoundLibrary. The category and filename
// must match indexed entries exactly, which also blocks path traversal.
func (l *FilesystemLibrary) Resolve(category, filename string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	files, ok := l.categories[category]
	if !ok {
		return "", fmt.Errorf("unknown sound category %q", category)
	}
	for _, f := range files {
		if f == filename {
			return filepath.Join(l.root, category, filename), nil
		}
	}
	return "", fmt.Errorf("sound %q not found in category %q", filename, category)
}

// Pick implements repositories.SoundLibrary.
func (l *FilesystemLibrary) Pick(mode repositories.ResponseMode) (string, string, bool) {
	if mode == repositories.ResponseModeSilent {
		return "", "", false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	var eligible []string
	for cat, files := range l.categories {
		if len(files) == 0 {
			continue
		}
		switch mode {
		case repositories.ResponseModePredators:
			if strings.HasPrefix(cat, "predator_") {
				eligible = append(eligible, cat)
			}
		case repositories.ResponseModeWoodpecker:
			if strings.HasPrefix(cat, "woodpecker_") {
				eligible = append(eligible, cat)
			}
		default:
			eligible = append(eligible, cat)
		}
	}
	if len(eligible) == 0 {
		return "", "", false
	}

	category := eligible[rand.Intn(len(eligible))]
	files := l.categories[category]
	return category, files[rand.Intn(len(files))], true
}
