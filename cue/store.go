package cue

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// packManifest is the pack.yaml layout inside each installed pack directory.
type packManifest struct {
	ID     string            `yaml:"id"`
	Cues   map[string]string `yaml:"cues"`
	Grains map[string]string `yaml:"grains"`
}

// DirStore is a Library backed by a directory of installed packs, one
// subdirectory per pack with a pack.yaml manifest mapping cue keys and
// grain words to audio files. Malformed packs are logged and skipped;
// a broken manifest must never take the session down.
type DirStore struct {
	dir    string
	logger *log.Logger

	mu    sync.RWMutex
	packs map[string]*Pack

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewDirStore loads every pack under dir. The directory may be empty or
// absent; both yield an empty library.
func NewDirStore(dir string, logger *log.Logger) (*DirStore, error) {
	if logger == nil {
		logger = log.Default()
	}
	s := &DirStore{
		dir:    dir,
		logger: logger.With("component", "packstore"),
		packs:  make(map[string]*Pack),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Pack implements Library.
func (s *DirStore) Pack(id string) (*Pack, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.packs[id]
	return p, ok
}

// IDs returns the ids of every loaded pack.
func (s *DirStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.packs))
	for id := range s.packs {
		ids = append(ids, id)
	}
	return ids
}

// Reload rescans the pack directory from scratch.
func (s *DirStore) Reload() error {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.packs = make(map[string]*Pack)
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read pack dir %s: %w", s.dir, err)
	}

	packs := make(map[string]*Pack)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		packDir := filepath.Join(s.dir, entry.Name())
		pack, err := loadPack(packDir)
		if err != nil {
			s.logger.Warn("skipping pack", "dir", packDir, "err", err)
			continue
		}
		if _, dup := packs[pack.ID]; dup {
			s.logger.Warn("skipping pack with duplicate id", "dir", packDir, "id", pack.ID)
			continue
		}
		packs[pack.ID] = pack
	}

	s.mu.Lock()
	s.packs = packs
	s.mu.Unlock()
	s.logger.Debug("packs loaded", "count", len(packs))
	return nil
}

// Watch reloads the library whenever the pack directory changes. Stop with
// Close.
func (s *DirStore) Watch() error {
	if s.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch pack dir: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return fmt.Errorf("watch pack dir %s: %w", s.dir, err)
	}
	s.watcher = w
	s.done = make(chan struct{})

	go func() {
		for {
			select {
			case _, ok := <-w.Events:
				if !ok {
					return
				}
				if err := s.Reload(); err != nil {
					s.logger.Warn("pack reload failed", "err", err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("pack watch error", "err", err)
			case <-s.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the directory watch, if any.
func (s *DirStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

func loadPack(dir string) (*Pack, error) {
	data, err := os.ReadFile(filepath.Join(dir, "pack.yaml"))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m packManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("manifest missing id")
	}

	pack := &Pack{
		ID:     m.ID,
		Cues:   make(map[string]AssetRef, len(m.Cues)),
		Grains: make(map[string]AssetRef, len(m.Grains)),
	}
	for key, rel := range m.Cues {
		pack.Cues[key] = AssetRef{Pack: m.ID, Path: filepath.Join(dir, rel)}
	}
	for word, rel := range m.Grains {
		pack.Grains[word] = AssetRef{Pack: m.ID, Path: filepath.Join(dir, rel)}
	}
	return pack, nil
}

// MapLibrary is an in-memory Library, convenient for tests and for callers
// that assemble packs themselves.
type MapLibrary map[string]*Pack

// Pack implements Library.
func (m MapLibrary) Pack(id string) (*Pack, bool) {
	p, ok := m[id]
	return p, ok
}
