package skills

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/ShayCichocki/reflex/internal/exec"
)

// Watcher hot-reloads skill manifests when files in the skills directory
// change. Re-registration replaces skills in place, so a running session
// picks up edited manifests without restarting.
type Watcher struct {
	dir      string
	registry *Registry
	runner   exec.CommandRunner
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// Watch loads the directory once and starts watching it for manifest
// changes. Call Close to stop.
func Watch(dir string, registry *Registry, runner exec.CommandRunner) (*Watcher, error) {
	if _, err := LoadDir(dir, registry, runner); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		dir:      dir,
		registry: registry,
		runner:   runner,
		watcher:  fw,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			ext := filepath.Ext(event.Name)
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// Reload the whole directory; manifests are small and this keeps
			// delete/rename handling trivial.
			if _, err := LoadDir(w.dir, w.registry, w.runner); err != nil {
				log.Printf("[skills] warning: reloading manifests: %v", err)
			}
		case <-w.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
