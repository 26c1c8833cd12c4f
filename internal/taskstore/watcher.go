package taskstore

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/aide-sh/aide/pkg/models"
)

// Watcher reports external edits to the list files so observers (the task
// board, the CLI) can refresh without polling.
type Watcher struct {
	watcher *fsnotify.Watcher
	changes chan models.ListName
	done    chan struct{}
}

// Watch starts watching the store's directory for list-file writes.
func Watch(store *Store) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(store.Dir()); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher: fsw,
		changes: make(chan models.ListName, 16),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.changes)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			base := filepath.Base(event.Name)
			for _, list := range models.AllLists {
				if base == string(list)+".md" {
					select {
					case w.changes <- list:
					default:
						// Drop when nobody is draining; the next write
						// will signal again.
					}
					break
				}
			}
		case <-w.done:
			return
		}
	}
}

// Changes returns the channel of list names whose files changed.
func (w *Watcher) Changes() <-chan models.ListName {
	return w.changes
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
