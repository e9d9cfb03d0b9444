package fswatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/mirrorball/pkg/errors"
)

// DefaultQuietPeriod is how long the folder must go without changes before
// a burst of changes is reported.
const DefaultQuietPeriod = 5 * time.Second

var fs = afero.NewOsFs()

// Watch watches `root` and every directory beneath it. It sends an event on
// the returned channel whenever something within the folder changes.
// Hidden files and directories are ignored, so writing the snapshot file
// doesn't trigger another comparison. The watcher is closed when `ctx` is
// cancelled.
func Watch(ctx context.Context, root string) (chan struct{}, error) {
	pathsToWatch, err := getPathsToWatch(root)
	if err != nil {
		return nil, errors.WithContext(err, "get paths")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	for _, path := range pathsToWatch {
		if err := watcher.Add(path); err != nil {
			// Close the watcher so that we release the file handlers for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}

			return nil, errors.WithContext(err, fmt.Sprintf("watch %q", path))
		}
	}

	events := make(chan fsnotify.Event)
	go func() {
		defer close(events)
		defer func() {
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("File watcher error")
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if isHidden(root, event.Name) {
					continue
				}

				// fsnotify doesn't watch recursively, so new directories
				// have to be added as they appear.
				if event.Op&fsnotify.Create != 0 {
					if fi, err := fs.Stat(event.Name); err == nil && fi.IsDir() {
						if err := watcher.Add(event.Name); err != nil {
							log.WithError(err).WithField("path", event.Name).Warn("Failed to watch new directory")
						}
					}
				}

				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return combineUpdates(events), nil
}

// Debounce calls `fn` once `updates` has been quiet for `quiet`. It returns
// when `ctx` is cancelled.
func Debounce(ctx context.Context, clock clockwork.Clock, updates <-chan struct{},
	quiet time.Duration, fn func()) {
	var timer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-updates:
			if !ok {
				return
			}
			timer = clock.After(quiet)
		case <-timer:
			timer = nil
			fn()
		}
	}
}

func combineUpdates(updates <-chan fsnotify.Event) chan struct{} {
	combined := make(chan struct{}, 1)
	go func() {
		for range updates {
			select {
			case combined <- struct{}{}:
			default:
			}
		}
	}()
	return combined
}

func getPathsToWatch(root string) (paths []string, err error) {
	fi, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: root}
		}
		return nil, errors.WithContext(err, "stat")
	}

	if !fi.IsDir() {
		return nil, errors.New("%s is not a directory", root)
	}

	// Watching a directory covers the files directly within it, so only
	// directories need to be added.
	err = afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.WithContext(err, "walk error")
		}

		if !fi.IsDir() {
			return nil
		}

		if isHidden(root, path) {
			return filepath.SkipDir
		}
		paths = append(paths, path)
		return nil
	})
	return paths, err
}

func isHidden(root, path string) bool {
	relativePath, err := filepath.Rel(root, path)
	if err != nil || relativePath == "." {
		return false
	}

	for _, part := range strings.Split(filepath.ToSlash(relativePath), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}
