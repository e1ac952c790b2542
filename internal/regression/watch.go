package regression

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"parsersmith/internal/logging"
)

// watchedExt are the file types that trigger a re-run.
var watchedExt = map[string]bool{".go": true, ".csv": true, ".xlsx": true, ".pdf": true}

// Watch calls fn with the changed paths whenever watched files in dirs
// settle for debounce. It blocks until ctx is done.
func Watch(ctx context.Context, dirs []string, debounce time.Duration, fn func(changed []string)) error {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
		logging.Regression("watching %s", d)
	}

	ticker := time.NewTicker(debounce / 4)
	defer ticker.Stop()
	pending := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !watchedExt[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			pending[event.Name] = time.Now()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logging.RegressionWarn("watcher error: %v", err)

		case now := <-ticker.C:
			var settled []string
			for path, at := range pending {
				if now.Sub(at) >= debounce {
					settled = append(settled, path)
					delete(pending, path)
				}
			}
			if len(settled) > 0 {
				sort.Strings(settled)
				fn(settled)
			}
		}
	}
}
