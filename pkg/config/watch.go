package config

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Event is one configuration reload outcome.
type Event struct {
	// Config is the freshly loaded configuration, nil when Err is set.
	Config *Config

	// Err is the load failure, if the rewrite was invalid. The previous
	// configuration stays in effect.
	Err error
}

// Watch reloads the configuration file whenever it changes and sends each
// outcome on the returned channel. The channel closes when ctx is
// cancelled. Invalid rewrites surface as events with Err set; the watcher
// keeps running.
func Watch(ctx context.Context, path string) (<-chan Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %q: %w", path, err)
	}

	events := make(chan Event, 1)
	go func() {
		defer close(events)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				select {
				case events <- Event{Config: cfg, Err: err}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				select {
				case events <- Event{Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}
