package workflow

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/viant/afs/url"
	"github.com/viant/flowmind/logger"
)

// Watcher refreshes definitions when files in a local directory change
type Watcher struct {
	service *Service
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts refreshing definitions stored in a local directory until ctx is done or Close is called
func (s *Service) Watch(ctx context.Context, dir string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	dir = url.Path(s.metaService.URL(dir))
	if err = watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	ret := &Watcher{
		service: s,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go ret.run(ctx)
	return ret, nil
}

// Close stops the watcher
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	log := logger.Ctx(ctx)
	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isDefinitionFile(event.Name) {
				continue
			}
			definition, err := w.service.Refresh(ctx, event.Name)
			if err != nil {
				log.Warn("definition refresh failed", "file", event.Name, "error", err)
				continue
			}
			log.Info("definition refreshed", "file", event.Name, "definition", definition.ID)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error("watcher error", "error", err)
		}
	}
}
