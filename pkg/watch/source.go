package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/vtree/pkg/dom"
	"github.com/vango-dev/vtree/pkg/dom/memdom"
	"github.com/vango-dev/vtree/pkg/protocol"
	"github.com/vango-dev/vtree/pkg/treejson"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// DefaultDebounce is the quiet period after a file event before reloading.
const DefaultDebounce = 100 * time.Millisecond

// Source keeps a live tree in sync with a tree file and publishes every
// change to a Hub.
type Source struct {
	path     string
	hub      *Hub
	doc      *memdom.Document
	updater  *dom.Updater
	logger   *slog.Logger
	debounce time.Duration
}

// SourceConfig configures a Source.
type SourceConfig struct {
	// Debounce is the quiet period before a reload. Default: DefaultDebounce.
	Debounce time.Duration

	// Logger receives reload events. Default: slog.Default().
	Logger *slog.Logger

	// Options configure the Updater of the live tree.
	Options []dom.Option
}

// Open loads path, mounts it into an in-memory document and resets hub to
// it.
func Open(ctx context.Context, path string, hub *Hub, cfg SourceConfig) (*Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	tree, err := treejson.Load(abs)
	if err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	s := &Source{
		path:     abs,
		hub:      hub,
		doc:      memdom.New(),
		logger:   cfg.Logger.With("source", abs),
		debounce: cfg.Debounce,
	}
	opts := append([]dom.Option{dom.WithLogger(s.logger)}, cfg.Options...)
	opts = append(opts, dom.WithOnUpdate(s.publish))
	s.updater = dom.NewUpdater(s.doc, tree, opts...)

	if err := s.updater.Mount(ctx, s.doc.Body(), false); err != nil {
		return nil, fmt.Errorf("watch: mount %s: %w", path, err)
	}
	if err := hub.Reset(tree); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Source) publish(next *vdom.Node, patches []vdom.Patch) {
	if len(patches) == 0 {
		return
	}
	if err := s.hub.Publish(next, patches); err != nil {
		s.logger.Warn("publish failed", "error", err)
	}
}

// Document returns the in-memory document holding the live tree.
func (s *Source) Document() *memdom.Document { return s.doc }

// Updater returns the updater of the live tree.
func (s *Source) Updater() *dom.Updater { return s.updater }

// Reload reads the file again and applies the difference. Parse errors are
// reported to followers and leave the tree unchanged.
func (s *Source) Reload(ctx context.Context) (int, error) {
	next, err := treejson.Load(s.path)
	if err != nil {
		s.logger.Warn("reload failed", "error", err)
		s.hub.ReportError(protocol.NewError(protocol.ErrSourceParse, err.Error()))
		return 0, err
	}

	n, err := s.updater.Update(ctx, next)
	if err != nil {
		s.hub.ReportError(protocol.NewError(protocol.ErrServerError, err.Error()))
		return n, err
	}
	s.logger.Info("tree reloaded", "patches", n, "seq", s.hub.Seq())
	return n, nil
}

// Run reloads the file after every change until ctx is done. The parent
// directory is watched so editors that save by renaming are seen too.
func (s *Source) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create file watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch: watch %s: %w", filepath.Dir(s.path), err)
	}
	s.logger.Info("watching for changes")

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			fire = time.After(s.debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", "error", err)

		case <-fire:
			fire = nil
			s.Reload(ctx)
		}
	}
}
