package lsp

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"splusls/internal/catalog"
	"splusls/internal/config"
	"splusls/internal/features"
	"splusls/internal/help"
	"splusls/internal/keywords"
	"splusls/internal/lexer"
	"splusls/internal/project"
	"splusls/internal/watch"
)

// session is the workspace state created by initialize.
type session struct {
	root     string
	cfg      *config.Config
	keywords *keywords.Table
	index    *project.Index
	features *features.Service
	catalog  *catalog.Catalog
	watcher  *watch.Watcher
	notifier Notifier
	logger   *slog.Logger

	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

func newSession(root string, opts Options, notifier Notifier, logger *slog.Logger) *session {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
		if root != "" {
			loaded, err := config.LoadWorkspace(root)
			if err != nil {
				logger.Warn("using default configuration", "root", root, "error", err)
			} else {
				cfg = loaded
			}
		}
	}

	lx, err := lexer.New(cfg.Project.LexerCommand, logger)
	if err != nil {
		logger.Warn("using built-in lexer", "error", err)
		lx = lexer.NewScanner()
	}

	s := &session{
		root:     root,
		cfg:      cfg,
		keywords: opts.Keywords,
		notifier: notifier,
		logger:   logger,
	}
	s.index = project.New(project.Options{
		Lexer:          lx,
		Generator:      cfg.Project.Generator,
		SimplDirectory: cfg.Project.SimplDirectory,
		Logger:         logger.With("component", "project"),
	})

	var helpClient *help.Client
	if !cfg.Help.Disabled {
		httpClient := opts.HTTPClient
		if httpClient == nil {
			httpClient = &http.Client{Timeout: cfg.Help.Timeout()}
		}
		helpClient = help.New(help.Options{
			BaseURL:    cfg.Help.BaseURL,
			HTTPClient: httpClient,
			Logger:     logger.With("component", "help"),
		})
	}

	if root != "" || cfg.Catalog.Path == ":memory:" {
		dbCfg := cfg.Catalog.ToDBConfig(root)
		cat, err := catalog.Open(dbCfg, logger.With("component", "catalog"))
		if err != nil {
			logger.Warn("symbol catalog unavailable", "catalog", cfg.Catalog.String(), "error", err)
		} else {
			s.catalog = cat
		}
	}

	s.features = features.New(features.Options{
		Index:    s.index,
		Keywords: s.keywords,
		Help:     helpClient,
		Catalog:  s.catalog,
		Format:   cfg.Format.Options(s.keywords),
		Logger:   logger.With("component", "features"),
	})
	s.unsubscribe = s.index.Subscribe(s.onEvent)
	return s
}

// start watches the workspace for artifact changes.
func (s *session) start(ctx context.Context) {
	w, err := watch.New(watch.Options{
		Ignore:   s.cfg.Project.Ignore,
		Debounce: s.cfg.Project.WatchDebounce(),
		Logger:   s.logger.With("component", "watch"),
	})
	if err != nil {
		s.logger.Warn("artifact watching disabled", "error", err)
		return
	}
	s.watcher = w
	if s.root != "" {
		if err := w.AddTree(s.root); err != nil {
			s.logger.Warn("failed to watch workspace", "root", s.root, "error", err)
		}
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := w.Run(ctx, func(c watch.Change) {
			op := project.Write
			if c.Op == watch.Remove {
				op = project.Remove
			}
			s.index.HandleArtifactChange(ctx, c.Path, op)
		})
		if err != nil {
			s.logger.Error("watcher stopped", "error", err)
		}
	}()
}

// watchDocument extends watching to a document directory outside the
// workspace root, and to its generated files folder.
func (s *session) watchDocument(docURI string) {
	if s.watcher == nil {
		return
	}
	u, err := url.Parse(docURI)
	if err != nil || u.Scheme != uri.FileScheme {
		return
	}
	dir := filepath.Dir(uri.URI(docURI).Filename())
	if s.root != "" && within(s.root, dir) {
		return
	}
	for _, d := range []string{dir, filepath.Join(dir, "SPlsWork")} {
		if info, err := os.Stat(d); err != nil || !info.IsDir() {
			continue
		}
		if err := s.watcher.Add(d); err != nil {
			s.logger.Debug("failed to watch directory", "dir", d, "error", err)
		}
	}
}

func within(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// onEvent keeps the catalog in step with the index and reports failed
// API generation to the user.
func (s *session) onEvent(ev project.Event) {
	switch ev.Kind {
	case project.ProgramUpdated, project.ArtifactLoaded:
		if s.catalog == nil || ev.Tree == nil {
			return
		}
		if err := s.catalog.ReplaceTree(context.Background(), ev.Tree); err != nil {
			s.logger.Warn("failed to catalog symbols", "uri", ev.Tree.URI(), "error", err)
		}
	case project.GenerationFailed:
		if ev.Err == nil {
			return
		}
		if err := s.notifier.ShowMessage(context.Background(), protocol.MessageTypeError, ev.Err.Error()); err != nil {
			s.logger.Warn("failed to show message", "error", err)
		}
	}
}

// reload re-reads the workspace configuration file. Only formatting
// options take effect without a restart.
func (s *session) reload() {
	if s.root == "" {
		return
	}
	cfg, err := config.LoadWorkspace(s.root)
	if err != nil {
		s.logger.Warn("configuration not reloaded", "error", err)
		return
	}
	s.cfg.Format = cfg.Format
	s.features.SetFormat(cfg.Format.Options(s.keywords))
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.watcher != nil {
			if err := s.watcher.Close(); err != nil {
				s.logger.Debug("failed to close watcher", "error", err)
			}
		}
		s.wg.Wait()
		s.unsubscribe()
		if s.catalog != nil {
			if err := s.catalog.Close(); err != nil {
				s.logger.Warn("failed to close catalog", "error", err)
			}
		}
	})
}
