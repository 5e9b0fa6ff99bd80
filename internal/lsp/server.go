// Package lsp serves the SIMPL+ editor features over the Language Server
// Protocol on a JSON-RPC 2.0 stream.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"splusls/internal/config"
	"splusls/internal/features"
	"splusls/internal/keywords"
)

// ErrExitWithoutShutdown is returned by Serve when the client sent exit
// before shutdown.
var ErrExitWithoutShutdown = errors.New("exit without shutdown")

var errNotInitialized = jsonrpc2.NewError(-32002, "server not initialized")

// Options configures a Server.
type Options struct {
	Name    string
	Version string

	// Config replaces the workspace configuration file when set.
	Config *config.Config

	// Keywords defaults to the embedded table.
	Keywords *keywords.Table

	// HTTPClient fetches online help. Defaults to a client with the
	// configured help timeout.
	HTTPClient *http.Client

	// Notifier defaults to window/showMessage on the connection.
	Notifier Notifier

	Logger *slog.Logger
}

// Server is a language server for one client connection at a time.
type Server struct {
	opts   Options
	logger *slog.Logger
	docs   *documents

	mu       sync.Mutex
	session  *session
	shutdown bool
	exited   bool
}

// New creates a server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Name == "" {
		opts.Name = "splusls"
	}
	if opts.Keywords == nil {
		kw, err := keywords.Load()
		if err != nil {
			logger.Error("failed to load keywords", "error", err)
		}
		opts.Keywords = kw
	}
	return &Server{
		opts:   opts,
		logger: logger,
		docs:   newDocuments(),
	}
}

// Serve runs the protocol on rwc until the client exits, the stream closes
// or ctx is done. A client that disconnects is not an error.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	notifier := s.opts.Notifier
	if notifier == nil {
		notifier = connNotifier{conn: conn}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	conn.Go(ctx, s.handler(notifier, cancel))
	s.logger.Info("language server started", "version", s.opts.Version)

	select {
	case <-ctx.Done():
	case <-conn.Done():
	}
	conn.Close()
	<-conn.Done()
	s.closeSession()

	s.mu.Lock()
	exited, shutdown := s.exited, s.shutdown
	s.mu.Unlock()
	s.logger.Info("language server stopped", "exited", exited)
	if exited && !shutdown {
		return ErrExitWithoutShutdown
	}
	if err := conn.Err(); err != nil && !exited {
		s.logger.Debug("connection closed", "error", err)
	}
	return nil
}

func (s *Server) handler(notifier Notifier, exit context.CancelFunc) jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		s.logger.Debug("request", "method", req.Method())
		switch req.Method() {
		case methodInitialize:
			var params protocol.InitializeParams
			if err := decode(req, &params); err != nil {
				return reply(ctx, nil, err)
			}
			return reply(ctx, s.initialize(&params, notifier), nil)
		case methodInitialized, methodCancelRequest, methodSetTrace, methodDidSave:
			return reply(ctx, nil, nil)
		case methodShutdown:
			s.mu.Lock()
			s.shutdown = true
			s.mu.Unlock()
			s.closeSession()
			return reply(ctx, nil, nil)
		case methodExit:
			s.mu.Lock()
			s.exited = true
			s.mu.Unlock()
			err := reply(ctx, nil, nil)
			exit()
			return err
		}

		sess := s.current()
		if sess == nil {
			if _, isCall := req.(*jsonrpc2.Call); isCall {
				return reply(ctx, nil, errNotInitialized)
			}
			return nil
		}

		switch req.Method() {
		case methodDidOpen:
			var params protocol.DidOpenTextDocumentParams
			if err := decode(req, &params); err != nil {
				return reply(ctx, nil, err)
			}
			docURI := string(params.TextDocument.URI)
			s.docs.set(docURI, params.TextDocument.Text, params.TextDocument.Version)
			if err := sess.index.Open(ctx, docURI, params.TextDocument.Text); err != nil {
				s.logger.Warn("failed to index document", "uri", docURI, "error", err)
			}
			sess.watchDocument(docURI)
			return reply(ctx, nil, nil)

		case methodDidChange:
			var params protocol.DidChangeTextDocumentParams
			if err := decode(req, &params); err != nil {
				return reply(ctx, nil, err)
			}
			if len(params.ContentChanges) == 0 {
				return reply(ctx, nil, nil)
			}
			docURI := string(params.TextDocument.URI)
			// full sync: the last change holds the whole text
			text := params.ContentChanges[len(params.ContentChanges)-1].Text
			s.docs.set(docURI, text, params.TextDocument.Version)
			if err := sess.index.Update(ctx, docURI, text); err != nil {
				s.logger.Warn("failed to index document", "uri", docURI, "error", err)
			}
			return reply(ctx, nil, nil)

		case methodDidClose:
			var params protocol.DidCloseTextDocumentParams
			if err := decode(req, &params); err != nil {
				return reply(ctx, nil, err)
			}
			docURI := string(params.TextDocument.URI)
			s.docs.remove(docURI)
			sess.index.Close(docURI)
			return reply(ctx, nil, nil)

		case methodDidChangeConfiguration:
			sess.reload()
			return reply(ctx, nil, nil)

		case methodCompletion:
			var params protocol.CompletionParams
			if err := decode(req, &params); err != nil {
				return reply(ctx, nil, err)
			}
			doc, ok := s.docs.get(string(params.TextDocument.URI))
			if !ok {
				return reply(ctx, nil, nil)
			}
			items := sess.features.Complete(ctx, doc, params.Position)
			if items == nil {
				items = []protocol.CompletionItem{}
			}
			return reply(ctx, &protocol.CompletionList{Items: items}, nil)

		case methodCompletionResolve:
			var item protocol.CompletionItem
			if err := decode(req, &item); err != nil {
				return reply(ctx, nil, err)
			}
			return reply(ctx, sess.features.ResolveCompletion(ctx, item), nil)

		case methodHover:
			var params protocol.HoverParams
			if err := decode(req, &params); err != nil {
				return reply(ctx, nil, err)
			}
			doc, ok := s.docs.get(string(params.TextDocument.URI))
			if !ok {
				return reply(ctx, nil, nil)
			}
			if h := sess.features.Hover(ctx, doc, params.Position); h != nil {
				return reply(ctx, h, nil)
			}
			return reply(ctx, nil, nil)

		case methodSignatureHelp:
			var params protocol.SignatureHelpParams
			if err := decode(req, &params); err != nil {
				return reply(ctx, nil, err)
			}
			doc, ok := s.docs.get(string(params.TextDocument.URI))
			if !ok {
				return reply(ctx, nil, nil)
			}
			if h := sess.features.SignatureHelp(ctx, doc, params.Position); h != nil {
				return reply(ctx, h, nil)
			}
			return reply(ctx, nil, nil)

		case methodDocumentSymbol:
			var params protocol.DocumentSymbolParams
			if err := decode(req, &params); err != nil {
				return reply(ctx, nil, err)
			}
			return reply(ctx, sess.features.DocumentSymbols(string(params.TextDocument.URI)), nil)

		case methodFormatting:
			var params protocol.DocumentFormattingParams
			if err := decode(req, &params); err != nil {
				return reply(ctx, nil, err)
			}
			doc, ok := s.docs.get(string(params.TextDocument.URI))
			if !ok {
				return reply(ctx, nil, nil)
			}
			edits := sess.features.Format(doc)
			if edits == nil {
				edits = []protocol.TextEdit{}
			}
			return reply(ctx, edits, nil)

		case methodWorkspaceSymbol:
			var params protocol.WorkspaceSymbolParams
			if err := decode(req, &params); err != nil {
				return reply(ctx, nil, err)
			}
			symbols, err := sess.features.WorkspaceSymbols(ctx, params.Query)
			if err != nil {
				s.logger.Warn("workspace symbol query failed", "query", params.Query, "error", err)
				return reply(ctx, nil, err)
			}
			return reply(ctx, symbols, nil)
		}

		if _, isCall := req.(*jsonrpc2.Call); isCall {
			return reply(ctx, nil, fmt.Errorf("%w: %s", jsonrpc2.ErrMethodNotFound, req.Method()))
		}
		return nil
	}
}

func (s *Server) initialize(params *protocol.InitializeParams, notifier Notifier) *protocol.InitializeResult {
	root := workspaceRoot(params)
	sess := newSession(root, s.opts, notifier, s.logger)
	// the watcher outlives the request; close stops it
	sess.start(context.Background())

	s.mu.Lock()
	prev := s.session
	s.session = sess
	s.shutdown = false
	s.mu.Unlock()
	if prev != nil {
		prev.close()
	}
	s.logger.Info("workspace initialized", "root", root)

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			CompletionProvider: &protocol.CompletionOptions{
				ResolveProvider:   true,
				TriggerCharacters: []string{".", `"`},
			},
			HoverProvider: true,
			SignatureHelpProvider: &protocol.SignatureHelpOptions{
				TriggerCharacters: []string{"(", ","},
			},
			DocumentSymbolProvider:     true,
			DocumentFormattingProvider: true,
			WorkspaceSymbolProvider:    true,
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    s.opts.Name,
			Version: s.opts.Version,
		},
	}
}

// workspaceRoot picks the first workspace folder, then the root URI, then
// the root path.
func workspaceRoot(params *protocol.InitializeParams) string {
	candidates := make([]string, 0, len(params.WorkspaceFolders)+1)
	for _, f := range params.WorkspaceFolders {
		candidates = append(candidates, string(f.URI))
	}
	candidates = append(candidates, string(params.RootURI))
	for _, c := range candidates {
		u, err := url.Parse(c)
		if err != nil || u.Scheme != uri.FileScheme {
			continue
		}
		return uri.URI(c).Filename()
	}
	return params.RootPath
}

func (s *Server) current() *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return nil
	}
	return s.session
}

func (s *Server) closeSession() {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.mu.Unlock()
	if sess != nil {
		sess.close()
	}
}

func decode(req jsonrpc2.Request, v any) error {
	if len(req.Params()) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params(), v); err != nil {
		return fmt.Errorf("%w: %v", jsonrpc2.ErrInvalidParams, err)
	}
	return nil
}
