// Package lsp drives out-of-process language servers (rust-analyzer,
// sourcekit-lsp, typescript-language-server) to extract function-level
// symbols with full enclosing-type context, behind one adaptation layer
// shared by every supported language.
//
// Unlike the hook's tree-sitter fast path, this package is the
// authoritative extractor for `akin index`/`akin scan`: latency doesn't
// matter here, and LSP resolves types the way the language's own tooling
// does.
package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/vimo-dev/akin/internal/apperr"
	"github.com/vimo-dev/akin/internal/model"
)

// requestTimeout bounds a single LSP request. A slow file must not poison
// the client for the rest of the project.
const requestTimeout = 30 * time.Second

// Client drives a single language server process for the lifetime of one
// indexing run. It is not safe for concurrent use by more than one driver
// goroutine: only one writer may own the server's stdin.
type Client struct {
	cfg  ServerConfig
	cmd  *exec.Cmd
	conn *jsonrpc2.Conn

	cancel context.CancelFunc

	mu          sync.Mutex
	openedFiles map[string]bool
}

// Dial spawns the language server configured for lang rooted at root,
// performs the initialize/initialized handshake, and returns a ready
// Client. Returns apperr.ErrCodeMissingLSPServer if the binary isn't on
// PATH (or, for Swift, isn't found via xcrun either).
func Dial(ctx context.Context, lang model.Language, root string) (*Client, error) {
	cfg, err := resolveServer(lang)
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, apperr.New(apperr.ErrCodeFileNotFound, "failed to resolve project root", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(runCtx, cfg.Command, cfg.Args...)
	cmd.Dir = absRoot

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, apperr.New(apperr.ErrCodeProcessSpawn, "failed to open LSP server stdin", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, apperr.New(apperr.ErrCodeProcessSpawn, "failed to open LSP server stdout", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, apperr.New(apperr.ErrCodeProcessSpawn, "failed to open LSP server stderr", err)
	}

	rwc := &stdioPipe{reader: stdout, writer: stdin}
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})

	client := &Client{
		cfg:         cfg,
		cmd:         cmd,
		cancel:      cancel,
		openedFiles: make(map[string]bool),
	}

	// Notifications (diagnostics, log messages, ...) carry no id and are
	// simply dropped - only the background reader needs to see them at
	// all, and this client has no use for them.
	handler := jsonrpc2.HandlerWithError(func(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
		if !req.Notif {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not handled"}
		}
		return nil, nil
	})

	client.conn = jsonrpc2.NewConn(runCtx, stream, handler)

	go func() { _, _ = io.Copy(io.Discard, stderr) }()

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, apperr.New(apperr.ErrCodeProcessSpawn,
			fmt.Sprintf("failed to start %s", cfg.Command), err).
			WithSuggestion(cfg.MissingHint)
	}

	if err := client.initialize(ctx, absRoot); err != nil {
		cancel()
		_ = cmd.Process.Kill()
		return nil, err
	}

	return client, nil
}

func (c *Client) initialize(ctx context.Context, root string) error {
	callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	trueVal := true
	params := &protocol.InitializeParams{
		ProcessID: int32(os.Getpid()),
		RootURI:   protocol.DocumentURI(pathToURI(root)),
		ClientInfo: &protocol.ClientInfo{
			Name:    "akin",
			Version: "0.1",
		},
		Capabilities: protocol.ClientCapabilities{
			TextDocument: &protocol.TextDocumentClientCapabilities{
				DocumentSymbol: &protocol.DocumentSymbolClientCapabilities{
					HierarchicalDocumentSymbolSupport: trueVal,
				},
				CallHierarchy: &protocol.CallHierarchyClientCapabilities{
					DynamicRegistration: false,
				},
			},
		},
	}

	var result protocol.InitializeResult
	if err := c.conn.Call(callCtx, "initialize", params, &result); err != nil {
		return classifyRPCError(err, "initialize")
	}
	return c.conn.Notify(callCtx, "initialized", &protocol.InitializedParams{})
}

// Close kills the language server process and tears down the connection.
// Safe to call on a nil Client or to call twice.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	if c.cancel != nil {
		c.cancel()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
		_, _ = c.cmd.Process.Wait()
	}
	return nil
}

func (c *Client) ensureOpen(ctx context.Context, file string) error {
	uri := pathToURI(file)
	c.mu.Lock()
	if c.openedFiles[uri] {
		c.mu.Unlock()
		return nil
	}
	c.openedFiles[uri] = true
	c.mu.Unlock()

	data, err := os.ReadFile(file)
	if err != nil {
		return apperr.New(apperr.ErrCodeFileNotFound, "failed to read source file", err).WithDetail("file", file)
	}

	params := protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        protocol.DocumentURI(uri),
			LanguageID: protocol.LanguageIdentifier(c.cfg.LanguageID),
			Version:    1,
			Text:       string(data),
		},
	}
	return c.conn.Notify(ctx, "textDocument/didOpen", params)
}

// DocumentSymbols requests textDocument/documentSymbol for file, opening it
// first if necessary. A single file's timeout does not poison the client -
// the caller skips the file and continues with the rest of the project.
func (c *Client) DocumentSymbols(ctx context.Context, file string) ([]protocol.DocumentSymbol, error) {
	if err := c.ensureOpen(ctx, file); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	params := protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(pathToURI(file))},
	}

	var raw json.RawMessage
	if err := c.conn.Call(callCtx, "textDocument/documentSymbol", params, &raw); err != nil {
		return nil, classifyRPCError(err, "textDocument/documentSymbol")
	}

	var symbols []protocol.DocumentSymbol
	if err := json.Unmarshal(raw, &symbols); err != nil {
		// Some servers reply with the flat SymbolInformation[] shape
		// instead of hierarchical DocumentSymbol[]; akin only extracts
		// function bodies from the hierarchical shape, so a server that
		// can't produce it yields no units for the file rather than an
		// error.
		return nil, nil
	}
	return symbols, nil
}

func classifyRPCError(err error, method string) error {
	if err == context.DeadlineExceeded {
		return apperr.New(apperr.ErrCodeLSPTimeout, fmt.Sprintf("%s timed out", method), err)
	}
	return apperr.New(apperr.ErrCodeMalformedRPC, fmt.Sprintf("%s failed", method), err)
}

type stdioPipe struct {
	reader io.ReadCloser
	writer io.WriteCloser
}

func (s *stdioPipe) Read(p []byte) (int, error)  { return s.reader.Read(p) }
func (s *stdioPipe) Write(p []byte) (int, error) { return s.writer.Write(p) }
func (s *stdioPipe) Close() error {
	_ = s.reader.Close()
	return s.writer.Close()
}

func pathToURI(path string) string {
	path = filepath.Clean(path)
	if runtime.GOOS == "windows" {
		path = strings.ReplaceAll(path, "\\", "/")
		return "file:///" + strings.ReplaceAll(path, ":", "%3A")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "file://" + path
}
