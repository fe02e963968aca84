package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

const (
	serverName = "itemit-mcp"
	version    = "1.0.0"
)

// ---------------------------------------------------------------------------
// Server assembly
// ---------------------------------------------------------------------------

// logToolCalls records every tool invocation once it has finished.
func logToolCalls(logger *bolt.Logger) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := time.Now()
			res, err := next(ctx, req)
			ev := logger.Info().
				Str("tool", req.Params.Name).
				Int64("duration_ms", time.Since(start).Milliseconds())
			if res != nil {
				ev = ev.Bool("is_error", res.IsError)
			}
			if err != nil {
				ev = ev.Err(err)
			}
			ev.Msg("tool call")
			return res, err
		}
	}
}

// newServer registers all tools on a fresh MCP server.
func newServer(t *ItemitMCP, logger *bolt.Logger) (*server.MCPServer, []server.ServerTool) {
	mcpServer := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(logToolCalls(logger)),
	)
	tools := defineTools(t)
	mcpServer.AddTools(tools...)
	return mcpServer, tools
}

// ---------------------------------------------------------------------------
// Transports
// ---------------------------------------------------------------------------

func serveStdio(ctx context.Context, mcpServer *server.MCPServer, stdin io.Reader, stdout, stderr io.Writer) error {
	s := server.NewStdioServer(mcpServer)
	s.SetErrorLogger(log.New(stderr, "["+serverName+"] ", log.Ltime|log.Lmsgprefix))
	return s.Listen(ctx, stdin, stdout)
}

func serveHTTP(ctx context.Context, mcpServer *server.MCPServer, tools []server.ServerTool, addr string, logger *bolt.Logger) error {
	streamServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
	)

	landing := landingHandler(tools)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			landing(w, r)
			return
		}
		http.NotFound(w, r)
	})
	mux.Handle("/mcp", streamServer)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-done:
			return
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("http shutdown")
		}
	}()

	logger.Info().Str("addr", addr).Str("endpoint", "/mcp").Msg("itemit MCP server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Command line
// ---------------------------------------------------------------------------

type options struct {
	transport string
	addr      string
	apiBase   string
	logLevel  string
	logFormat string
}

// app carries the process streams so the command can be driven from tests.
type app struct {
	getenv func(string) string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (a *app) rootCmd() *cobra.Command {
	var opts options
	root := &cobra.Command{
		Use:   serverName,
		Short: "MCP server exposing the Itemit inventory API as tools",
		Long: `itemit-mcp serves Itemit location search, item search, item creation,
item listing and reminders as MCP tools over stdio (default) or streamable HTTP.

Credentials come from ITEMIT_API_KEY, ITEMIT_USER_ID, ITEMIT_USER_TOKEN and
ITEMIT_WORKSPACE_ID.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context(), opts)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	f := root.Flags()
	f.StringVar(&opts.transport, "transport", "stdio", "transport to serve on: stdio or http")
	f.StringVar(&opts.addr, "addr", "", "listen address for the http transport (default :$PORT)")
	f.StringVar(&opts.apiBase, "api-base", "", "Itemit API base URL (overrides ITEMIT_API_BASE)")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	f.StringVar(&opts.logFormat, "log-format", "", "log format: console or json")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", serverName, version)
		},
	})
	return root
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// reportedError marks an error that has already been logged.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// logSettings resolves the log level and format: flag, then environment, then
// default.
func (a *app) logSettings(opts options) (level, format string) {
	return firstNonEmpty(opts.logLevel, a.getenv("ITEMIT_LOG_LEVEL"), "info"),
		firstNonEmpty(opts.logFormat, a.getenv("ITEMIT_LOG_FORMAT"), "console")
}

func (a *app) serve(ctx context.Context, opts options) error {
	level, format := a.logSettings(opts)
	logger := newLogger(level, format, a.stderr)

	cfg, err := LoadConfig(a.getenv)
	if err != nil {
		logger.Error().Err(err).Msg("configuration")
		return reportedError{err}
	}
	if opts.apiBase != "" {
		cfg.APIBase = normalizeBase(opts.apiBase)
	}

	client := NewClient(cfg, nil, logger)
	mcpServer, tools := newServer(NewItemitMCP(client, nil), logger)

	switch opts.transport {
	case "stdio":
		logger.Info().Str("api", cfg.APIBase).Msg("itemit MCP server running on stdio")
		err = serveStdio(ctx, mcpServer, a.stdin, a.stdout, a.stderr)
	case "http":
		err = serveHTTP(ctx, mcpServer, tools, firstNonEmpty(opts.addr, ":"+cfg.Port), logger)
	default:
		err = fmt.Errorf("unknown transport %q (want stdio or http)", opts.transport)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("server error")
		return reportedError{err}
	}
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := &app{getenv: os.Getenv, stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		var reported reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", serverName, err)
		}
		cancel()
		os.Exit(1)
	}
}
