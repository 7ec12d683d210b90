// Command reelview runs the movie capture service: MCP tools on stdio and
// the REST/WebSocket API on a local port, sharing one capture pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/odvcencio/reelview/pkg/api"
	"github.com/odvcencio/reelview/pkg/bus"
	"github.com/odvcencio/reelview/pkg/capture"
	"github.com/odvcencio/reelview/pkg/capture/adapters/chrome"
	"github.com/odvcencio/reelview/pkg/config"
	"github.com/odvcencio/reelview/pkg/fanout"
	"github.com/odvcencio/reelview/pkg/logging"
	"github.com/odvcencio/reelview/pkg/mcptools"
	"github.com/odvcencio/reelview/pkg/nyra"
	"github.com/odvcencio/reelview/pkg/orchestrator"
	"github.com/odvcencio/reelview/pkg/session"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	noMCP := flag.Bool("no-mcp", false, "disable the MCP stdio server")
	flag.Parse()

	if err := run(*configPath, !*noMCP); err != nil {
		fmt.Fprintln(os.Stderr, "reelview:", err)
		os.Exit(1)
	}
}

func run(configPath string, withMCP bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.NewLogger()
	logger.SetMinLevel(logging.Level(cfg.Logging.Level))

	eventBus, err := newEventBus(cfg)
	if err != nil {
		return fmt.Errorf("event bus: %w", err)
	}
	defer eventBus.Close()

	metrics := capture.NewMetrics()
	captureCfg := capture.Config{
		Headless:          cfg.Browser.Headless,
		AttachURL:         cfg.Browser.AttachURL,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
	}
	factory := func(profile capture.Profile) *capture.Engine {
		return capture.NewEngine(chrome.Opener(), profile, captureCfg, logger, metrics)
	}

	registry := session.NewRegistry(factory, session.Config{MaxSessions: cfg.Server.MaxSessions}, logger, metrics)
	dispatcher := fanout.NewDispatcher(registry, eventBus, logger)
	nyraClient := nyra.NewClient(nyra.Config{BaseURL: cfg.Nyra.APIURL, APIKey: cfg.Nyra.APIKey}, logger)
	bridge := nyra.NewBridge(nyraClient, registry, dispatcher)
	orch := orchestrator.New(registry, dispatcher, bridge)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	// HTTP API, with a single port+1 retry when the port is taken.
	shutdownHTTP := startHTTP(cfg.Server.Port, orch, eventBus, metrics, logger, errCh)

	if withMCP {
		mcpServer := mcptools.NewServer(orch, logger)
		go func() {
			if err := mcpServer.ServeStdio(); err != nil {
				errCh <- fmt.Errorf("mcp server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info(logging.CategorySession, "shutting_down", "", "signal received", nil)
	case err := <-errCh:
		if err != nil {
			logger.Error(logging.CategorySession, "server_failed", "", err.Error(), nil)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = shutdownHTTP(shutdownCtx)
	orch.Shutdown()
	return nil
}

func newEventBus(cfg *config.Config) (bus.EventBus, error) {
	if cfg.Bus.Backend == "nats" {
		return bus.NewNATSBus(bus.NATSConfig{URL: cfg.Bus.NATSURL})
	}
	return bus.NewMemoryBus(), nil
}

// startHTTP starts the API server in the background and returns its
// shutdown function. If the configured port is taken, it retries once on
// port+1 so a second instance during development does not hard-fail.
func startHTTP(port int, orch *orchestrator.Orchestrator, eventBus bus.EventBus, metrics *capture.Metrics, logger *logging.Logger, errCh chan<- error) func(context.Context) error {
	build := func(p int) *api.Server {
		return api.NewServer(api.ServerConfig{
			Address:      fmt.Sprintf(":%d", p),
			Orchestrator: orch,
			EventBus:     eventBus,
			Metrics:      metrics,
			Logger:       logger,
		})
	}

	var mu sync.Mutex
	server := build(port)

	go func() {
		err := server.Start()
		if isAddrInUse(err) {
			logger.Warn(logging.CategoryAPI, "port_in_use", "", fmt.Sprintf("port %d taken, retrying on %d", port, port+1), nil)
			mu.Lock()
			server = build(port + 1)
			retry := server
			mu.Unlock()
			err = retry.Start()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	return func(ctx context.Context) error {
		mu.Lock()
		current := server
		mu.Unlock()
		return current.Shutdown(ctx)
	}
}

func isAddrInUse(err error) bool {
	return err != nil && errors.Is(err, syscall.EADDRINUSE)
}
