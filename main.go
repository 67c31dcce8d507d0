// Command marsrover drives a single rover on a spherical-mercator surface.
//
// It supports three modes:
//  1. "serve" (default) runs the HTTP server exposing the /move text protocol,
//     the JSON API, WebSocket updates, /metrics and an /mcp HTTP endpoint
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "watch" prints rover events published on NATS
//
// Flags control host/port, config file, debug logging and optional ngrok
// tunneling for easy external access during development. The landing
// position can be given as positional arguments: marsrover [flags] -- <x> <y> <direction>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/marsrover/api"
	"github.com/wricardo/marsrover/config"
	"github.com/wricardo/marsrover/logging"
	"github.com/wricardo/marsrover/mercator"
	"github.com/wricardo/marsrover/rover/engine"
	"github.com/wricardo/marsrover/rover/journal"
	"github.com/wricardo/marsrover/rover/service"
	"github.com/wricardo/marsrover/telemetry"
	"github.com/wricardo/marsrover/transport/mcp"
	natsevents "github.com/wricardo/marsrover/transport/nats"
	"github.com/wricardo/marsrover/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Mars Rover Server"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("error loading .env file", "error", err)
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the root command. Flags are shared by every subcommand.
func newApp() *cli.Command {
	return &cli.Command{
		Name:      "marsrover",
		Usage:     AppName,
		Version:   Version,
		ArgsUsage: "[<x> <y> <direction>]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to a YAML config file"},
			&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP server port"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
			&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel"},
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:      "serve",
				Aliases:   []string{"server", "http"},
				Usage:     "run the HTTP server (default)",
				ArgsUsage: "[<x> <y> <direction>]",
				Action:    runServe,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "run an MCP stdio server backed by the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Usage: "rover API to proxy; defaults to the configured server address"},
				},
				Action: runMCP,
			},
			{
				Name:   "watch",
				Usage:  "print rover events published on NATS",
				Action: runWatch,
			},
		},
	}
}

// loadConfig applies config file, environment, flags and positional args,
// in increasing priority.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Read(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		cfg.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = int(cmd.Int("port"))
	}
	if cmd.Bool("debug") {
		cfg.Log.Level = "debug"
	}
	if cmd.Bool("ngrok") {
		cfg.Ngrok.Enabled = true
	}

	if err := applyRoverArgs(cfg, cmd.Args().Slice()); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyRoverArgs overrides the landing position with <x> <y> <direction>.
func applyRoverArgs(cfg *config.Config, args []string) error {
	switch len(args) {
	case 0:
		return nil
	case 3:
	default:
		return fmt.Errorf("expected <x> <y> <direction>, got %d arguments", len(args))
	}

	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid x %q: %w", args[0], err)
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid y %q: %w", args[1], err)
	}
	if _, err := engine.ParseOrientation(args[2]); err != nil {
		return err
	}

	cfg.Rover.X, cfg.Rover.Y, cfg.Rover.Direction = x, y, args[2]
	return nil
}

// openJournal picks the SQLite journal when a path is configured.
func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	if cfg.Path != "" {
		return journal.NewSQLiteJournal(cfg.Path)
	}
	return journal.NewMemoryJournal(cfg.Capacity), nil
}

// app holds everything initializeServices wires together.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	service service.RoverService
	hub     *websocket.Hub
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// initializeServices wires the rover, journal, event publishers and tracer.
func initializeServices(ctx context.Context, cfg *config.Config, logger *log.Logger) (*app, error) {
	if logger == nil {
		logger = log.Default()
	}
	a := &app{cfg: cfg, logger: logger}

	rover, err := engine.NewFromStrings(cfg.Rover.X, cfg.Rover.Y, cfg.Rover.Direction)
	if err != nil {
		return nil, err
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := j.Close(); err != nil {
			logger.Warn("journal close failed", "error", err)
		}
	})

	a.hub = websocket.NewHub(logger)
	publishers := service.MultiPublisher{
		service.PublisherFunc(func(ctx context.Context, event service.Event) error {
			a.hub.BroadcastEvent(event.Type, event)
			return nil
		}),
	}

	if cfg.NATS.URL != "" {
		pub, err := natsevents.NewPublisher(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		publishers = append(publishers, pub)
		a.closers = append(a.closers, pub.Close)
		logger.Info("publishing events to nats", "url", cfg.NATS.URL, "subject", cfg.NATS.Subject)
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to init tracer: %w", err)
		}
		a.closers = append(a.closers, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("tracer shutdown failed", "error", err)
			}
		})
	}

	a.service, err = service.NewRoverService(service.Dependencies{
		Rover:   rover,
		Journal: j,
		Events:  publishers,
		Logger:  logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	logger.Info("rover landed", "x", mercator.FormatFloat(cfg.Rover.X), "y", mercator.FormatFloat(cfg.Rover.Y), "direction", cfg.Rover.Direction)
	return a, nil
}

// newRouter mounts the API at root and the MCP proxy at /mcp.
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, api.MaxBodyBytes))
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mainRouter
}

// runServe starts the HTTP server and, if enabled, an ngrok tunnel. It
// returns after a graceful shutdown on SIGINT or SIGTERM.
func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting", "app", AppName, "version", Version, "mode", "serve")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := initializeServices(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer a.Close()

	go a.hub.Run(ctx)

	addr := cfg.Server.Addr()
	handler := newRouter(api.NewServer(a.service, a.hub), mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening", "addr", addr)
		logger.Info("endpoints",
			"move", "http://"+addr+"/move",
			"api", "http://"+addr+"/api/rover",
			"ws", "ws://"+addr+"/ws",
			"mcp", "http://"+addr+"/mcp")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if cfg.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cfg.Ngrok, handler, logger)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		stop()
		wg.Wait()
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	wg.Wait()
	logger.Info("server stopped")
	return nil
}

// runNgrok serves handler through an ngrok tunnel until ctx is done.
func runNgrok(ctx context.Context, cfg config.NgrokConfig, handler http.Handler, logger *log.Logger) {
	// Support both naming conventions for the token
	authToken := cfg.Authtoken
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
		if authToken == "" {
			authToken = os.Getenv("NGROK_AUTH_TOKEN")
		}
	}
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (set ngrok.authtoken or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		logger.Info("using custom ngrok domain", "domain", cfg.Domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "error", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", "error", err)
		}
	}()

	logger.Info("ngrok tunnel established", "url", tun.URL())
	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error("ngrok server error", "error", err)
	}
	logger.Info("ngrok tunnel closed")
}

// runMCP runs an MCP stdio server. It reuses a running API when one answers
// at --api-url (or the configured address); otherwise it starts an internal
// HTTP API on a random loopback port.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	externalURL := cmd.String("api-url")
	if externalURL == "" {
		externalURL = "http://" + cfg.Server.Addr()
	}

	baseURL := externalURL
	if !apiAvailable(ctx, externalURL) {
		logger.Info("no external API server found, starting internal HTTP server", "checked", externalURL)

		a, err := initializeServices(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer a.Close()

		go a.hub.Run(ctx)

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		httpServer := &http.Server{Handler: api.NewServer(a.service, a.hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", "error", err)
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
	}

	logger.Info("MCP stdio server ready", "api", baseURL)
	if err := mcp.NewClient(baseURL).ServeStdio(); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// apiAvailable reports whether a rover API answers /healthz at baseURL.
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runWatch logs every event published under the configured subject until
// interrupted.
func runWatch(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.NATS.URL == "" {
		return errors.New("nats.url is not configured (set MARSROVER_NATS_URL)")
	}

	sub, err := natsevents.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		return err
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = sub.Subscribe(ctx, cfg.NATS.Subject, func(ctx context.Context, event service.Event) error {
		logger.Info(event.Type,
			"command", event.Command,
			"position", event.Position.String(),
			"direction", event.Direction,
			"message", event.Message)
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("watching rover events", "url", cfg.NATS.URL, "subject", cfg.NATS.Subject+".>")
	<-ctx.Done()
	return nil
}
