package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/getmockd/wsbridge/pkg/cli/internal/ports"
	"github.com/getmockd/wsbridge/pkg/config"
	"github.com/getmockd/wsbridge/pkg/httpserver"
	"github.com/getmockd/wsbridge/pkg/logging"
	"github.com/getmockd/wsbridge/pkg/metrics"
	"github.com/getmockd/wsbridge/pkg/textcodec"
	"github.com/getmockd/wsbridge/pkg/transport/httpnet"
	"github.com/getmockd/wsbridge/pkg/transport/wsnet"
	"github.com/getmockd/wsbridge/pkg/websocket"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 10 * time.Second

// serveFlags holds the serve command's flag values.
type serveFlags struct {
	configPath string
	envFile    string
	wsPort     int
	httpPort   int
	logLevel   string
	logFormat  string
	echo       bool
}

var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WebSocket server and HTTP admin routes (foreground)",
	Long: `Start the WebSocket server and the HTTP route table.

HTTP routes (all answer 200 with a JSON body and CORS headers):
  GET  /clients                 list connected clients
  PUT  /clients/name?id=&name=  set a client's display name
  POST /send?id=|name=          send the body to one client
  POST /broadcast               send the body to every client
  GET  /stats                   server statistics
  POST /echo                    echo the body
  GET  /metrics                 Prometheus metrics (when enabled)`,
	Example: `  # Start with defaults
  wsbridge serve

  # Custom ports and a config file
  wsbridge serve --config wsbridge.yaml --ws-port 9000 --http-port 9001`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadServeConfig(cmd, serveFlagVals)
		if err != nil {
			return err
		}
		return runServe(ctx, cfg, serveFlagVals.echo, nil)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&serveFlagVals.configPath, "config", "c", "", "Path to a YAML or JSON configuration file")
	f.StringVar(&serveFlagVals.envFile, "env-file", ".env", "Environment file to load before reading configuration")
	f.IntVar(&serveFlagVals.wsPort, "ws-port", 0, "WebSocket port (overrides config)")
	f.IntVar(&serveFlagVals.httpPort, "http-port", 0, "HTTP port (overrides config)")
	f.StringVar(&serveFlagVals.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&serveFlagVals.logFormat, "log-format", "", "Log format: text or json")
	f.BoolVar(&serveFlagVals.echo, "echo", false, "Echo every WebSocket message back to its sender")
	rootCmd.AddCommand(serveCmd)
}

// loadServeConfig loads .env, then configuration, then applies flags that were set.
func loadServeConfig(cmd *cobra.Command, fl serveFlags) (*config.Config, error) {
	if fl.envFile != "" {
		if err := godotenv.Load(fl.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", fl.envFile, err)
		}
	}

	cfg, err := config.Load(fl.configPath)
	if err != nil {
		return nil, err
	}

	changed := func(name string) bool { return cmd != nil && cmd.Flags().Changed(name) }
	if changed("ws-port") {
		cfg.WebSocket.Port = fl.wsPort
	}
	if changed("http-port") {
		cfg.HTTP.Port = fl.httpPort
	}
	if changed("log-level") {
		cfg.Log.Level = fl.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = fl.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runServe runs until ctx is cancelled. If ready is not nil it is called
// once both servers are accepting.
func runServe(ctx context.Context, cfg *config.Config, echo bool, ready func(*websocket.Server, *httpnet.Module)) error {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(cfg.Log.Level)
	lc.Format = logging.ParseFormat(cfg.Log.Format)
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		lc.Mirror = f
	}
	log := logging.New(lc)

	if err := ports.Check(cfg.WebSocket.Host, cfg.WebSocket.Port); err != nil {
		return fmt.Errorf("websocket: %w", err)
	}

	codec, err := textcodec.New(cfg.Codec.LegacyCodePage)
	if err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		metrics.Init()
	}

	srv := websocket.NewServer(
		wsnet.Factory(wsnet.Config{
			Host:           cfg.WebSocket.Host,
			MaxEvents:      cfg.WebSocket.MaxEvents,
			MaxConnections: cfg.WebSocket.MaxConnections,
			TextFrames:     cfg.WebSocket.TextFrames,
			Logger:         log.With("component", "wsnet"),
		}),
		websocket.WithLogger(log.With("component", "websocket")),
		websocket.WithErrorPolicy(websocket.ParseErrorPolicy(cfg.WebSocket.ErrorPolicy)),
		websocket.WithCodec(codec),
	)
	srv.Subscribe(clientLogger(srv, log, echo))

	module := httpnet.New(
		httpnet.WithLogger(log.With("component", "httpnet")),
		httpnet.WithSerializedHandlers(cfg.HTTP.Serialize),
	)

	driver := websocket.NewDriver(srv, cfg.WebSocket.TickInterval.Duration())
	if cfg.HTTP.Serialize {
		driver.OnTick(module.Tick)
	}

	driverCtx, stopDriver := context.WithCancel(context.Background())
	defer func() {
		stopDriver()
		driver.Wait()
	}()
	if err := driver.Start(driverCtx, cfg.WebSocket.Port); err != nil {
		return err
	}

	hs, err := httpserver.Create(module, cfg.HTTP.Port,
		httpserver.WithLogger(log.With("component", "httpserver")),
		httpserver.WithBindAddress(cfg.HTTP.BindAddress),
	)
	if err != nil {
		return err
	}
	defer hs.Close()

	admin := &adminRoutes{srv: srv, log: log, run: tickRunner(ctx, driver, cfg.HTTP.Serialize)}
	if err := admin.bind(hs); err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		if err := module.Mount(cfg.HTTP.Port, cfg.Metrics.Path, metrics.DefaultRegistry().Handler()); err != nil {
			return err
		}
	}

	log.Info("wsbridge started",
		"wsPort", cfg.WebSocket.Port,
		"httpPort", cfg.HTTP.Port,
		"bindAddress", cfg.HTTP.BindAddress,
	)
	if ready != nil {
		ready(srv, module)
	}

	select {
	case <-ctx.Done():
	case <-driver.Done():
		log.Warn("websocket driver exited")
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := module.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	return nil
}

// tickRunner returns a function that runs work on the tick goroutine. In
// serialized mode handlers already run there, so work runs inline.
func tickRunner(ctx context.Context, driver *websocket.Driver, serialized bool) func(func()) {
	if serialized {
		return func(fn func()) { fn() }
	}
	return func(fn func()) {
		_ = driver.Do(ctx, fn)
	}
}

func clientLogger(srv *websocket.Server, log *slog.Logger, echo bool) websocket.Listener {
	return websocket.ListenerFuncs{
		Connected: func(id string) {
			log.Info("client connected", "id", id, "clients", srv.ClientCount())
		},
		Message: func(data []byte, size int, id string) {
			log.Debug("client message", "id", id, "size", size)
			if echo {
				srv.Send(id, data)
			}
		},
		Closed: func(id string) {
			log.Info("client closed", "id", id, "clients", srv.ClientCount())
		},
		Error: func(id string) {
			log.Warn("client error", "id", id)
		},
	}
}
