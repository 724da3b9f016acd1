package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hageln/forgext/internal/bridge"
	"github.com/hageln/forgext/internal/config"
	"github.com/hageln/forgext/internal/discovery"
	"github.com/hageln/forgext/internal/eventbus"
	"github.com/hageln/forgext/internal/loader"
	"github.com/hageln/forgext/internal/metrics"
	"github.com/hageln/forgext/internal/otel"
	"github.com/hageln/forgext/internal/registry"
	"github.com/hageln/forgext/internal/router"
	"github.com/hageln/forgext/internal/server"
)

const rootUsage = `forgext: extension runtime & schema composition for the forge

USAGE:
  forgext <command> [flags]

COMMANDS:
  serve            Load extensions and run the HTTP runtime surface
  compile-sdl      Load extensions and print the composed schema SDL
  report           Load extensions and print the ownership report as JSON
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -config <file>               YAML config file (watched for changes)
  -server.addr <addr>          HTTP listen address (default: :8080)
  -server.pretty               Pretty-print JSON responses
  -extensions.dir <dir>        Extension bundle directory (default: ./extensions)
  -extensions.data-dir <dir>   Per-extension database directory (default: ./data)
  -extensions.fail-fast        Abort startup on the first failed extension
  -extensions.debug            Enable the debug resolution endpoint
  -resolve.timeout <duration>  Per-field resolution timeout, e.g. 5s (default: 5s)
  -log.level <level>           Log level: trace..error (default: info)
  -log.pretty                  Human-readable console log output
  -otel.endpoint <addr>        OTLP collector endpoint
  -otel.service <name>         OpenTelemetry service name (default: forgext)
`

const compileSDLUsage = `compile-sdl FLAGS:
  -extensions.dir <dir>        Extension bundle directory (default: ./extensions)
  -extensions.data-dir <dir>   Per-extension database directory (default: ./data)
  -out <file>                  Write composed SDL to file (default: stdout)
  (Validation always runs; exits non-zero on errors)
`

const reportUsage = `report FLAGS:
  -extensions.dir <dir>        Extension bundle directory (default: ./extensions)
  -extensions.data-dir <dir>   Per-extension database directory (default: ./data)
  -pretty                      Indent the JSON output
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("forgext", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "compile-sdl":
		return cmdCompileSDL(cmdArgs)
	case "report":
		return cmdReport(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "compile-sdl":
		fmt.Print(compileSDLUsage)
	case "report":
		fmt.Print(reportUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

// newLogger configures the process logger. The level is set globally so a
// config reload can change it for every logger already handed out.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// loadExtensions spins up every discovered bundle and freezes the registry.
func loadExtensions(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*registry.Registry, map[string]*loader.Extension, error) {
	disc, err := discovery.NewFileSystemDiscovery(cfg.Extensions.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("extension discovery: %w", err)
	}
	reg := registry.New()
	l := loader.New(&bridge.SubprocessFactory{Debug: cfg.Extensions.Debug}, reg, log, loader.Options{
		DataDir:     cfg.Extensions.DataDir,
		FailFast:    cfg.Extensions.FailFast,
		CallTimeout: cfg.Extensions.LoadTimeout.Std(),
	})
	exts, err := l.LoadAll(ctx, disc)
	if err != nil {
		return nil, nil, err
	}
	return reg, exts, nil
}

func closeExtensions(exts map[string]*loader.Extension) {
	for _, e := range exts {
		e.Close()
	}
}

func cmdServe(args []string) error {
	configPath := ""
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&configPath, "config", configPath, "YAML config file")
	addr := fs.String("server.addr", "", "HTTP listen address")
	pretty := fs.Bool("server.pretty", false, "Pretty-print JSON responses")
	extDir := fs.String("extensions.dir", "", "Extension bundle directory")
	dataDir := fs.String("extensions.data-dir", "", "Per-extension database directory")
	failFast := fs.Bool("extensions.fail-fast", false, "Abort startup on the first failed extension")
	debug := fs.Bool("extensions.debug", false, "Enable the debug resolution endpoint")
	resolveTimeout := fs.Duration("resolve.timeout", 0, "Per-field resolution timeout")
	logLevel := fs.String("log.level", "", "Log level")
	logPretty := fs.Bool("log.pretty", false, "Human-readable console log output")
	otelEndpoint := fs.String("otel.endpoint", "", "OTLP collector endpoint")
	otelService := fs.String("otel.service", "", "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}

	var cfg *config.Config
	var holder *config.Holder
	bootLog := newLogger(config.Default().Logging)
	if configPath != "" {
		var err error
		holder, err = config.NewHolder(configPath, bootLog)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = holder.Get()
	} else {
		cfg = config.Default()
	}

	// Flags given explicitly override the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server.addr":
			cfg.Server.Addr = *addr
		case "extensions.dir":
			cfg.Extensions.Dir = *extDir
		case "extensions.data-dir":
			cfg.Extensions.DataDir = *dataDir
		case "extensions.fail-fast":
			cfg.Extensions.FailFast = *failFast
		case "extensions.debug":
			cfg.Extensions.Debug = *debug
		case "resolve.timeout":
			cfg.Extensions.ResolveTimeout = config.Duration(*resolveTimeout)
		case "log.level":
			cfg.Logging.Level = *logLevel
		case "log.pretty":
			cfg.Logging.Pretty = *logPretty
		case "otel.endpoint":
			cfg.Otel.Endpoint = *otelEndpoint
		case "otel.service":
			cfg.Otel.Service = *otelService
		}
	})
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := newLogger(cfg.Logging)
	eventbus.Use(eventbus.New())

	shutdown, err := otel.Setup(cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	collector := metrics.New()
	unobserve := collector.Observe()
	defer unobserve()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, exts, err := loadExtensions(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("load extensions: %w", err)
	}
	defer closeExtensions(exts)

	instances := make(map[string]*bridge.Instance, len(exts))
	for name, e := range exts {
		instances[name] = e.Instance
	}
	rt := router.New(reg, instances, cfg.Extensions.ResolveTimeout.Std())

	var sopts []server.Option
	if *pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if cfg.Extensions.Debug {
		sopts = append(sopts, server.WithDebug(true))
	}
	h := server.New(reg, rt, sopts...)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	if holder != nil {
		holder.OnChange(func(nc *config.Config) {
			lvl, err := zerolog.ParseLevel(nc.Logging.Level)
			if err != nil {
				log.Warn().Str("level", nc.Logging.Level).Msg("ignoring invalid log level from reload")
				return
			}
			zerolog.SetGlobalLevel(lvl)
			log.Info().Str("level", lvl.String()).Msg("log level updated")
		})
		if err := holder.WatchFile(); err != nil {
			log.Warn().Err(err).Msg("config watch unavailable")
		}
		defer holder.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Int("extensions", len(exts)).Msg("runtime listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func cmdCompileSDL(args []string) error {
	extDir := "./extensions"
	dataDir := "./data"
	outFile := ""
	fs := flag.NewFlagSet("compile-sdl", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&extDir, "extensions.dir", extDir, "Extension bundle directory")
	fs.StringVar(&dataDir, "extensions.data-dir", dataDir, "Per-extension database directory")
	fs.StringVar(&outFile, "out", outFile, "Write composed SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, compileSDLUsage)
		return err
	}

	cfg := config.Default()
	cfg.Extensions.Dir = extDir
	cfg.Extensions.DataDir = dataDir
	cfg.Extensions.FailFast = true
	log := newLogger(cfg.Logging)

	reg, exts, err := loadExtensions(context.Background(), cfg, log)
	if err != nil {
		return fmt.Errorf("load extensions: %w", err)
	}
	defer closeExtensions(exts)

	sdl := reg.ComposedSDL()
	if outFile == "" {
		fmt.Print(sdl)
		return nil
	}
	return os.WriteFile(outFile, []byte(sdl), 0644)
}

func cmdReport(args []string) error {
	extDir := "./extensions"
	dataDir := "./data"
	pretty := false
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&extDir, "extensions.dir", extDir, "Extension bundle directory")
	fs.StringVar(&dataDir, "extensions.data-dir", dataDir, "Per-extension database directory")
	fs.BoolVar(&pretty, "pretty", pretty, "Indent the JSON output")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, reportUsage)
		return err
	}

	cfg := config.Default()
	cfg.Extensions.Dir = extDir
	cfg.Extensions.DataDir = dataDir
	log := newLogger(cfg.Logging)

	reg, exts, err := loadExtensions(context.Background(), cfg, log)
	if err != nil {
		return fmt.Errorf("load extensions: %w", err)
	}
	defer closeExtensions(exts)

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(reg.OwnershipReport())
}
