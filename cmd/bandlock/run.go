package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/radio-control/bandlock/internal/adapter"
	"github.com/radio-control/bandlock/internal/adapter/hilink"
	"github.com/radio-control/bandlock/internal/audit"
	"github.com/radio-control/bandlock/internal/config"
	"github.com/radio-control/bandlock/internal/enforce"
	"github.com/radio-control/bandlock/internal/metrics"
	"github.com/radio-control/bandlock/internal/telemetry"
)

// Version is the release reported by -version.
const Version = "1.0.0"

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type options struct {
	configPath string
	status     bool
	dumpSignal string
	dumpRaw    bool
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("bandlock", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to a .yaml or .toml config file (default $"+config.EnvConfigFile+")")
	fs.BoolVar(&opts.status, "status", false, "print the current band and signal quality, then exit")
	fs.StringVar(&opts.dumpSignal, "dump-signal", "", "write the signal telemetry document to `file`, then exit")
	fs.BoolVar(&opts.dumpRaw, "dump-raw", false, "with -dump-signal, keep the router's formatting")
	fs.BoolVar(&opts.version, "version", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// run executes one bandlock invocation and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	logger := log.New(stderr, "bandlock: ", log.LstdFlags)

	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		logger.Printf("%v", err)
		return exitUsage
	}
	if opts.version {
		fmt.Fprintf(stdout, "bandlock %s\n", Version)
		return exitOK
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		logger.Printf("Failed to load configuration: %v", err)
		return exitFailure
	}

	client, err := hilink.NewClient(cfg.Router.Name, cfg.Router.Address, cfg.HiLinkOptions())
	if err != nil {
		logger.Printf("Failed to create router client: %v", err)
		return exitFailure
	}
	logger.Printf("Using %s router %s at %s", client.GetModel(), client.GetRouterID(), cfg.Router.Address)

	if opts.status || opts.dumpSignal != "" {
		if err := inspect(ctx, client, cfg, opts, stdout); err != nil {
			logger.Printf("%v", err)
			return exitFailure
		}
		return exitOK
	}

	return enforceBands(ctx, client, cfg, logger, stderr)
}

// enforceBands runs the driver with the operator log, metrics and events wired in.
func enforceBands(ctx context.Context, router adapter.RouterControl, cfg *config.Config, logger *log.Logger, stderr io.Writer) int {
	settings, err := cfg.Settings()
	if err != nil {
		logger.Printf("Invalid configuration: %v", err)
		return exitFailure
	}

	auditOpts := cfg.AuditOptions()
	auditOpts.Mirror = stderr
	auditLogger, err := audit.NewLogger(auditOpts)
	if err != nil {
		logger.Printf("Failed to initialize operator log: %v", err)
		return exitFailure
	}
	defer func() {
		if err := auditLogger.Close(); err != nil {
			logger.Printf("Error closing operator log: %v", err)
		}
	}()
	logger.Printf("Operator log: %s (SIGHUP rotates it)", auditLogger.GetFilePath())

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	rotationDone := make(chan struct{})
	go rotateOnSignal(hup, rotationDone, auditLogger, logger)
	defer func() {
		signal.Stop(hup)
		close(rotationDone)
	}()

	collector, err := metrics.NewCollector(prometheus.NewRegistry(), cfg.Router.Name)
	if err != nil {
		logger.Printf("Failed to register metrics: %v", err)
		return exitFailure
	}

	runID := uuid.NewString()
	var sinks []telemetry.Publisher
	if cfg.MQTTEnabled() {
		publisher, err := telemetry.DialMQTT(cfg.TelemetryMQTT(runID))
		if err != nil {
			logger.Printf("MQTT disabled: %v", err)
		} else {
			sinks = append(sinks, publisher)
		}
	}
	hub := telemetry.NewHub(runID, sinks...)
	defer func() {
		if err := hub.Close(); err != nil {
			logger.Printf("Error closing telemetry: %v", err)
		}
	}()

	driver := enforce.NewDriver(router, settings, enforce.Deps{
		Log:     auditLogger,
		Metrics: collector,
		Events:  hub,
	})
	result, err := driver.Run(ctx)

	collector.MarkRun(time.Now())
	if cfg.Metrics.Textfile != "" {
		if werr := collector.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			logger.Printf("%v", werr)
		}
	}

	if err != nil {
		logger.Printf("Run %s ended without convergence after %d attempts: %v", runID, result.Attempts, err)
		return exitFailure
	}
	logger.Printf("Run %s: %s after %d attempts, band %s", runID, result.Outcome, result.Attempts, result.Band)
	return exitOK
}

// rotateOnSignal rotates the operator log each time sigs fires, until done
// is closed.
func rotateOnSignal(sigs <-chan os.Signal, done <-chan struct{}, auditLogger *audit.Logger, logger *log.Logger) {
	for {
		select {
		case <-done:
			return
		case <-sigs:
			if err := auditLogger.Rotate(); err != nil {
				logger.Printf("Log rotation failed: %v", err)
			}
		}
	}
}

// inspect serves -status and -dump-signal: it logs in, reads telemetry once
// and logs out without changing any setting.
func inspect(ctx context.Context, router adapter.RouterControl, cfg *config.Config, opts options, stdout io.Writer) error {
	creds := adapter.Credentials{Username: cfg.Router.Username, Password: cfg.Router.Password}
	if err := router.Login(ctx, creds); err != nil {
		return fmt.Errorf("router %s: login: %w", cfg.Router.Name, err)
	}
	defer func() {
		logoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = router.Logout(logoutCtx)
	}()

	if opts.dumpSignal != "" {
		if err := dumpSignal(ctx, router, opts.dumpSignal, !opts.dumpRaw); err != nil {
			return err
		}
	}
	if !opts.status {
		return nil
	}

	sig, err := enforce.NewMonitor(router, cfg.Router.Name, enforce.Deps{}).ReadSignal(ctx)
	if err != nil {
		return err
	}
	if !sig.Attached() {
		fmt.Fprintf(stdout, "Router %s: not attached to any band\n", cfg.Router.Name)
		return nil
	}
	fmt.Fprintf(stdout, "Router %s: band %s (sinr %s, rsrp %s, rsrq %s)\n",
		cfg.Router.Name, sig.Band, orDash(sig.SINR), orDash(sig.RSRP), orDash(sig.RSRQ))
	return nil
}

// dumpSignal writes the signal document to filename, indented unless raw.
func dumpSignal(ctx context.Context, router adapter.RouterControl, filename string, pretty bool) error {
	raw, err := router.SignalTelemetry(ctx)
	if err != nil {
		return fmt.Errorf("read signal: %w", err)
	}
	if pretty {
		if raw, err = hilink.IndentXML(raw); err != nil {
			return fmt.Errorf("format signal: %w", err)
		}
	}
	if err := os.WriteFile(filename, append(raw, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
