package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"github.com/signalogic/mediaengine/pkg/eventlog"
)

func main() {
	os.Exit(run())
}

// run wires flags + config into a Driver and executes it, returning a
// process exit code so deferred cleanup always runs, matching the
// testnet suite's run()/main() split.
func run() int {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	base := defaultConfig()
	if flags.confPath != "" {
		fileCfg, err := LoadConfigFile(flags.confPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		base = mergeConfigs(base, fileCfg)
	}
	cfg := mergeFlags(base, flags)

	if len(cfg.Inputs) == 0 {
		fmt.Fprintln(os.Stderr, "mediaengine: at least one -i input is required")
		return 2
	}

	logger, err := eventlog.New(eventlog.Config{
		Level:    eventlog.Level(cfg.LogLevel),
		Sink:     sinkFor(cfg),
		FilePath: cfg.LogFile,
		Append:   false,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logger.Close()

	driver, err := NewDriver(cfg, logger)
	if err != nil {
		logger.Errorf(nil, "failed to build driver: %v", err)
		return 1
	}
	defer driver.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel, logger)

	commands := keyboardCommands(ctx, os.Stdin)

	if err := driver.Run(ctx, commands); err != nil {
		logger.Errorf(nil, "run failed: %v", err)
		return 1
	}
	return 0
}

// sinkFor defaults to console-only unless a log file path was given, in
// which case both sinks are active.
func sinkFor(cfg Config) eventlog.Sink {
	if cfg.LogFile == "" {
		return eventlog.SinkScreen
	}
	return eventlog.SinkBoth
}

// mergeConfigs overlays a config-file Config on the built-in defaults,
// leaving any field the file left at its zero value on the default.
func mergeConfigs(base, file Config) Config {
	cfg := base
	if len(file.Inputs) > 0 {
		cfg.Inputs = file.Inputs
	}
	if len(file.Outputs) > 0 {
		cfg.Outputs = file.Outputs
	}
	if file.LogFile != "" {
		cfg.LogFile = file.LogFile
	}
	if file.RateMs > 0 {
		cfg.RateMs = file.RateMs
	}
	if file.Mode != 0 {
		cfg.Mode = file.Mode
	}
	if file.Repeat > 0 {
		cfg.Repeat = file.Repeat
	}
	if file.Jitter != 0 {
		cfg.Jitter = file.Jitter
	}
	if file.Threads > 0 {
		cfg.Threads = file.Threads
	}
	if file.LogLevel > 0 {
		cfg.LogLevel = file.LogLevel
	}
	if file.AutoRateFloor > 0 {
		cfg.AutoRateFloor = file.AutoRateFloor
	}
	if file.AutoRateCeiling > 0 {
		cfg.AutoRateCeiling = file.AutoRateCeiling
	}
	return cfg
}

func setupSignalHandling(cancel context.CancelFunc, logger *eventlog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		sig := <-sigChan
		logger.Infof(logrus.Fields{"signal": sig.String()}, "received interrupt, shutting down")
		cancel()
	}()
}
