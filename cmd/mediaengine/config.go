// Package main wires the session registry, pipeline engine, stream-group
// mixer, worker scheduler, and event log into a runnable driver, in the
// spirit of the testnet suite's cmd/main.go: parse flags, build a
// config, run, return an exit code.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/signalogic/mediaengine/pkg/eventlog"
	"github.com/signalogic/mediaengine/pkg/scheduler"
)

// Mode is the driver's -d bitfield, one bit per DS_ENABLE_*/DS_DISABLE_*
// flag spec.md §6 names.
type Mode uint32

const (
	ModeDynamicCall Mode = 1 << iota
	ModeCombineCalls
	ModeUsePacketArrivalTimes
	ModeAnalytics
	ModeAutoAdjustPushRate
	ModeRepeatInputs
	ModeEnableStreamGroups
	ModeEnableWavOutput
	ModeRoundRobinSessionAllocation
	ModeWholeGroupThreadAllocate
	ModeEnableStreamGroupDeduplication
	ModeDisableDTXHandling
	ModeDisableFLC
	ModeDisablePacketRepair
	ModeEnableTimingMarkers
	ModeEnablePacketInputAlarm
	ModeEnableMemStats
	ModeEnergySaverTest
	ModeStartThreadsFirst
	ModeCreateDeleteTest
	ModeCreateDeleteTestPcap
	ModeEnableRandomWait
	ModeDisableAutoquit
)

// Has reports whether every bit in want is set in m.
func (m Mode) Has(want Mode) bool { return m&want == want }

// Config is the driver's full configuration: a -C YAML file merged with
// CLI flags, CLI taking precedence on every field it sets explicitly.
type Config struct {
	Inputs  []string `yaml:"inputs"`
	Outputs []string `yaml:"outputs"`
	LogFile string   `yaml:"log_file"`

	// RateMs is the fixed push cadence in milliseconds; 0 falls back to
	// a 20ms cadence (see rateTick).
	RateMs uint   `yaml:"rate_ms"`
	Mode   Mode   `yaml:"mode"`
	Repeat int    `yaml:"repeat"`
	Jitter uint32 `yaml:"jitter"` // target in the low byte, max in the next

	Threads int `yaml:"threads"`

	LogLevel int `yaml:"log_level"`

	// AutoRateFloor/AutoRateCeiling bound the auto-rate controller's
	// average-push-rate value in packets/sec, per §4.I.
	AutoRateFloor   float64 `yaml:"auto_rate_floor"`
	AutoRateCeiling float64 `yaml:"auto_rate_ceiling"`
}

// JitterTarget and JitterMax unpack Config.Jitter, the -j target|max<<8
// encoding spec.md §6 names.
func (c Config) JitterTarget() int { return int(c.Jitter & 0xff) }
func (c Config) JitterMax() int    { return int((c.Jitter >> 8) & 0xff) }

func defaultConfig() Config {
	return Config{
		Mode:            ModeDynamicCall,
		Repeat:          1,
		Threads:         1,
		LogLevel:        int(eventlog.LevelInfo),
		AutoRateFloor:   20,
		AutoRateCeiling: 200,
	}
}

// LoadConfigFile reads a YAML config file into a Config, leaving fields
// absent from the file at their zero value so flag parsing can tell
// "not set" from "set to zero" when merging.
func LoadConfigFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("mediaengine: reading config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("mediaengine: parsing config %q: %w", path, err)
	}
	return cfg, nil
}

// flagSet is the CLI surface: short flags match spec.md §6 exactly,
// long forms are pflag's GNU-style spellings of the same options.
type flagSet struct {
	inputs   []string
	outputs  []string
	confPath string
	logFile  string
	rateMs   uint
	mode     uint32
	repeat   int
	jitter   uint32
	threads  int
}

func parseFlags(args []string) (flagSet, error) {
	fs := pflag.NewFlagSet("mediaengine", pflag.ContinueOnError)
	var f flagSet

	fs.StringSliceVarP(&f.inputs, "input", "i", nil, "input capture file(s) (pcap/pcapng)")
	fs.StringSliceVarP(&f.outputs, "output", "o", nil, "output capture/wav file(s)")
	fs.StringVarP(&f.confPath, "config", "C", "", "YAML config file")
	fs.StringVarP(&f.logFile, "log", "L", "", "event log file path")
	fs.UintVarP(&f.rateMs, "rate", "r", 0, "fixed push rate in milliseconds (0 = 20ms default)")
	fs.Uint32VarP(&f.mode, "mode", "d", 0, "mode bitfield (see Mode constants)")
	fs.IntVarP(&f.repeat, "repeat-count", "R", 0, "input repeat count")
	fs.Uint32VarP(&f.jitter, "jitter", "j", 0, "jitter target|max<<8")
	fs.IntVarP(&f.threads, "threads", "t", 0, "worker thread count")

	if err := fs.Parse(args); err != nil {
		return f, err
	}
	return f, nil
}

// mergeFlags overlays CLI flags on top of a config-file (or default)
// Config: a flag explicitly set on the command line wins, matching
// spec.md §6's implied override precedence (CLI > config file >
// built-in defaults).
func mergeFlags(base Config, f flagSet) Config {
	cfg := base
	if len(f.inputs) > 0 {
		cfg.Inputs = f.inputs
	}
	if len(f.outputs) > 0 {
		cfg.Outputs = f.outputs
	}
	if f.logFile != "" {
		cfg.LogFile = f.logFile
	}
	if f.rateMs > 0 {
		cfg.RateMs = f.rateMs
	}
	if f.mode != 0 {
		cfg.Mode = Mode(f.mode)
	}
	if f.repeat > 0 {
		cfg.Repeat = f.repeat
	}
	if f.jitter != 0 {
		cfg.Jitter = f.jitter
	}
	if f.threads > 0 {
		cfg.Threads = f.threads
	}
	return cfg
}

// schedulerPolicy maps the Mode bitfield onto an scheduler.AssignPolicy.
func (c Config) schedulerPolicy() scheduler.AssignPolicy {
	switch {
	case c.Mode.Has(ModeWholeGroupThreadAllocate):
		return scheduler.PolicyWholeGroupThread
	case c.Mode.Has(ModeRoundRobinSessionAllocation):
		return scheduler.PolicyRoundRobin
	default:
		return scheduler.PolicyLinear
	}
}

// rateTick returns the fixed push cadence, defaulting to 20ms (a
// typical ptime) when RateMs is unset.
func (c Config) rateTick() time.Duration {
	if c.RateMs > 0 {
		return time.Duration(c.RateMs) * time.Millisecond
	}
	return 20 * time.Millisecond
}
