package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cuemby/fleetprobe/pkg/fleet"
	"github.com/cuemby/fleetprobe/pkg/log"
	"github.com/cuemby/fleetprobe/pkg/reconciler"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// DefaultEndpoint is the docker0 bridge address fleet listens on in CoreOS
const DefaultEndpoint = "http://172.17.42.1:4001"

// Config is the fully resolved probe configuration. It is built once at
// startup and never read from the environment afterwards.
type Config struct {
	Endpoint  string `yaml:"endpoint"`
	Blacklist string `yaml:"blacklist"`

	Source   fleet.Kind    `yaml:"source"`
	Fleetctl string        `yaml:"fleetctl"`
	Timeout  time.Duration `yaml:"timeout"`

	Strict       bool `yaml:"strict"`
	IgnoreGlobal bool `yaml:"ignore_global"`

	WarningThreshold  int `yaml:"warning_threshold"`
	CriticalThreshold int `yaml:"critical_threshold"`

	MetricsFile string `yaml:"metrics_file"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Endpoint:          DefaultEndpoint,
		Source:            fleet.KindExec,
		Fleetctl:          "fleetctl",
		Timeout:           fleet.DefaultTimeout,
		WarningThreshold:  reconciler.DefaultClusterSizeWarningThreshold,
		CriticalThreshold: reconciler.DefaultClusterSizeCriticalThreshold,
		LogLevel:          string(log.WarnLevel),
	}
}

// Flag names
const (
	FlagEndpoint          = "etcd_ip"
	FlagBlacklist         = "blacklist"
	FlagSource            = "source"
	FlagFleetctl          = "fleetctl"
	FlagTimeout           = "timeout"
	FlagStrict            = "strict"
	FlagIgnoreGlobal      = "ignore-global"
	FlagWarningThreshold  = "warning-threshold"
	FlagCriticalThreshold = "critical-threshold"
	FlagMetricsFile       = "metrics-file"
	FlagLogLevel          = "log-level"
	FlagLogJSON           = "log-json"
	FlagConfigFile        = "config"
	FlagEnvFile           = "env-file"
)

// BindFlags registers the flags shared by every check. Defaults shown in
// help are the built-in ones; environment and config file values are applied
// by Resolve.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.StringP(FlagEndpoint, "e", d.Endpoint, "fleet endpoint (env ETCD_IP)")
	fs.StringP(FlagBlacklist, "b", "", "regular expression of unit names to ignore, empty ignores nothing (env BLACKLIST_PATTERN)")
	fs.String(FlagSource, string(d.Source), "how to reach fleet: exec (fleetctl) or http (fleet API) (env FLEET_SOURCE)")
	fs.String(FlagFleetctl, d.Fleetctl, "fleetctl binary used by the exec source (env FLEETCTL_PATH)")
	fs.Duration(FlagTimeout, d.Timeout, "timeout for each fleet query (env FLEET_CHECK_TIMEOUT)")
	fs.String(FlagMetricsFile, "", "write Prometheus metrics to this textfile (env METRICS_FILE)")
	fs.String(FlagLogLevel, d.LogLevel, "log level: debug, info, warn, error (env LOG_LEVEL)")
	fs.Bool(FlagLogJSON, false, "write logs as JSON (env LOG_JSON)")
	fs.String(FlagConfigFile, "", "YAML configuration file (env FLEETPROBE_CONFIG)")
	fs.String(FlagEnvFile, "", "dotenv file consulted after the process environment")
}

// BindUnitsFlags registers the units check flags
func BindUnitsFlags(fs *pflag.FlagSet) {
	fs.Bool(FlagStrict, false, "also treat dead units as failed (env FLEET_CHECK_STRICT)")
	fs.Bool(FlagIgnoreGlobal, false, "skip global units when looking for drift, http source only (env FLEET_IGNORE_GLOBAL)")
}

// BindClusterSizeFlags registers the cluster size check flags
func BindClusterSizeFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.Int(FlagWarningThreshold, d.WarningThreshold, "warn at this many machines or fewer (env FLEET_CLUSTER_SIZE_WARNING_THRESHOLD)")
	fs.Int(FlagCriticalThreshold, d.CriticalThreshold, "go critical at this many machines or fewer (env FLEET_CLUSTER_SIZE_ERROR_THRESHOLD)")
}

// LookupFunc reads one environment variable
type LookupFunc func(key string) (string, bool)

// Resolve builds the configuration from, in decreasing priority: flags set on
// the command line, the environment, the dotenv file, the YAML config file
// and the built-in defaults.
func Resolve(fs *pflag.FlagSet, lookup LookupFunc) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if path := flagString(fs, FlagEnvFile); path != "" {
		dotenv, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
		}
		lookup = withFallback(lookup, dotenv)
	}

	cfg := Default()

	path := flagString(fs, FlagConfigFile)
	if path == "" {
		path, _ = nonEmpty(lookup, "FLEETPROBE_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.applyFlags(fs); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the resolved configuration
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("fleet endpoint must not be empty")
	}
	if c.Source != fleet.KindExec && c.Source != fleet.KindHTTP {
		return fmt.Errorf("unknown source %q (want %q or %q)", c.Source, fleet.KindExec, fleet.KindHTTP)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// SourceOptions returns the data source settings
func (c *Config) SourceOptions() fleet.Options {
	return fleet.Options{
		Kind:     c.Source,
		Endpoint: c.Endpoint,
		Fleetctl: c.Fleetctl,
		Timeout:  c.Timeout,
	}
}

// UnitsOptions returns the units check settings
func (c *Config) UnitsOptions() reconciler.Options {
	opts := reconciler.Options{
		FailureStates: reconciler.DefaultFailureStates,
		IgnoreGlobal:  c.IgnoreGlobal,
	}
	if c.Strict {
		opts.FailureStates = reconciler.StrictFailureStates
	}
	return opts
}

// Thresholds returns the cluster size check thresholds
func (c *Config) Thresholds() reconciler.Thresholds {
	return reconciler.Thresholds{
		Warning:  c.WarningThreshold,
		Critical: c.CriticalThreshold,
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	if v, ok := nonEmpty(lookup, "ETCD_IP", "FLEET_URL"); ok {
		c.Endpoint = v
	}
	if v, ok := nonEmpty(lookup, "BLACKLIST_PATTERN", "BLACKLIST_REGEXP"); ok {
		c.Blacklist = v
	}
	if v, ok := nonEmpty(lookup, "FLEET_SOURCE"); ok {
		c.Source = fleet.Kind(v)
	}
	if v, ok := nonEmpty(lookup, "FLEETCTL_PATH"); ok {
		c.Fleetctl = v
	}
	if v, ok := nonEmpty(lookup, "METRICS_FILE"); ok {
		c.MetricsFile = v
	}
	if v, ok := nonEmpty(lookup, "LOG_LEVEL"); ok {
		c.LogLevel = v
	}

	var err error
	if v, ok := nonEmpty(lookup, "FLEET_CHECK_TIMEOUT"); ok {
		if c.Timeout, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid FLEET_CHECK_TIMEOUT %q: %w", v, err)
		}
	}
	if v, ok := nonEmpty(lookup, "FLEET_CHECK_STRICT"); ok {
		if c.Strict, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("invalid FLEET_CHECK_STRICT %q: %w", v, err)
		}
	}
	if v, ok := nonEmpty(lookup, "FLEET_IGNORE_GLOBAL"); ok {
		if c.IgnoreGlobal, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("invalid FLEET_IGNORE_GLOBAL %q: %w", v, err)
		}
	}
	if v, ok := nonEmpty(lookup, "LOG_JSON"); ok {
		if c.LogJSON, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("invalid LOG_JSON %q: %w", v, err)
		}
	}
	if v, ok := nonEmpty(lookup, "FLEET_CLUSTER_SIZE_WARNING_THRESHOLD"); ok {
		if c.WarningThreshold, err = parseThreshold(v); err != nil {
			return fmt.Errorf("invalid FLEET_CLUSTER_SIZE_WARNING_THRESHOLD %q: %w", v, err)
		}
	}
	if v, ok := nonEmpty(lookup, "FLEET_CLUSTER_SIZE_ERROR_THRESHOLD"); ok {
		if c.CriticalThreshold, err = parseThreshold(v); err != nil {
			return fmt.Errorf("invalid FLEET_CLUSTER_SIZE_ERROR_THRESHOLD %q: %w", v, err)
		}
	}
	return nil
}

func (c *Config) applyFlags(fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}

	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case FlagEndpoint:
			c.Endpoint, err = fs.GetString(f.Name)
		case FlagBlacklist:
			c.Blacklist, err = fs.GetString(f.Name)
		case FlagSource:
			var s string
			s, err = fs.GetString(f.Name)
			c.Source = fleet.Kind(s)
		case FlagFleetctl:
			c.Fleetctl, err = fs.GetString(f.Name)
		case FlagTimeout:
			c.Timeout, err = fs.GetDuration(f.Name)
		case FlagStrict:
			c.Strict, err = fs.GetBool(f.Name)
		case FlagIgnoreGlobal:
			c.IgnoreGlobal, err = fs.GetBool(f.Name)
		case FlagWarningThreshold:
			c.WarningThreshold, err = fs.GetInt(f.Name)
		case FlagCriticalThreshold:
			c.CriticalThreshold, err = fs.GetInt(f.Name)
		case FlagMetricsFile:
			c.MetricsFile, err = fs.GetString(f.Name)
		case FlagLogLevel:
			c.LogLevel, err = fs.GetString(f.Name)
		case FlagLogJSON:
			c.LogJSON, err = fs.GetBool(f.Name)
		}
	})
	return err
}

// flagString returns a string flag's value, or "" when fs does not define it
func flagString(fs *pflag.FlagSet, name string) string {
	if fs == nil || fs.Lookup(name) == nil {
		return ""
	}
	v, _ := fs.GetString(name)
	return v
}

// nonEmpty returns the first of keys set to a non-empty value
func nonEmpty(lookup LookupFunc, keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := lookup(key); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// withFallback consults fallback when primary has no non-empty value for key
func withFallback(primary LookupFunc, fallback map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		if v, ok := primary(key); ok && v != "" {
			return v, true
		}
		v, ok := fallback[key]
		return v, ok
	}
}

// parseThreshold accepts "6" as well as "6.0"
func parseThreshold(v string) (int, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
