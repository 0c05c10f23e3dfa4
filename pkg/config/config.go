// Feox uses flags and a single optional TOML config file for configuration. Flags take precedence over the
// environment, which in turn takes precedence over the config file (§6 of the spec: CLI > env > file).
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/mehrantsi/feox/pkg/utils"
)

const requirePassEnvVar = "FEOX_AUTH_PASSWORD"

var (
	portFlag        = flag.Uint("port", 6379, "TCP port to listen on for the Redis wire protocol.")
	bindFlag        = flag.String("bind", "127.0.0.1", "IP address to bind the listener to.")
	threadsFlag     = flag.Int("threads", runtime.NumCPU(), "Number of worker goroutines handling connections.")
	dataPathFlag    = flag.String("data_path", "", "Directory for persistent data files. Accepted but not used: the keyspace is always memory-only.")
	logLevelFlag    = flag.String("log_level", string(utils.LogLevelInfo), "Log level: trace/debug/info/warn/error.")
	logHandlerFlag  = flag.String("log_handler_type", string(utils.HandlerTypeJSON), "Log handler type: json/text.")
	requirePassFlag = flag.String("requirepass", "", "Password required from clients via AUTH before any other command.")
	configFileFlag  = flag.String("config_file", "", "Optional path to a TOML config file.")
)

// Config is the resolved, immutable configuration value object handed to the core server.
// It is the only thing the core (pkg/server, pkg/dispatch, pkg/keyspace, ...) knows about bootstrap:
// everything about how it was assembled (flags, env, file) stays inside this package.
type Config struct {
	Port        uint16
	Bind        string
	Threads     int
	DataPath    string
	LogLevel    utils.LogLevel
	LogHandler  utils.LogHandlerType
	RequirePass string
}

// fileOverlay is the shape of the optional TOML config file. Only `requirepass` is named by §6, but the rest of
// the CLI surface is accepted too so an operator can keep a single file for everything.
type fileOverlay struct {
	RequirePass *string `toml:"requirepass"`
	Port        *uint16 `toml:"port"`
	Bind        *string `toml:"bind"`
	Threads     *int    `toml:"threads"`
	DataPath    *string `toml:"data_path"`
	LogLevel    *string `toml:"log_level"`
}

// loadFileOverlay reads and parses the TOML file at path. A missing path (empty or non-existent file) is not an
// error: the file is optional.
func loadFileOverlay(path string) (fileOverlay, error) {
	var overlay fileOverlay
	if path == "" {
		return overlay, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return overlay, nil
	}
	if _, err := toml.DecodeFile(path, &overlay); err != nil {
		return overlay, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	return overlay, nil
}

// Load parses flags (if not already parsed), applies the env-then-file overlay for any value not set explicitly
// on the command line, and returns the resolved Config. Must be called once, after flag definitions are settled
// and before flags are read anywhere else.
func Load() (Config, error) {
	if !flag.Parsed() {
		flag.Parse()
	}

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	overlay, err := loadFileOverlay(*configFileFlag)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:       uint16(*portFlag),
		Bind:       *bindFlag,
		Threads:    *threadsFlag,
		DataPath:   *dataPathFlag,
		LogLevel:   utils.LogLevel(*logLevelFlag),
		LogHandler: utils.LogHandlerType(*logHandlerFlag),
	}

	if !explicit["port"] && overlay.Port != nil {
		cfg.Port = *overlay.Port
	}
	if !explicit["bind"] && overlay.Bind != nil {
		cfg.Bind = *overlay.Bind
	}
	if !explicit["threads"] && overlay.Threads != nil {
		cfg.Threads = *overlay.Threads
	}
	if !explicit["data_path"] && overlay.DataPath != nil {
		cfg.DataPath = *overlay.DataPath
	}
	if !explicit["log_level"] && overlay.LogLevel != nil {
		cfg.LogLevel = utils.LogLevel(*overlay.LogLevel)
	}

	cfg.RequirePass = resolveRequirePass(explicit["requirepass"], *requirePassFlag,
		os.Getenv(requirePassEnvVar), overlay.RequirePass)

	if cfg.Threads <= 0 {
		cfg.Threads = 1
	}

	return cfg, nil
}

// resolveRequirePass implements the CLI > env > file precedence from §6 as a pure function so the precedence
// logic itself can be unit tested without touching the global flag.CommandLine state.
func resolveRequirePass(explicitCLI bool, cliVal, envVal string, fileVal *string) string {
	switch {
	case explicitCLI:
		return cliVal
	case envVal != "":
		return envVal
	case fileVal != nil:
		return *fileVal
	default:
		return cliVal // Empty default.
	}
}
