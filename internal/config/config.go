// Package config provides functionality for managing configuration options
// for the client using command-line flags, environment variables and an
// optional JSON or TOML config file.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Options holds the configuration values for the client.
type Options struct {
	// BaseURL is the product API root, e.g. http://localhost:8080.
	BaseURL string

	// Timeout bounds every request to the API.
	Timeout time.Duration

	// CAFile, CertFile and KeyFile configure TLS towards an HTTPS API.
	CAFile   string
	CertFile string
	KeyFile  string

	// LogLevel is a zap level name.
	LogLevel string

	// LogFile, when set, receives the log instead of stderr.
	LogFile string

	// Config is the path to the config file.
	Config string

	// ShowVersion requests build metadata instead of running the shell.
	ShowVersion bool
}

// fileOptions mirrors Options as it appears in a config file.
type fileOptions struct {
	BaseURL  string `json:"base_url" toml:"base_url"`
	Timeout  string `json:"timeout" toml:"timeout"`
	CAFile   string `json:"ca_file" toml:"ca_file"`
	CertFile string `json:"cert_file" toml:"cert_file"`
	KeyFile  string `json:"key_file" toml:"key_file"`
	LogLevel string `json:"log_level" toml:"log_level"`
	LogFile  string `json:"log_file" toml:"log_file"`
}

// Defaults returns the options used when nothing else is configured.
func Defaults() Options {
	return Options{
		BaseURL:  "http://localhost:8080",
		Timeout:  10 * time.Second,
		LogLevel: "info",
		Config:   "config.json",
	}
}

// Parse reads the process flags and environment. It exits on a flag error
// the way the flag package does.
func Parse() (*Options, error) {
	return ParseArgs(flag.CommandLine, os.Args[1:], os.Getenv)
}

// ParseArgs registers the client flags on fs, parses args and merges the
// result with getenv and the config file. Precedence, lowest first:
// defaults, config file, environment, flags given on the command line.
func ParseArgs(fs *flag.FlagSet, args []string, getenv func(string) string) (*Options, error) {
	def := Defaults()
	cli := def

	fs.StringVar(&cli.BaseURL, "url", def.BaseURL, "API base URL")
	fs.DurationVar(&cli.Timeout, "timeout", def.Timeout, "per-request timeout")
	fs.StringVar(&cli.CAFile, "ca", "", "path to an extra CA cert (PEM)")
	fs.StringVar(&cli.CertFile, "cert", "", "path to client cert (PEM)")
	fs.StringVar(&cli.KeyFile, "key", "", "path to client key (PEM)")
	fs.StringVar(&cli.LogLevel, "log-level", def.LogLevel, "log level: debug | info | warn | error")
	fs.StringVar(&cli.LogFile, "log-file", "", "write logs to this file instead of stderr")
	fs.StringVar(&cli.Config, "config", def.Config, "path to config file")
	fs.StringVar(&cli.Config, "c", def.Config, "path to config file (shorthand)")
	fs.BoolVar(&cli.ShowVersion, "version", false, "show build version and date")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	opts := def
	opts.ShowVersion = cli.ShowVersion

	// Resolve the config path first: it decides which file is merged.
	opts.Config = def.Config
	if p := getenv("CONFIG"); p != "" {
		opts.Config = p
	}
	if set["config"] || set["c"] {
		opts.Config = cli.Config
	}

	if err := loadFile(&opts, opts.Config); err != nil {
		return nil, err
	}

	if err := applyEnv(&opts, getenv); err != nil {
		return nil, err
	}

	if set["url"] {
		opts.BaseURL = cli.BaseURL
	}
	if set["timeout"] {
		opts.Timeout = cli.Timeout
	}
	if set["ca"] {
		opts.CAFile = cli.CAFile
	}
	if set["cert"] {
		opts.CertFile = cli.CertFile
	}
	if set["key"] {
		opts.KeyFile = cli.KeyFile
	}
	if set["log-level"] {
		opts.LogLevel = cli.LogLevel
	}
	if set["log-file"] {
		opts.LogFile = cli.LogFile
	}

	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", opts.Timeout)
	}
	return &opts, nil
}

// loadFile merges the file at path into opts. A missing file is not an error.
func loadFile(opts *Options, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error while reading config file: %w", err)
	}

	var fo fileOptions
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &fo); err != nil {
			return fmt.Errorf("error while parsing config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &fo); err != nil {
			return fmt.Errorf("error while parsing config file: %w", err)
		}
	}

	if fo.BaseURL != "" {
		opts.BaseURL = fo.BaseURL
	}
	if fo.Timeout != "" {
		d, err := time.ParseDuration(fo.Timeout)
		if err != nil {
			return fmt.Errorf("config file timeout: %w", err)
		}
		opts.Timeout = d
	}
	if fo.CAFile != "" {
		opts.CAFile = fo.CAFile
	}
	if fo.CertFile != "" {
		opts.CertFile = fo.CertFile
	}
	if fo.KeyFile != "" {
		opts.KeyFile = fo.KeyFile
	}
	if fo.LogLevel != "" {
		opts.LogLevel = fo.LogLevel
	}
	if fo.LogFile != "" {
		opts.LogFile = fo.LogFile
	}
	return nil
}

func applyEnv(opts *Options, getenv func(string) string) error {
	if v := getenv("API_BASE_URL"); v != "" {
		opts.BaseURL = v
	}
	if v := getenv("API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("API_TIMEOUT: %w", err)
		}
		opts.Timeout = d
	}
	if v := getenv("API_CA_FILE"); v != "" {
		opts.CAFile = v
	}
	if v := getenv("API_CERT_FILE"); v != "" {
		opts.CertFile = v
	}
	if v := getenv("API_KEY_FILE"); v != "" {
		opts.KeyFile = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		opts.LogLevel = v
	}
	if v := getenv("LOG_FILE"); v != "" {
		opts.LogFile = v
	}
	return nil
}
