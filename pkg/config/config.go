// Package config holds the configuration value object read by every
// pipeline operation.
//
// Configuration is loaded once per process and then passed explicitly into
// the generation client, the dispatcher and the engine. No component reads
// settings from ambient state.
//
// # Sources
//
// Later sources override earlier ones:
//
//  1. [Default] values
//  2. TOML file ($XDG_CONFIG_HOME/aidiagram/config.toml by default)
//  3. A .env file, loaded into the process environment (see [LoadEnvFile])
//  4. Environment variables (AIDIAGRAM_API_KEY, OPENAI_API_KEY, ...)
//
// CLI flags are applied by the caller on top of the loaded value.
//
// # Mode validation
//
// A stored mode that is not one of [Modes] does not fail loading: it is
// replaced with [DefaultMode] and reported through the logger.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	aerrors "github.com/matzehuels/aidiagram/pkg/errors"
)

const (
	// appName is used for the config directory and file names.
	appName = "aidiagram"

	// DefaultBaseURL is the OpenAI-compatible API root.
	DefaultBaseURL = "https://api.openai.com"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultEnginePath is resolved through PATH.
	DefaultEnginePath = "dot"

	// DefaultStylesheet is passed to the engine as the SVG stylesheet reference.
	DefaultStylesheet = "aidiagram.css"

	// DefaultBlockLanguage is the fenced code block info string that marks a diagram.
	DefaultBlockLanguage = "ai-diagram"

	// DefaultTimeout bounds one chat-completion request.
	DefaultTimeout = 60 * time.Second

	// DefaultEngineTimeout bounds one engine invocation.
	DefaultEngineTimeout = 30 * time.Second

	// DefaultConcurrency is the number of blocks of one document rendered at once.
	DefaultConcurrency = 4
)

// Engine kinds.
const (
	EngineExec     = "exec"
	EngineEmbedded = "embedded"
)

// Environment variable names.
const (
	EnvAPIKey       = "AIDIAGRAM_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvModel        = "AIDIAGRAM_MODEL"
	EnvMode         = "AIDIAGRAM_MODE"
	EnvFormat       = "AIDIAGRAM_FORMAT"
	EnvEnginePath   = "AIDIAGRAM_ENGINE_PATH"
	EnvBaseURL      = "AIDIAGRAM_BASE_URL"
)

// Config is the full set of settings consumed by the pipeline.
// The zero value is not usable; start from [Default] or [Load].
type Config struct {
	Mode          Mode     `toml:"mode"`
	Format        string   `toml:"format"`
	Engine        string   `toml:"engine"`
	EnginePath    string   `toml:"engine_path"`
	Stylesheet    string   `toml:"stylesheet"`
	APIKey        string   `toml:"api_key,omitempty"`
	Model         string   `toml:"model"`
	BaseURL       string   `toml:"base_url"`
	Timeout       Duration `toml:"timeout"`
	EngineTimeout Duration `toml:"engine_timeout"`
	BlockLanguage string   `toml:"block_language"`
	Concurrency   int      `toml:"concurrency"`
}

// Default returns a Config with every field set to its default.
// APIKey is left empty.
func Default() Config {
	return Config{
		Mode:          DefaultMode,
		Format:        DefaultFormat,
		Engine:        EngineExec,
		EnginePath:    DefaultEnginePath,
		Stylesheet:    DefaultStylesheet,
		Model:         DefaultModel,
		BaseURL:       DefaultBaseURL,
		Timeout:       Duration(DefaultTimeout),
		EngineTimeout: Duration(DefaultEngineTimeout),
		BlockLanguage: DefaultBlockLanguage,
		Concurrency:   DefaultConcurrency,
	}
}

// Path returns the default config file path using the XDG standard
// (~/.config/aidiagram/config.toml).
func Path() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads the TOML file at path on top of [Default] and then applies
// environment overrides. A missing file is not an error. A nil logger
// discards warnings.
func Load(path string, logger *log.Logger) (Config, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	cfg, err := decodeFile(path, logger)
	if err != nil {
		return Config{}, err
	}

	cfg.applyEnv(os.Getenv)
	cfg.normalizeMode(logger)
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads only the TOML file at path on top of [Default], without
// environment overrides. It is the value to modify and pass to [Save].
func LoadFile(path string, logger *log.Logger) (Config, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	cfg, err := decodeFile(path, logger)
	if err != nil {
		return Config{}, err
	}
	cfg.normalizeMode(logger)
	cfg.fillDefaults()
	return cfg, nil
}

func decodeFile(path string, logger *log.Logger) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug("no config file", "path", path)
	case err != nil:
		return Config{}, aerrors.Wrap(aerrors.ErrCodeConfiguration, err, "parse config %s", path)
	default:
		for _, key := range md.Undecoded() {
			logger.Warn("unknown config key", "key", key.String(), "path", path)
		}
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set are left untouched. A missing file is not an
// error, and an empty path loads nothing.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return aerrors.Wrap(aerrors.ErrCodeConfiguration, err, "load env file %s", path)
}

// Save writes cfg to path as TOML, creating parent directories.
// The API key is written only when set.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return aerrors.Wrap(aerrors.ErrCodeConfiguration, err, "create config dir")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return aerrors.Wrap(aerrors.ErrCodeConfiguration, err, "open config %s", path)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return aerrors.Wrap(aerrors.ErrCodeConfiguration, err, "write config %s", path)
	}
	return f.Close()
}

// applyEnv overrides fields from environment variables read through getenv.
// The mode is copied verbatim; normalizeMode validates it afterwards.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvOpenAIAPIKey); v != "" && c.APIKey == "" {
		c.APIKey = v
	}
	if v := getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := getenv(EnvModel); v != "" {
		c.Model = v
	}
	if v := getenv(EnvMode); v != "" {
		c.Mode = Mode(v)
	}
	if v := getenv(EnvFormat); v != "" {
		c.Format = v
	}
	if v := getenv(EnvEnginePath); v != "" {
		c.EnginePath = v
	}
	if v := getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
}

// normalizeMode replaces an invalid stored mode with DefaultMode.
func (c *Config) normalizeMode(logger *log.Logger) {
	if c.Mode == "" {
		c.Mode = DefaultMode
		return
	}
	m, err := ParseMode(string(c.Mode))
	if err != nil {
		logger.Warn("ignoring stored mode", "mode", string(c.Mode), "default", DefaultMode)
		c.Mode = DefaultMode
		return
	}
	c.Mode = m
}

// fillDefaults restores defaults for fields a config file blanked out.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Format == "" {
		c.Format = d.Format
	}
	if c.Engine == "" {
		c.Engine = d.Engine
	}
	if c.EnginePath == "" {
		c.EnginePath = d.EnginePath
	}
	if c.Stylesheet == "" {
		c.Stylesheet = d.Stylesheet
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.BlockLanguage == "" {
		c.BlockLanguage = d.BlockLanguage
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
}

// Validate checks the settings that cannot be defaulted.
// A missing API key is not a validation error: it is reported by the
// generation client before the first network call.
func (c Config) Validate() error {
	if !c.Mode.Valid() {
		return aerrors.New(aerrors.ErrCodeConfiguration, "invalid mode: %q", string(c.Mode))
	}
	if err := ValidateFormat(c.Format); err != nil {
		return aerrors.Wrap(aerrors.ErrCodeConfiguration, err, "invalid output format")
	}
	if c.Engine != EngineExec && c.Engine != EngineEmbedded {
		return aerrors.New(aerrors.ErrCodeConfiguration, "invalid engine: %q (must be one of: exec, embedded)", c.Engine)
	}
	if c.Engine == EngineExec {
		if err := aerrors.ValidateExecutable(c.EnginePath); err != nil {
			return err
		}
	}
	if err := aerrors.ValidateURL(c.BaseURL); err != nil {
		return err
	}
	if err := aerrors.ValidateModelID(c.Model); err != nil {
		return err
	}
	if c.Timeout < 0 || c.EngineTimeout < 0 {
		return aerrors.New(aerrors.ErrCodeConfiguration, "timeouts cannot be negative")
	}
	return nil
}

// Duration is a time.Duration stored as a Go duration string ("45s") in TOML.
type Duration time.Duration

// UnmarshalText parses a duration string. A bare integer is read as seconds.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)
	if n, err := strconv.Atoi(s); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }
