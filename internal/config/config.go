// Package config loads hull settings from a YAML file and HULL_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/phobologic/classhull/internal/classpath"
	"github.com/phobologic/classhull/internal/exclude"
	"github.com/phobologic/classhull/internal/logging"
)

// FileName is the config file looked up in the working directory.
const FileName = ".hull.yaml"

// EnvPrefix prefixes environment overrides, e.g. HULL_LOG_LEVEL.
const EnvPrefix = "HULL"

// Output formats.
const (
	FormatTOON  = "toon"
	FormatList  = "list"
	FormatNames = "names"
)

// Config holds everything a hull run needs besides the start class.
type Config struct {
	// Classpath entries: directories, .jar and .zip files.
	Classpath []string `mapstructure:"classpath" yaml:"classpath"`
	// Exclude replaces the default exclusion patterns as a whole.
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
	// ExcludePaths are gitignore-style globs over internal class paths.
	ExcludePaths []string      `mapstructure:"exclude_paths" yaml:"exclude_paths,omitempty"`
	CacheSize    int           `mapstructure:"cache_size" yaml:"cache_size"`
	LogLevel     string        `mapstructure:"log_level" yaml:"log_level"`
	Format       string        `mapstructure:"format" yaml:"format"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Classpath: []string{"."},
		Exclude:   exclude.DefaultPatterns(),
		CacheSize: classpath.DefaultCacheSize,
		LogLevel:  "warn",
		Format:    FormatTOON,
	}
}

// Load reads configuration. An empty path looks for FileName in dir and
// falls back to defaults when it is absent; an explicit path must exist.
func Load(path, dir string) (*Config, error) {
	def := Default()

	v := viper.New()
	v.SetDefault("classpath", def.Classpath)
	v.SetDefault("exclude", def.Exclude)
	v.SetDefault("exclude_paths", []string{})
	v.SetDefault("cache_size", def.CacheSize)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("format", def.Format)
	v.SetDefault("timeout", time.Duration(0))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// A string classpath (HULL_CLASSPATH) splits like the --classpath flag,
	// on the OS list separator rather than viper's commas.
	if s, ok := v.Get("classpath").(string); ok {
		v.Set("classpath", classpath.SplitList(s))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Error reports an invalid configuration value.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// Validate checks field values. Exclusion patterns are checked by compiling them.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatTOON, FormatList, FormatNames:
	default:
		return &Error{Field: "format", Message: fmt.Sprintf("unknown format %q", c.Format)}
	}
	if c.CacheSize < 0 {
		return &Error{Field: "cache_size", Message: "must not be negative"}
	}
	if c.Timeout < 0 {
		return &Error{Field: "timeout", Message: "must not be negative"}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return &Error{Field: "log_level", Message: err.Error()}
	}
	if _, err := c.Filter(nil); err != nil {
		return &Error{Field: "exclude", Message: err.Error()}
	}
	return nil
}

// Filter compiles the exclusion settings.
func (c *Config) Filter(logger *slog.Logger) (*exclude.Filter, error) {
	opts := []exclude.Option{exclude.WithPathGlobs(c.ExcludePaths)}
	if logger != nil {
		opts = append(opts, exclude.WithLogger(logger))
	}
	return exclude.New(c.Exclude, opts...)
}
