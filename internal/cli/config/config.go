// Package config merges configuration from defaults, an optional YAML file,
// named profiles, environment variables and command line flags, in that
// order of precedence, and validates the result into scanner.Options.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/stackvity/astro-tally/pkg/scanner"
)

const (
	// DefaultConfigName is the config file base name searched in the
	// working directory and under the user's config directories.
	DefaultConfigName = "astro-tally"
	// EnvPrefix namespaces environment variables, e.g. ASTROTALLY_BORTLE.
	EnvPrefix = "ASTROTALLY"
)

// flagKeys lists every flag bound into viper. Names must match the flags
// registered in cmd/astro-tally.
var flagKeys = []string{
	"log", "output", "bortle", "verbose", "no-tui", "concurrency",
	"header-window", "header-encoding", "cache", "clear-cache",
	"output-format",
}

// LoadAndValidate builds scanner.Options from all configuration sources and
// returns it together with the final logger.
func LoadAndValidate(cfgFile, profileName, appVersion string, flags *pflag.FlagSet) (scanner.Options, *slog.Logger, error) {
	var opts scanner.Options
	v := viper.New()

	// Basic logger for problems before verbosity is known.
	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			tempLogger.Error("Failed to get user home directory", slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
		v.AddConfigPath(filepath.Join(home, "."+DefaultConfigName))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			tempLogger.Debug("No configuration file found, using defaults/env/flags")
		} else {
			used := cfgFile
			if used == "" {
				used = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			tempLogger.Error("Error reading configuration file", slog.String("path", used), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error reading config file '%s': %w", used, err)
		}
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
	}

	// Profiles let one config file carry multiple setups, e.g. per rig.
	opts.ProfileName = profileName
	if profileName != "" {
		profileKey := "profiles." + profileName
		if !v.IsSet(profileKey) {
			used := v.ConfigFileUsed()
			if used == "" {
				used = "(no config file found)"
			}
			err := fmt.Errorf("profile '%s' not found in config file '%s'", profileName, used)
			tempLogger.Error(err.Error())
			return opts, tempLogger, err
		}
		profile := v.Sub(profileKey)
		if profile == nil {
			return opts, tempLogger, fmt.Errorf("failed to load profile '%s' from '%s'", profileName, v.ConfigFileUsed())
		}
		if err := v.MergeConfigMap(profile.AllSettings()); err != nil {
			return opts, tempLogger, fmt.Errorf("error merging profile '%s': %w", profileName, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, key := range flagKeys {
		flag := flags.Lookup(key)
		if flag == nil {
			tempLogger.Debug("Flag lookup failed during binding", slog.String("flag", key))
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return opts, tempLogger, fmt.Errorf("error binding flag '--%s': %w", key, err)
		}
	}

	// Map flag spellings to the option keys they populate.
	v.RegisterAlias("logPath", "log")
	v.RegisterAlias("outputPath", "output")
	v.RegisterAlias("headerWindowBytes", "header-window")
	v.RegisterAlias("headerEncoding", "header-encoding")
	v.RegisterAlias("outputFormat", "output-format")
	v.RegisterAlias("clearCache", "clear-cache")

	opts.AppVersion = appVersion

	if err := v.Unmarshal(&opts); err != nil {
		tempLogger.Error("Error unmarshalling configuration", slog.Any("error", err))
		return opts, tempLogger, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Explicit flags always win, including over profile and env values.
	if flags.Changed("log") {
		if val, _ := flags.GetString("log"); val != "" {
			opts.LogPath = val
		}
	}
	if flags.Changed("output") {
		if val, _ := flags.GetString("output"); val != "" {
			opts.OutputPath = val
		}
	}
	if flags.Changed("verbose") {
		opts.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("no-tui") {
		if noTui, _ := flags.GetBool("no-tui"); noTui {
			opts.TuiEnabled = false
		}
	}
	if flags.Changed("cache") {
		opts.CacheEnabled, _ = flags.GetBool("cache")
	}
	if flags.Changed("clear-cache") {
		opts.ClearCache, _ = flags.GetBool("clear-cache")
	}
	// Hyphenated flag names do not survive Unmarshal via aliases reliably,
	// so apply them directly.
	if flags.Changed("header-window") {
		opts.HeaderWindowBytes, _ = flags.GetInt("header-window")
	}
	if flags.Changed("header-encoding") {
		opts.HeaderEncoding, _ = flags.GetString("header-encoding")
	}
	if flags.Changed("output-format") {
		val, _ := flags.GetString("output-format")
		opts.OutputFormat = scanner.OutputFormat(val)
	}

	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logHandler)
	opts.Logger = logHandler

	if err := validateAndDerive(&opts, logger); err != nil {
		return opts, logger, err
	}

	logger.Debug("Configuration loaded",
		slog.String("configFile", opts.ConfigFilePath),
		slog.String("profile", opts.ProfileName),
		slog.String("log", opts.LogPath),
		slog.String("output", opts.OutputPath),
		slog.Bool("cache", opts.CacheEnabled))

	return opts, logger, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logPath", "")
	v.SetDefault("outputPath", "")
	v.SetDefault("bortle", scanner.DefaultBortle)
	v.SetDefault("concurrency", scanner.DefaultConcurrency)
	v.SetDefault("headerWindowBytes", scanner.DefaultHeaderWindowBytes)
	v.SetDefault("headerEncoding", "")
	v.SetDefault("filterOverrides", map[string]int{})
	v.SetDefault("outputFormat", string(scanner.OutputFormatText))
	v.SetDefault("cache", false)
	v.SetDefault("clearCache", false)
	v.SetDefault("tuiEnabled", true)
	v.SetDefault("verbose", false)
}

// validateAndDerive checks ranges and fills in the path derivations: the
// output CSV and the cache file default to the session log's directory.
func validateAndDerive(opts *scanner.Options, logger *slog.Logger) error {
	if opts.LogPath == "" {
		err := fmt.Errorf("%w: session log path is required (use --log)", scanner.ErrConfigValidation)
		logger.Error(err.Error())
		return err
	}
	absLog, err := filepath.Abs(opts.LogPath)
	if err != nil {
		return fmt.Errorf("%w: cannot resolve log path '%s': %w", scanner.ErrConfigValidation, opts.LogPath, err)
	}
	opts.LogPath = absLog

	if opts.OutputPath == "" {
		opts.OutputPath = filepath.Join(filepath.Dir(absLog), scanner.DefaultOutputFileName)
	} else if opts.OutputPath, err = filepath.Abs(opts.OutputPath); err != nil {
		return fmt.Errorf("%w: cannot resolve output path: %w", scanner.ErrConfigValidation, err)
	}

	if opts.Bortle < 1 || opts.Bortle > 9 {
		err := fmt.Errorf("%w: bortle must be between 1 and 9, got %d", scanner.ErrConfigValidation, opts.Bortle)
		logger.Error(err.Error())
		return err
	}
	if opts.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency cannot be negative", scanner.ErrConfigValidation)
	}
	if opts.HeaderWindowBytes < 0 {
		return fmt.Errorf("%w: header window cannot be negative", scanner.ErrConfigValidation)
	}
	if opts.OutputFormat == "" {
		opts.OutputFormat = scanner.OutputFormatText
	}
	if !opts.OutputFormat.IsValid() {
		err := fmt.Errorf("%w: invalid output format '%s' (valid: text, json)", scanner.ErrConfigValidation, opts.OutputFormat)
		logger.Error(err.Error())
		return err
	}
	for token, id := range opts.FilterOverrides {
		if strings.TrimSpace(token) == "" {
			return fmt.Errorf("%w: filter override with empty name", scanner.ErrConfigValidation)
		}
		if id <= 0 {
			return fmt.Errorf("%w: filter override '%s' must map to a positive id, got %d", scanner.ErrConfigValidation, token, id)
		}
	}

	if opts.CacheEnabled && opts.CacheFilePath == "" {
		opts.CacheFilePath = filepath.Join(filepath.Dir(absLog), scanner.DefaultCacheFileName)
	}
	return nil
}
