// Package config loads the orchestrator settings from defaults, an optional
// .hookup.yml, the environment and command-line flags.
package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/afero"
)

const (
	// FileName is the optional per-repository config file.
	FileName = ".hookup.yml"

	// DefaultSchemaDir is used when no schema dir is configured or the
	// configured one does not exist.
	DefaultSchemaDir = "db"

	envPrefix = "HOOKUP_"

	maxConfigFileSize = 64 * 1024
)

// Config is the process-wide configuration snapshot. It is built once per
// invocation and only read afterward.
type Config struct {
	WorkingDir         string `koanf:"working_dir"`
	SchemaDir          string `koanf:"schema_dir"`
	LoadSchemaFallback string `koanf:"load_schema"`
	Skip               bool   `koanf:"skip"`
	ReflogAction       string `koanf:"reflog_action"`
	Debug              bool   `koanf:"debug"`
}

// Overrides holds values given on the command line. Empty fields are unset.
type Overrides struct {
	WorkingDir         string
	SchemaDir          string
	LoadSchemaFallback string
	Debug              bool
}

// Load builds a Config. fs is used for the config file and directory checks.
func Load(fs afero.Fs, flags Overrides) (Config, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		"working_dir": ".",
		"schema_dir":  DefaultSchemaDir,
	}
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return Config{}, fmt.Errorf("setting default %s: %w", key, err)
		}
	}

	// Empty variables count as unset so they cannot mask the config file.
	envLoader := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		if value == "" {
			return "", nil
		}
		return strings.ToLower(strings.TrimPrefix(key, envPrefix)), value
	})
	gitLoader := env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		if value == "" {
			return "", nil
		}
		return mapGlobalEnv(key), value
	})

	// The working dir decides where the config file lives, so resolve it
	// from flags and environment before reading the file.
	probe := koanf.New(".")
	if err := probe.Load(envLoader, nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	workingDir := firstNonEmpty(flags.WorkingDir, probe.String("working_dir"), ".")

	if err := loadFile(k, fs, filepath.Join(workingDir, FileName)); err != nil {
		return Config{}, err
	}

	if err := k.Load(envLoader, nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := k.Load(gitLoader, nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	flagValues := map[string]string{
		"working_dir": flags.WorkingDir,
		"schema_dir":  flags.SchemaDir,
		"load_schema": flags.LoadSchemaFallback,
	}
	for key, val := range flagValues {
		if val == "" {
			continue
		}
		if err := k.Set(key, val); err != nil {
			return Config{}, fmt.Errorf("setting flag %s: %w", key, err)
		}
	}
	if flags.Debug {
		if err := k.Set("debug", true); err != nil {
			return Config{}, fmt.Errorf("setting flag debug: %w", err)
		}
	}

	cfg := Config{
		WorkingDir:         k.String("working_dir"),
		SchemaDir:          k.String("schema_dir"),
		LoadSchemaFallback: k.String("load_schema"),
		Skip:               k.Bool("skip") || strictBool(k.String("skip_env")) || k.String("skip_hookup") != "",
		ReflogAction:       k.String("reflog_action"),
		Debug:              strictBool(k.String("debug")),
	}
	if cfg.WorkingDir == "" {
		cfg.WorkingDir = "."
	}

	if cfg.SchemaDir == "" {
		cfg.SchemaDir = DefaultSchemaDir
	} else if ok, _ := afero.DirExists(fs, filepath.Join(cfg.WorkingDir, cfg.SchemaDir)); !ok {
		cfg.SchemaDir = DefaultSchemaDir
	}

	return cfg, nil
}

// mapGlobalEnv maps the unprefixed variables hookup honours onto config keys.
// Everything else is ignored.
func mapGlobalEnv(s string) string {
	switch s {
	case "SKIP":
		return "skip_env"
	case "SKIP_HOOKUP":
		return "skip_hookup"
	case "GIT_REFLOG_ACTION":
		return "reflog_action"
	}
	return ""
}

func loadFile(k *koanf.Koanf, fs afero.Fs, path string) error {
	info, err := fs.Stat(path)
	if err != nil {
		return nil
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return nil
}

// strictBool is true only for values strconv.ParseBool accepts as true.
// SKIP is shared with other hook managers that put hook names in it.
func strictBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
