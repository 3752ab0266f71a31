package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

const (
	DefaultHardwareType   = "c220g5"
	DefaultDiskImage      = "urn:publicid:IDN+emulab.net+image+emulab-ops:UBUNTU22-64-STD"
	DefaultRepositoryURL  = "https://github.com/thms122/TMMA.git"
	DefaultRepositoryPath = "/local/repository"
	DefaultEntryScript    = "colloid_startup.sh"
)

// shellUnsafe are characters that would change the meaning of the rendered boot commands.
const shellUnsafe = " \t\n;&|`$<>\"'\\(){}*?!#"

type Config struct {
	HardwareType         string
	DiskImage            string
	RepositoryURL        string
	RepositoryPath       string
	EntryScript          string
	BootShell            string
	BlockStoreMountPoint string
	OfferTempStorage     bool

	DefaultNodeCount          int
	MaxNodeCount              int
	DefaultTempFileSystemSize int

	ProfileDescription  string
	ProfileInstructions string

	FetchTemplatePath   string
	ChmodTemplatePath   string
	ExecuteTemplatePath string

	RehearsalMemoryMB  int
	RehearsalVCPU      int
	RehearsalImageDir  string
	RehearsalBaseImage string
	RehearsalBridge    string

	LogLevel         string
	LogFormat        string
	TelemetryEnabled bool
}

// Load reads configuration from defaults, the optional file at path and CLOUDPROFILE_*
// environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("hardware_type", DefaultHardwareType)
	v.SetDefault("disk_image", DefaultDiskImage)
	v.SetDefault("repository_url", DefaultRepositoryURL)
	v.SetDefault("repository_path", DefaultRepositoryPath)
	v.SetDefault("entry_script", DefaultEntryScript)
	v.SetDefault("boot_shell", "sh")
	v.SetDefault("blockstore_mount", "/mydata")
	v.SetDefault("offer_temp_storage", true)
	v.SetDefault("default_node_count", 1)
	v.SetDefault("max_node_count", 1000)
	v.SetDefault("default_temp_filesystem_size", 0)
	v.SetDefault("profile_description", "")
	v.SetDefault("profile_instructions", "")
	v.SetDefault("fetch_template", "")
	v.SetDefault("chmod_template", "")
	v.SetDefault("execute_template", "")
	v.SetDefault("rehearsal_memory_mb", 4096)
	v.SetDefault("rehearsal_vcpu", 2)
	v.SetDefault("rehearsal_image_dir", "/var/lib/libvirt/images")
	v.SetDefault("rehearsal_base_image", "/var/lib/libvirt/images/ubuntu-22.04.qcow2")
	v.SetDefault("rehearsal_bridge", "virbr0")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("telemetry_enabled", false)

	v.SetEnvPrefix("cloudprofile")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		HardwareType:              v.GetString("hardware_type"),
		DiskImage:                 v.GetString("disk_image"),
		RepositoryURL:             v.GetString("repository_url"),
		RepositoryPath:            v.GetString("repository_path"),
		EntryScript:               v.GetString("entry_script"),
		BootShell:                 v.GetString("boot_shell"),
		BlockStoreMountPoint:      v.GetString("blockstore_mount"),
		OfferTempStorage:          v.GetBool("offer_temp_storage"),
		DefaultNodeCount:          v.GetInt("default_node_count"),
		MaxNodeCount:              v.GetInt("max_node_count"),
		DefaultTempFileSystemSize: v.GetInt("default_temp_filesystem_size"),
		ProfileDescription:        v.GetString("profile_description"),
		ProfileInstructions:       v.GetString("profile_instructions"),
		FetchTemplatePath:         v.GetString("fetch_template"),
		ChmodTemplatePath:         v.GetString("chmod_template"),
		ExecuteTemplatePath:       v.GetString("execute_template"),
		RehearsalMemoryMB:         v.GetInt("rehearsal_memory_mb"),
		RehearsalVCPU:             v.GetInt("rehearsal_vcpu"),
		RehearsalImageDir:         v.GetString("rehearsal_image_dir"),
		RehearsalBaseImage:        v.GetString("rehearsal_base_image"),
		RehearsalBridge:           v.GetString("rehearsal_bridge"),
		LogLevel:                  strings.ToLower(v.GetString("log_level")),
		LogFormat:                 strings.ToLower(v.GetString("log_format")),
		TelemetryEnabled:          v.GetBool("telemetry_enabled"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var result *multierror.Error

	required := []struct {
		key   string
		value string
	}{
		{"hardware_type", c.HardwareType},
		{"disk_image", c.DiskImage},
		{"repository_url", c.RepositoryURL},
		{"repository_path", c.RepositoryPath},
		{"entry_script", c.EntryScript},
		{"boot_shell", c.BootShell},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			result = multierror.Append(result, fmt.Errorf("%s must not be empty", r.key))
		}
	}

	shellValues := []struct {
		key   string
		value string
	}{
		{"repository_url", c.RepositoryURL},
		{"repository_path", c.RepositoryPath},
		{"entry_script", c.EntryScript},
		{"blockstore_mount", c.BlockStoreMountPoint},
	}
	for _, s := range shellValues {
		if strings.ContainsAny(s.value, shellUnsafe) {
			result = multierror.Append(result, fmt.Errorf("%s contains shell metacharacters: %q", s.key, s.value))
		}
	}

	if !strings.HasPrefix(c.RepositoryPath, "/") {
		result = multierror.Append(result, fmt.Errorf("repository_path must be absolute: %s", c.RepositoryPath))
	}

	if c.OfferTempStorage && !strings.HasPrefix(c.BlockStoreMountPoint, "/") {
		result = multierror.Append(result, fmt.Errorf("blockstore_mount must be absolute: %s", c.BlockStoreMountPoint))
	}

	if c.DefaultNodeCount < 1 {
		result = multierror.Append(result, fmt.Errorf("default_node_count must be at least 1, got %d", c.DefaultNodeCount))
	}

	if c.MaxNodeCount < 1 {
		result = multierror.Append(result, fmt.Errorf("max_node_count must be at least 1, got %d", c.MaxNodeCount))
	} else if c.DefaultNodeCount > c.MaxNodeCount {
		result = multierror.Append(result, fmt.Errorf("default_node_count %d exceeds max_node_count %d", c.DefaultNodeCount, c.MaxNodeCount))
	}

	if c.DefaultTempFileSystemSize < 0 {
		result = multierror.Append(result, fmt.Errorf("default_temp_filesystem_size must not be negative, got %d", c.DefaultTempFileSystemSize))
	}

	if c.DefaultTempFileSystemSize > 0 && !c.OfferTempStorage {
		result = multierror.Append(result, fmt.Errorf("default_temp_filesystem_size is set but offer_temp_storage is disabled"))
	}

	templates := []struct {
		key  string
		path string
	}{
		{"fetch_template", c.FetchTemplatePath},
		{"chmod_template", c.ChmodTemplatePath},
		{"execute_template", c.ExecuteTemplatePath},
	}
	for _, tpl := range templates {
		if tpl.path == "" {
			continue
		}
		if err := validateFileExists(tpl.path); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", tpl.key, err))
		}
	}

	if c.RehearsalMemoryMB < 1 {
		result = multierror.Append(result, fmt.Errorf("rehearsal_memory_mb must be positive, got %d", c.RehearsalMemoryMB))
	}

	if c.RehearsalVCPU < 1 {
		result = multierror.Append(result, fmt.Errorf("rehearsal_vcpu must be positive, got %d", c.RehearsalVCPU))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		result = multierror.Append(result, fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.LogLevel))
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		result = multierror.Append(result, fmt.Errorf("invalid log format: %s (valid: text, json)", c.LogFormat))
	}

	return result.ErrorOrNil()
}

func validateFileExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", path)
	} else if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	return nil
}
