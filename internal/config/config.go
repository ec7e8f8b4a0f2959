// Package config loads atmd's YAML daemon configuration: socket path,
// buffer sizes, polling intervals, discovery binary names, and
// process-monitor thresholds, following the same XDG-default-path and
// prefix-match-lookup conventions the teacher's config package used.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/damelLP/atmd/internal/discovery"
	"github.com/damelLP/atmd/internal/procmon"
	"github.com/damelLP/atmd/internal/session"
)

// Config is the daemon's complete runtime configuration.
type Config struct {
	Socket    SocketConfig    `yaml:"socket"`
	Registry  RegistryConfig  `yaml:"registry"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Process   ProcessConfig   `yaml:"process"`
	Privacy   PrivacyConfig   `yaml:"privacy"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SocketConfig controls where the daemon listens.
type SocketConfig struct {
	Path string `yaml:"path"`
}

// RegistryConfig describes the single-writer registry's bounds and
// sweep interval. These values are parsed and defaulted but not read by
// the registry, which uses its own fixed buffer sizes, session cap and
// cleanup interval.
type RegistryConfig struct {
	CommandBufferSize int           `yaml:"command_buffer_size"`
	EventBufferSize   int           `yaml:"event_buffer_size"`
	MaxSessions       int           `yaml:"max_sessions"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
}

// DiscoveryConfig controls the /proc scan that finds assistant
// processes before they've announced themselves via status-line or
// hook JSON. ScanInterval is parsed and defaulted but not read: the
// discoverer scans on its own fixed interval.
type DiscoveryConfig struct {
	ScanInterval time.Duration `yaml:"scan_interval"`
	Binaries     []string      `yaml:"binaries"`
	NodeMarkers  []string      `yaml:"node_markers"`
}

// ToDiscoveryConfig converts the YAML-facing DiscoveryConfig into
// discovery.Config, falling back to discovery.DefaultConfig's
// ignore-dir-prefix list since that one is derived from $HOME, not
// user-configurable.
func (d DiscoveryConfig) ToDiscoveryConfig() discovery.Config {
	def := discovery.DefaultConfig()
	cfg := discovery.Config{
		Binaries:          d.Binaries,
		NodeMarkers:       d.NodeMarkers,
		IgnoreDirPrefixes: def.IgnoreDirPrefixes,
	}
	if len(cfg.Binaries) == 0 && len(cfg.NodeMarkers) == 0 {
		cfg.Binaries = def.Binaries
		cfg.NodeMarkers = def.NodeMarkers
	}
	return cfg
}

// ProcessConfig controls the daemon's self-monitoring thresholds.
// SampleInterval is parsed and defaulted but not read: the monitor
// samples on its own fixed interval.
type ProcessConfig struct {
	SampleInterval time.Duration `yaml:"sample_interval"`
	MaxRSSBytes    uint64        `yaml:"max_rss_bytes"`
	MaxCPUPercent  float64       `yaml:"max_cpu_percent"`
}

// ToThresholds converts the YAML-facing ProcessConfig into
// procmon.Thresholds.
func (p ProcessConfig) ToThresholds() procmon.Thresholds {
	th := procmon.DefaultThresholds()
	if p.MaxRSSBytes != 0 {
		th.RSSBytes = p.MaxRSSBytes
	}
	if p.MaxCPUPercent != 0 {
		th.CPUPercent = p.MaxCPUPercent
	}
	return th
}

// PrivacyConfig controls what session metadata is exposed to connected
// clients.
type PrivacyConfig struct {
	MaskWorkingDirs bool     `yaml:"mask_working_dirs"`
	MaskSessionIDs  bool     `yaml:"mask_session_ids"`
	MaskPIDs        bool     `yaml:"mask_pids"`
	MaskTmuxTargets bool     `yaml:"mask_tmux_targets"`
	AllowedPaths    []string `yaml:"allowed_paths"`
	BlockedPaths    []string `yaml:"blocked_paths"`
}

// NewPrivacyFilter converts the config into a session.PrivacyFilter.
func (p PrivacyConfig) NewPrivacyFilter() *session.PrivacyFilter {
	return &session.PrivacyFilter{
		MaskWorkingDirs: p.MaskWorkingDirs,
		MaskSessionIDs:  p.MaskSessionIDs,
		MaskPIDs:        p.MaskPIDs,
		MaskTmuxTargets: p.MaskTmuxTargets,
		AllowedPaths:    p.AllowedPaths,
		BlockedPaths:    p.BlockedPaths,
	}
}

// LoggingConfig controls the root logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the YAML config at path, starting from
// defaultConfig so any field the file omits keeps its default.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads config from path, or returns the default config
// if the file doesn't exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	return Load(path)
}

func defaultConfig() *Config {
	return &Config{
		Socket: SocketConfig{
			Path: DefaultSocketPath(),
		},
		Registry: RegistryConfig{
			CommandBufferSize: 100,
			EventBufferSize:   100,
			MaxSessions:       100,
			CleanupInterval:   2 * time.Second,
		},
		Discovery: DiscoveryConfig{
			ScanInterval: 3 * time.Second,
		},
		Process: ProcessConfig{
			SampleInterval: 60 * time.Second,
			MaxRSSBytes:    100 * 1024 * 1024,
			MaxCPUPercent:  80,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultStateDir() string {
	if value := os.Getenv("XDG_STATE_HOME"); value != "" {
		return value
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".local", "state")
}

func defaultConfigDir() string {
	if value := os.Getenv("XDG_CONFIG_HOME"); value != "" {
		return value
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config")
}

// DefaultConfigPath returns the default XDG-compliant config file path.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "atmd", "config.yaml")
}

// DefaultSocketPath returns the default XDG-compliant runtime socket
// path.
func DefaultSocketPath() string {
	if value := os.Getenv("XDG_RUNTIME_DIR"); value != "" {
		return filepath.Join(value, "atmd.sock")
	}
	return filepath.Join(defaultStateDir(), "atmd", "atmd.sock")
}

// Diff compares two configs and returns human-readable descriptions of
// what changed. Only sections that are safe to reload at runtime are
// compared (privacy, discovery binaries, process thresholds).
func Diff(old, new *Config) []string {
	var changes []string

	if old.Privacy.MaskWorkingDirs != new.Privacy.MaskWorkingDirs {
		changes = append(changes, fmt.Sprintf("privacy.mask_working_dirs: %v -> %v", old.Privacy.MaskWorkingDirs, new.Privacy.MaskWorkingDirs))
	}
	if old.Privacy.MaskSessionIDs != new.Privacy.MaskSessionIDs {
		changes = append(changes, fmt.Sprintf("privacy.mask_session_ids: %v -> %v", old.Privacy.MaskSessionIDs, new.Privacy.MaskSessionIDs))
	}
	if old.Privacy.MaskPIDs != new.Privacy.MaskPIDs {
		changes = append(changes, fmt.Sprintf("privacy.mask_pids: %v -> %v", old.Privacy.MaskPIDs, new.Privacy.MaskPIDs))
	}
	if old.Privacy.MaskTmuxTargets != new.Privacy.MaskTmuxTargets {
		changes = append(changes, fmt.Sprintf("privacy.mask_tmux_targets: %v -> %v", old.Privacy.MaskTmuxTargets, new.Privacy.MaskTmuxTargets))
	}
	if !slices.Equal(old.Privacy.AllowedPaths, new.Privacy.AllowedPaths) {
		changes = append(changes, fmt.Sprintf("privacy.allowed_paths: %v -> %v", old.Privacy.AllowedPaths, new.Privacy.AllowedPaths))
	}
	if !slices.Equal(old.Privacy.BlockedPaths, new.Privacy.BlockedPaths) {
		changes = append(changes, fmt.Sprintf("privacy.blocked_paths: %v -> %v", old.Privacy.BlockedPaths, new.Privacy.BlockedPaths))
	}

	if !slices.Equal(old.Discovery.Binaries, new.Discovery.Binaries) {
		changes = append(changes, fmt.Sprintf("discovery.binaries: %v -> %v", old.Discovery.Binaries, new.Discovery.Binaries))
	}
	if !slices.Equal(old.Discovery.NodeMarkers, new.Discovery.NodeMarkers) {
		changes = append(changes, fmt.Sprintf("discovery.node_markers: %v -> %v", old.Discovery.NodeMarkers, new.Discovery.NodeMarkers))
	}
	if old.Discovery.ScanInterval != new.Discovery.ScanInterval {
		changes = append(changes, fmt.Sprintf("discovery.scan_interval: %s -> %s", old.Discovery.ScanInterval, new.Discovery.ScanInterval))
	}

	if old.Process.MaxRSSBytes != new.Process.MaxRSSBytes {
		changes = append(changes, fmt.Sprintf("process.max_rss_bytes: %d -> %d", old.Process.MaxRSSBytes, new.Process.MaxRSSBytes))
	}
	if old.Process.MaxCPUPercent != new.Process.MaxCPUPercent {
		changes = append(changes, fmt.Sprintf("process.max_cpu_percent: %.1f -> %.1f", old.Process.MaxCPUPercent, new.Process.MaxCPUPercent))
	}

	return changes
}
