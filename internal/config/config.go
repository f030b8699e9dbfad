// Package config provides configuration management for the content server
// using Viper for flexible configuration loading from files, environment
// variables, and command-line flags.
//
// The configuration covers the listening address and worker pool, the two
// virtual-host identifiers, the filesystem layout (static root, data
// directory, taxonomy source, image tree) and the log file.
package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Domains DomainsConfig `yaml:"domains" mapstructure:"domains"`
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

type ServerConfig struct {
	Port    int    `yaml:"port" mapstructure:"port"`
	Host    string `yaml:"host" mapstructure:"host"`
	Workers int    `yaml:"workers" mapstructure:"workers"`
}

// DomainsConfig holds the literal Host header values of the two virtual hosts.
type DomainsConfig struct {
	Site         string `yaml:"site" mapstructure:"site"`
	Encyclopedia string `yaml:"encyclopedia" mapstructure:"encyclopedia"`
}

type PathsConfig struct {
	Root   string `yaml:"root" mapstructure:"root"`
	Data   string `yaml:"data" mapstructure:"data"`
	Source string `yaml:"source" mapstructure:"source"`
	Images string `yaml:"images" mapstructure:"images"`
}

type LoggingConfig struct {
	File   string `yaml:"file" mapstructure:"file"`
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Buffer int    `yaml:"buffer" mapstructure:"buffer"`
}

const (
	DefaultPort         = 7878
	DefaultHost         = "127.0.0.1"
	DefaultRoot         = "/var/www/html"
	DefaultLogFile      = "rusty_website.log"
	DefaultLogBuffer    = 256
	DefaultSiteDomain   = "localhost:7878"
	DefaultMycoDomain   = "mycology.localhost:7878"
	DefaultSourceName   = "shroom_info.yaml"
	DefaultImageSubpath = "mycology/Smallimages"
)

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if !viper.IsSet("server.port") {
		config.Server.Port = DefaultPort
	}
	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}
	if config.Server.Workers <= 0 {
		config.Server.Workers = runtime.NumCPU()
	}

	if config.Domains.Site == "" {
		config.Domains.Site = DefaultSiteDomain
	}
	if config.Domains.Encyclopedia == "" {
		config.Domains.Encyclopedia = DefaultMycoDomain
	}

	config.Paths.applyDefaults()

	if config.Logging.File == "" {
		config.Logging.File = DefaultLogFile
	}
	if config.Logging.Level == "" {
		config.Logging.Level = viper.GetString("log-level")
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}
	if config.Logging.Buffer <= 0 {
		config.Logging.Buffer = DefaultLogBuffer
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyDefaults derives unset paths from the root so that overriding the
// root alone relocates the whole tree.
func (p *PathsConfig) applyDefaults() {
	if p.Root == "" {
		p.Root = DefaultRoot
	}
	if p.Data == "" {
		p.Data = filepath.Join(p.Root, "data")
	}
	if p.Source == "" {
		p.Source = filepath.Join(p.Data, DefaultSourceName)
	}
	if p.Images == "" {
		p.Images = filepath.Join(p.Root, DefaultImageSubpath)
	}
}

// Addr returns the host:port the listener binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateDomainsConfig(&config.Domains); err != nil {
		return fmt.Errorf("domains config: %w", err)
	}

	for name, path := range map[string]string{
		"root":   config.Paths.Root,
		"data":   config.Paths.Data,
		"source": config.Paths.Source,
		"images": config.Paths.Images,
	} {
		if err := validatePath(path); err != nil {
			return fmt.Errorf("paths config: invalid %s path '%s': %w", name, path, err)
		}
	}

	switch strings.ToLower(config.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging config: unsupported format %q", config.Logging.Format)
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Port 0 asks the kernel for a free port, which tests rely on.
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	return nil
}

func validateDomainsConfig(config *DomainsConfig) error {
	if strings.TrimSpace(config.Site) == "" || strings.TrimSpace(config.Encyclopedia) == "" {
		return fmt.Errorf("both site and encyclopedia domains are required")
	}
	if config.Site == config.Encyclopedia {
		return fmt.Errorf("site and encyclopedia domains must differ: %s", config.Site)
	}

	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">", "\""}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
