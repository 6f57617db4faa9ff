// Package config loads the DID service configuration from an optional YAML
// file and the process environment, and validates it at startup.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pilacorp/go-did-sdk/builder"
	"github.com/pilacorp/go-did-sdk/resolver"
)

// Default values
const (
	DefaultListenAddr       = ":8080"
	DefaultOperationTimeout = 30 * time.Second
	DefaultLogLevel         = "info"
)

// Environment variable names
const (
	EnvListenAddr     = "DID_LISTEN_ADDR"
	EnvDomainName     = "DOMAIN_NAME"
	EnvX509PublicKey  = "X509_PUBLIC_KEY"
	EnvX509CertPath   = "X509_CERT_PATH"
	EnvResolveTimeout = "DID_RESOLVE_TIMEOUT"
	EnvMethods        = "DID_METHODS"
	EnvLogLevel       = "DID_LOG_LEVEL"
	EnvAllowHTTP      = "DID_ALLOW_HTTP"
)

// Config is the service configuration.
type Config struct {
	ListenAddr string `yaml:"listenAddr"`
	// Methods are the enabled builder methods.
	Methods []string `yaml:"methods"`
	// ResolveTimeout bounds a single did:web fetch.
	ResolveTimeout time.Duration `yaml:"resolveTimeout"`
	// OperationTimeout bounds every service operation.
	OperationTimeout time.Duration `yaml:"operationTimeout"`
	// AllowHTTP resolves did:web over plain HTTP. Local testing only.
	AllowHTTP      bool                `yaml:"allowHttp"`
	LogLevel       string              `yaml:"logLevel"`
	AllowedOrigins []string            `yaml:"allowedOrigins"`
	GaiaX          builder.GaiaXConfig `yaml:"gaiaX"`

	// methodsSet records that Methods was chosen explicitly rather than defaulted.
	methodsSet bool
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	methods := make([]string, 0, len(builder.Methods))
	for _, m := range builder.Methods {
		methods = append(methods, string(m))
	}

	return &Config{
		ListenAddr:       DefaultListenAddr,
		Methods:          methods,
		ResolveTimeout:   resolver.DefaultTimeout,
		OperationTimeout: DefaultOperationTimeout,
		LogLevel:         DefaultLogLevel,
		AllowedOrigins:   []string{"*"},
		GaiaX: builder.GaiaXConfig{
			Hostname:        builder.DefaultHostname,
			CertificatePath: builder.DefaultCertificatePath,
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var raw struct {
		Methods []string `yaml:"methods"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if raw.Methods != nil {
		c.Methods = nil
		c.methodsSet = true
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvListenAddr); ok {
		c.ListenAddr = v
	}
	if v, ok := os.LookupEnv(EnvDomainName); ok && v != "" {
		c.GaiaX.Hostname = v
	}
	if v, ok := os.LookupEnv(EnvX509PublicKey); ok {
		c.GaiaX.PublicKeyPEM = v
	}
	if v, ok := os.LookupEnv(EnvX509CertPath); ok && v != "" {
		c.GaiaX.CertificatePath = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}

	if v, ok := os.LookupEnv(EnvResolveTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvResolveTimeout, err)
		}
		c.ResolveTimeout = d
	}

	if v, ok := os.LookupEnv(EnvAllowHTTP); ok && v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvAllowHTTP, err)
		}
		c.AllowHTTP = allow
	}

	if v, ok := os.LookupEnv(EnvMethods); ok {
		c.Methods = nil
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				c.Methods = append(c.Methods, m)
			}
		}
		c.methodsSet = true
	}

	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.ResolveTimeout <= 0 {
		return fmt.Errorf("resolve timeout must be positive, got %s", c.ResolveTimeout)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("operation timeout must be positive, got %s", c.OperationTimeout)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	methods, err := c.EnabledMethods()
	if err != nil {
		return err
	}
	if len(methods) == 0 {
		return fmt.Errorf("at least one method must be enabled")
	}

	if c.methodsSet && !c.GaiaX.Configured() {
		for _, m := range methods {
			if m == builder.MethodWebGaiaX {
				return fmt.Errorf("%s is enabled but %s is not set", builder.MethodWebGaiaX, EnvX509PublicKey)
			}
		}
	}

	return nil
}

// EnabledMethods parses Methods.
func (c *Config) EnabledMethods() ([]builder.Method, error) {
	methods := make([]builder.Method, 0, len(c.Methods))
	for _, name := range c.Methods {
		m, err := builder.ParseMethod(name)
		if err != nil {
			return nil, fmt.Errorf("invalid method: %w", err)
		}
		methods = append(methods, m)
	}
	return methods, nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
