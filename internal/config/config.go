package config

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix                   = "LISTINGBOARD"
	defaultHTTPAddress          = "0.0.0.0:5000"
	defaultDatabasePath         = "property_links.db"
	defaultLogLevel             = "info"
	defaultLogFormat            = "json"
	defaultCustomerName         = "(unassigned)"
	defaultBackupDirectory      = "."
	defaultBackupFormat         = "json"
	platformDatabaseURLVariable = "DATABASE_URL"
	platformPortVariable        = "PORT"
)

// AppConfig captures runtime configuration for the API server and CLI commands.
type AppConfig struct {
	HTTPAddress          string
	DatabaseURL          string
	DatabasePath         string
	DatabaseMaxOpenConns int
	LogLevel             string
	LogFormat            string
	DefaultCustomerName  string
	TransactionalRestore bool
	BackupDirectory      string
	BackupFormat         string
}

// UsesNetworkedDatabase reports whether a database URL selects the networked backend.
func (c AppConfig) UsesNetworkedDatabase() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.url", "")
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("database.max_open_conns", 0)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("customer.default_name", defaultCustomerName)
	configViper.SetDefault("backup.transactional_restore", false)
	configViper.SetDefault("backup.directory", defaultBackupDirectory)
	configViper.SetDefault("backup.format", defaultBackupFormat)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	return load(configViper, os.LookupEnv)
}

func load(configViper *viper.Viper, lookupEnv func(string) (string, bool)) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:          strings.TrimSpace(configViper.GetString("http.address")),
		DatabaseURL:          strings.TrimSpace(configViper.GetString("database.url")),
		DatabasePath:         strings.TrimSpace(configViper.GetString("database.path")),
		DatabaseMaxOpenConns: configViper.GetInt("database.max_open_conns"),
		LogLevel:             configViper.GetString("log.level"),
		LogFormat:            strings.ToLower(strings.TrimSpace(configViper.GetString("log.format"))),
		DefaultCustomerName:  configViper.GetString("customer.default_name"),
		TransactionalRestore: configViper.GetBool("backup.transactional_restore"),
		BackupDirectory:      strings.TrimSpace(configViper.GetString("backup.directory")),
		BackupFormat:         strings.ToLower(strings.TrimSpace(configViper.GetString("backup.format"))),
	}

	if cfg.DatabaseURL == "" {
		if value, ok := lookupEnv(platformDatabaseURLVariable); ok {
			cfg.DatabaseURL = strings.TrimSpace(value)
		}
	}
	if port, ok := lookupEnv(platformPortVariable); ok && strings.TrimSpace(port) != "" {
		cfg.HTTPAddress = withPort(cfg.HTTPAddress, strings.TrimSpace(port))
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if c.HTTPAddress == "" {
		return fmt.Errorf("http.address is required")
	}
	if !c.UsesNetworkedDatabase() && c.DatabasePath == "" {
		return fmt.Errorf("database.path is required when database.url is empty")
	}
	if c.DatabaseMaxOpenConns < 0 {
		return fmt.Errorf("database.max_open_conns must not be negative")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.LogFormat)
	}
	switch c.BackupFormat {
	case "json", "yaml":
	default:
		return fmt.Errorf("backup.format must be json or yaml, got %q", c.BackupFormat)
	}
	return nil
}

func withPort(address, port string) string {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	return net.JoinHostPort(host, port)
}
