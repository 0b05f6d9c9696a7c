package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tendant/simple-cmis/pkg/cmis"
	"github.com/tendant/simple-cmis/pkg/cmis/changelog"
	"github.com/tendant/simple-cmis/pkg/cmis/repo/memory"
	"github.com/tendant/simple-cmis/pkg/cmis/service"
	"github.com/tendant/simple-cmis/pkg/cmis/typesys"
)

// Change log backends.
const (
	ChangeLogNone   = "none"
	ChangeLogMemory = "memory"
	ChangeLogSQLite = "sqlite"
)

var validate = validator.New()

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:                 "8080",
		Environment:          "development",
		LogLevel:             "info",
		RepositoryName:       "simple-cmis",
		ContentStreamUpdates: string(cmis.ContentStreamUpdatesAnytime),
		ChangeLog:            ChangeLogMemory,
		ChangeLogPath:        ":memory:",
	}
}

// ServerConfig represents the configuration of a repository server.
type ServerConfig struct {
	Port        string `yaml:"port" env:"CMIS_PORT" validate:"required,numeric"`
	Environment string `yaml:"environment" env:"CMIS_ENVIRONMENT" validate:"oneof=development production testing"`
	LogLevel    string `yaml:"log_level" env:"CMIS_LOG_LEVEL" validate:"oneof=debug info warn error"`

	// Repository
	RepositoryID          string `yaml:"repository_id" env:"CMIS_REPOSITORY_ID" validate:"omitempty,excludesall=/"`
	RepositoryName        string `yaml:"repository_name" env:"CMIS_REPOSITORY_NAME" validate:"required"`
	RepositoryDescription string `yaml:"repository_description" env:"CMIS_REPOSITORY_DESCRIPTION"`
	SuperUser             string `yaml:"super_user" env:"CMIS_SUPER_USER"`
	MaxContentSize        int64  `yaml:"max_content_size" env:"CMIS_MAX_CONTENT_SIZE" validate:"gte=0"`
	ContentStreamUpdates  string `yaml:"content_stream_updates" env:"CMIS_CONTENT_STREAM_UPDATES" validate:"oneof=anytime pwconly none"`

	// TypesFile is a YAML file of additional type definitions.
	TypesFile string `yaml:"types_file" env:"CMIS_TYPES_FILE"`

	ChangeLog     string `yaml:"change_log" env:"CMIS_CHANGE_LOG" validate:"oneof=none memory sqlite"`
	ChangeLogPath string `yaml:"change_log_path" env:"CMIS_CHANGE_LOG_PATH"`

	MetricsEnabled bool `yaml:"metrics_enabled" env:"CMIS_METRICS_ENABLED"`
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}

	if c.ChangeLog == ChangeLogSQLite && c.ChangeLogPath == "" {
		return errors.New("change_log_path is required when using sqlite")
	}

	if c.TypesFile != "" {
		if _, err := os.Stat(c.TypesFile); err != nil {
			return fmt.Errorf("types_file: %w", err)
		}
	}

	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}

// SlogLevel returns the configured log level.
func (c *ServerConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// BuildService creates a repository service from the configuration. The
// extra options are applied last, so callers can add a logger, metrics or
// an event sink. The returned function closes the change log.
func (c *ServerConfig) BuildService(extra ...service.Option) (cmis.Service, func() error, error) {
	var options []service.Option

	var storeOpts []memory.Option
	if c.SuperUser != "" {
		storeOpts = append(storeOpts, memory.WithSuperUser(c.SuperUser))
	}
	options = append(options,
		service.WithStore(memory.New(storeOpts...)),
		service.WithRepositoryName(c.RepositoryName, c.RepositoryDescription),
		service.WithMaxContentSize(c.MaxContentSize),
		service.WithContentStreamUpdates(cmis.ContentStreamUpdates(c.ContentStreamUpdates)),
	)
	if c.RepositoryID != "" {
		options = append(options, service.WithRepositoryID(c.RepositoryID))
	}

	types, err := c.buildTypes()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build type system: %w", err)
	}
	options = append(options, service.WithTypeManager(types))

	log, err := c.buildChangeLog()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build change log: %w", err)
	}
	closeFn := func() error { return nil }
	if log != nil {
		options = append(options, service.WithChangeLog(log))
		closeFn = log.Close
	}

	svc, err := service.New(append(options, extra...)...)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}

func (c *ServerConfig) buildTypes() (*typesys.Manager, error) {
	types := typesys.NewManager()
	if c.TypesFile == "" {
		return types, nil
	}
	if _, err := types.LoadFile(c.TypesFile); err != nil {
		return nil, err
	}
	return types, nil
}

// buildChangeLog creates the change log, nil when disabled.
func (c *ServerConfig) buildChangeLog() (cmis.ChangeLog, error) {
	switch c.ChangeLog {
	case ChangeLogNone:
		return nil, nil
	case ChangeLogMemory:
		return changelog.NewMemoryLog(), nil
	case ChangeLogSQLite:
		return changelog.NewSQLiteLog(c.ChangeLogPath)
	default:
		return nil, fmt.Errorf("unsupported change log: %s", c.ChangeLog)
	}
}
