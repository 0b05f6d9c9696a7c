package config

import (
	"fmt"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithLogLevel sets the log level (debug, info, warn, error)
func WithLogLevel(level string) Option {
	return func(c *ServerConfig) error {
		c.LogLevel = level
		return nil
	}
}

// WithRepository sets the repository id, name and description. An empty
// id lets the service generate one.
func WithRepository(id, name, description string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			return fmt.Errorf("repository name cannot be empty")
		}
		c.RepositoryID = id
		c.RepositoryName = name
		c.RepositoryDescription = description
		return nil
	}
}

// WithSuperUser sets the principal that bypasses ACL checks
func WithSuperUser(principal string) Option {
	return func(c *ServerConfig) error {
		c.SuperUser = principal
		return nil
	}
}

// WithMaxContentSize sets the content stream ceiling in bytes, 0 for none
func WithMaxContentSize(n int64) Option {
	return func(c *ServerConfig) error {
		if n < 0 {
			return fmt.Errorf("max content size cannot be negative, got: %d", n)
		}
		c.MaxContentSize = n
		return nil
	}
}

// WithContentStreamUpdates sets when document content may change
func WithContentStreamUpdates(u cmis.ContentStreamUpdates) Option {
	return func(c *ServerConfig) error {
		c.ContentStreamUpdates = string(u)
		return nil
	}
}

// WithTypesFile loads additional type definitions from a YAML file
func WithTypesFile(path string) Option {
	return func(c *ServerConfig) error {
		c.TypesFile = path
		return nil
	}
}

// WithChangeLog configures the change log backend. The path is only used
// by sqlite.
func WithChangeLog(kind, path string) Option {
	return func(c *ServerConfig) error {
		switch kind {
		case ChangeLogNone, ChangeLogMemory:
		case ChangeLogSQLite:
			if path == "" {
				return fmt.Errorf("change log path is required for sqlite")
			}
			c.ChangeLogPath = path
		default:
			return fmt.Errorf("change log must be 'none', 'memory' or 'sqlite', got: %s", kind)
		}
		c.ChangeLog = kind
		return nil
	}
}

// WithMetrics enables Prometheus metrics
func WithMetrics(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.MetricsEnabled = enabled
		return nil
	}
}
