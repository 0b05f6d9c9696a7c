package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv applies environment variable overrides. Variables that are not
// set keep the current value.
//
//	CMIS_PORT                    server port (default "8080")
//	CMIS_ENVIRONMENT             development, production or testing
//	CMIS_LOG_LEVEL               debug, info, warn or error
//	CMIS_REPOSITORY_ID           repository id (generated when empty)
//	CMIS_REPOSITORY_NAME         repository name
//	CMIS_REPOSITORY_DESCRIPTION  repository description
//	CMIS_SUPER_USER              principal that bypasses ACL checks
//	CMIS_MAX_CONTENT_SIZE        content stream ceiling in bytes, 0 for none
//	CMIS_CONTENT_STREAM_UPDATES  anytime, pwconly or none
//	CMIS_TYPES_FILE              YAML file of type definitions
//	CMIS_CHANGE_LOG              none, memory or sqlite
//	CMIS_CHANGE_LOG_PATH         sqlite database path
//	CMIS_METRICS_ENABLED         expose Prometheus metrics
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("read environment: %w", err)
		}
		return nil
	}
}

// WithFile reads a YAML, TOML or .env configuration file. Environment
// variables take precedence over the file.
func WithFile(path string) Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadConfig(path, c); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		return nil
	}
}
