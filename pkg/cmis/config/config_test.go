package config_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cmis/pkg/cmis"
	"github.com/tendant/simple-cmis/pkg/cmis/config"
	"github.com/tendant/simple-cmis/pkg/cmis/service"
)

const typesYAML = `types:
  - id: test:invoice
    parentId: cmis:document
    displayName: Invoice
    creatable: true
    fileable: true
    versionable: true
    properties:
      - id: test:amount
        type: integer
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.Equal(t, "simple-cmis", cfg.RepositoryName)
	assert.Equal(t, config.ChangeLogMemory, cfg.ChangeLog)
	assert.Equal(t, "anytime", cfg.ContentStreamUpdates)
	assert.Zero(t, cfg.MaxContentSize)
	assert.False(t, cfg.MetricsEnabled)
}

func TestLoad_Options(t *testing.T) {
	tests := []struct {
		name      string
		opt       config.Option
		wantError bool
		check     func(t *testing.T, cfg *config.ServerConfig)
	}{
		{"port", config.WithPort("9090"), false, func(t *testing.T, cfg *config.ServerConfig) {
			assert.Equal(t, "9090", cfg.Port)
		}},
		{"empty port", config.WithPort(""), true, nil},
		{"non-numeric port", config.WithPort("http"), true, nil},
		{"environment", config.WithEnvironment("production"), false, func(t *testing.T, cfg *config.ServerConfig) {
			assert.Equal(t, "production", cfg.Environment)
		}},
		{"unknown environment", config.WithEnvironment("staging"), true, nil},
		{"log level", config.WithLogLevel("debug"), false, func(t *testing.T, cfg *config.ServerConfig) {
			assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
		}},
		{"unknown log level", config.WithLogLevel("verbose"), true, nil},
		{"repository", config.WithRepository("repo1", "Docs", "team documents"), false, func(t *testing.T, cfg *config.ServerConfig) {
			assert.Equal(t, "repo1", cfg.RepositoryID)
			assert.Equal(t, "Docs", cfg.RepositoryName)
			assert.Equal(t, "team documents", cfg.RepositoryDescription)
		}},
		{"repository without name", config.WithRepository("repo1", "", ""), true, nil},
		{"repository id with slash", config.WithRepository("a/b", "Docs", ""), true, nil},
		{"super user", config.WithSuperUser("admin"), false, func(t *testing.T, cfg *config.ServerConfig) {
			assert.Equal(t, "admin", cfg.SuperUser)
		}},
		{"max content size", config.WithMaxContentSize(1024), false, func(t *testing.T, cfg *config.ServerConfig) {
			assert.Equal(t, int64(1024), cfg.MaxContentSize)
		}},
		{"negative max content size", config.WithMaxContentSize(-1), true, nil},
		{"content updates", config.WithContentStreamUpdates(cmis.ContentStreamUpdatesPWCOnly), false, func(t *testing.T, cfg *config.ServerConfig) {
			assert.Equal(t, "pwconly", cfg.ContentStreamUpdates)
		}},
		{"unknown content updates", config.WithContentStreamUpdates("sometimes"), true, nil},
		{"no change log", config.WithChangeLog(config.ChangeLogNone, ""), false, func(t *testing.T, cfg *config.ServerConfig) {
			assert.Equal(t, config.ChangeLogNone, cfg.ChangeLog)
		}},
		{"sqlite change log", config.WithChangeLog(config.ChangeLogSQLite, "changes.db"), false, func(t *testing.T, cfg *config.ServerConfig) {
			assert.Equal(t, config.ChangeLogSQLite, cfg.ChangeLog)
			assert.Equal(t, "changes.db", cfg.ChangeLogPath)
		}},
		{"sqlite without path", config.WithChangeLog(config.ChangeLogSQLite, ""), true, nil},
		{"unknown change log", config.WithChangeLog("kafka", ""), true, nil},
		{"missing types file", config.WithTypesFile("/does/not/exist.yaml"), true, nil},
		{"metrics", config.WithMetrics(true), false, func(t *testing.T, cfg *config.ServerConfig) {
			assert.True(t, cfg.MetricsEnabled)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load(tt.opt)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestWithEnv(t *testing.T) {
	t.Setenv("CMIS_PORT", "7070")
	t.Setenv("CMIS_SUPER_USER", "root")
	t.Setenv("CMIS_MAX_CONTENT_SIZE", "2048")
	t.Setenv("CMIS_METRICS_ENABLED", "true")

	cfg, err := config.Load(config.WithRepository("", "Archive", ""), config.WithEnv())
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "root", cfg.SuperUser)
	assert.Equal(t, int64(2048), cfg.MaxContentSize)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, "Archive", cfg.RepositoryName, "unset variables keep earlier values")
	assert.Equal(t, "development", cfg.Environment)

	t.Run("options after env win", func(t *testing.T) {
		cfg, err := config.Load(config.WithEnv(), config.WithPort("6060"))
		require.NoError(t, err)
		assert.Equal(t, "6060", cfg.Port)
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("CMIS_MAX_CONTENT_SIZE", "lots")
		_, err := config.Load(config.WithEnv())
		assert.Error(t, err)
	})
}

func TestWithFile(t *testing.T) {
	path := writeFile(t, "cmis.yaml", `port: "9191"
repository_name: Contracts
change_log: none
content_stream_updates: pwconly
`)

	cfg, err := config.Load(config.WithFile(path))
	require.NoError(t, err)
	assert.Equal(t, "9191", cfg.Port)
	assert.Equal(t, "Contracts", cfg.RepositoryName)
	assert.Equal(t, config.ChangeLogNone, cfg.ChangeLog)
	assert.Equal(t, "pwconly", cfg.ContentStreamUpdates)
	assert.Equal(t, "info", cfg.LogLevel)

	_, err = config.Load(config.WithFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestBuildService(t *testing.T) {
	ctx := context.Background()
	typesFile := writeFile(t, "types.yaml", typesYAML)

	cfg, err := config.Load(
		config.WithRepository("repo1", "Docs", "team documents"),
		config.WithTypesFile(typesFile),
		config.WithContentStreamUpdates(cmis.ContentStreamUpdatesPWCOnly),
	)
	require.NoError(t, err)

	svc, closeFn, err := cfg.BuildService(service.WithLogger(slog.Default()))
	require.NoError(t, err)
	defer func() { assert.NoError(t, closeFn()) }()

	info, err := svc.GetRepositoryInfo(ctx, "repo1")
	require.NoError(t, err)
	assert.Equal(t, "Docs", info.Name)
	assert.Equal(t, "team documents", info.Description)
	assert.Equal(t, cmis.ContentStreamUpdatesPWCOnly, info.Capabilities.ContentStreamUpdates)

	td, err := svc.GetTypeDefinition(ctx, "test:invoice")
	require.NoError(t, err)
	assert.True(t, td.Versionable)

	changes, err := svc.GetContentChanges(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, changes.Events)

	t.Run("without change log", func(t *testing.T) {
		cfg, err := config.Load(config.WithChangeLog(config.ChangeLogNone, ""))
		require.NoError(t, err)
		svc, closeFn, err := cfg.BuildService()
		require.NoError(t, err)
		defer closeFn()

		_, err = svc.GetContentChanges(ctx, 0, 10)
		assert.ErrorIs(t, err, cmis.ErrNotSupported)
	})

	t.Run("sqlite change log", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "changes.db")
		cfg, err := config.Load(config.WithChangeLog(config.ChangeLogSQLite, path))
		require.NoError(t, err)
		svc, closeFn, err := cfg.BuildService()
		require.NoError(t, err)
		defer closeFn()

		info, err := svc.GetRepositoryInfos(ctx)
		require.NoError(t, err)
		require.Len(t, info, 1)
		_, err = svc.CreateFolder(ctx, cmis.CreateFolderRequest{
			Properties: cmis.NewProperties(
				cmis.NewIDProperty(cmis.PropObjectTypeID, "cmis:folder"),
				cmis.NewStringProperty(cmis.PropName, "inbox"),
			),
			FolderID: info[0].RootFolderID,
		})
		require.NoError(t, err)

		changes, err := svc.GetContentChanges(ctx, 0, 10)
		require.NoError(t, err)
		require.Len(t, changes.Events, 1)
		assert.Equal(t, cmis.ChangeTypeCreated, changes.Events[0].ChangeType)
	})

	t.Run("bad types file", func(t *testing.T) {
		cfg, err := config.Load(config.WithTypesFile(writeFile(t, "bad.yaml", "types:\n  - id: x:y\n    parentId: x:none\n")))
		require.NoError(t, err)
		_, _, err = cfg.BuildService()
		assert.ErrorIs(t, err, cmis.ErrObjectNotFound)
	})
}
