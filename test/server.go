package test

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/slatehq/slate/internal/db/models"
	"github.com/slatehq/slate/internal/db/repos"
	"github.com/slatehq/slate/pkg/api/v1/handlers"
	"github.com/slatehq/slate/pkg/api/v1/routes"
)

// Backend is an in-process api3 server backed by a temporary SQLite
// database, so live-mode provisioning can be exercised hermetically.
type Backend struct {
	App     *fiber.App
	Server  *httptest.Server
	DB      *gorm.DB
	Records *repos.RecordRepository

	tmpDir string
}

// NewBackend starts a backend accepting the given script credentials.
func NewBackend(t *testing.T, scriptName, scriptKey string) *Backend {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "slate_test")
	require.NoError(t, err, "failed to create temporary directory")

	dbPath := filepath.Join(tmpDir, "slate_test.db")
	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open database")
	require.NoError(t, gdb.AutoMigrate(&models.Record{}), "failed to run migrations")

	records := repos.NewRecordRepository(gdb)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	rpcHandler := &handlers.RPCHandler{
		Records:    records,
		ScriptName: scriptName,
		ScriptKey:  scriptKey,
		Version:    []int{2, 4, 0},
	}
	routes.RegisterRoutes(app, rpcHandler)

	return &Backend{
		App:     app,
		Server:  httptest.NewServer(adaptor.FiberApp(app)),
		DB:      gdb,
		Records: records,
		tmpDir:  tmpDir,
	}
}

// URL returns the backend's base URL.
func (b *Backend) URL() string {
	return b.Server.URL
}

// Close shuts down the server and removes the temporary database.
func (b *Backend) Close() {
	if b.Server != nil {
		b.Server.Close()
	}
	if b.DB != nil {
		sqlDB, err := b.DB.DB()
		if err == nil && sqlDB != nil {
			_ = sqlDB.Close()
		}
	}
	if b.tmpDir != "" {
		_ = os.RemoveAll(b.tmpDir)
	}
}

// WriteConfig writes a harness config file describing this Config to a
// temporary location and returns its path. Useful for pointing a Suite at
// a Backend without touching the checked-in testdata file.
func WriteConfig(t *testing.T, cfg *Config) string {
	t.Helper()

	file := ini.Empty()
	server, err := file.NewSection("server")
	require.NoError(t, err)
	mock := "False"
	if cfg.Mock {
		mock = "True"
	}
	set := func(section *ini.Section, name, value string) {
		_, err := section.NewKey(name, value)
		require.NoError(t, err)
	}
	set(server, "mock", mock)
	set(server, "server_url", cfg.ServerURL)
	set(server, "script_name", cfg.ScriptName)
	set(server, "api_key", cfg.APIKey)
	if cfg.HTTPProxy != "" {
		set(server, "http_proxy", cfg.HTTPProxy)
	}
	if cfg.SessionUUID != "" {
		set(server, "session_uuid", cfg.SessionUUID)
	}

	fixtures, err := file.NewSection("fixtures")
	require.NoError(t, err)
	set(fixtures, "project_name", cfg.ProjectName)
	set(fixtures, "human_name", cfg.HumanName)
	set(fixtures, "human_login", cfg.HumanLogin)
	set(fixtures, "human_password", cfg.HumanPassword)
	set(fixtures, "asset_code", cfg.AssetCode)
	set(fixtures, "version_code", cfg.VersionCode)
	set(fixtures, "shot_code", cfg.ShotCode)

	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, file.SaveTo(path), "failed to write harness config")
	return path
}
