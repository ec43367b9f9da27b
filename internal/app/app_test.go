package app

import (
	"path/filepath"
	"testing"

	"go-pos-ledger/internal/config"
	"go-pos-ledger/internal/database"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DBDriver:          "sqlite",
		DBDSN:             filepath.Join(t.TempDir(), "pos.db"),
		JWTSecret:         "test-secret",
		SKUPrefix:         "GE",
		LowStockThreshold: 5,
		Timezone:          "UTC",
		LogLevel:          "info",
		BackupDir:         t.TempDir(),
	}
}

// captureConnect records the handle New opens so tests can inspect it afterwards.
func captureConnect(t *testing.T) **gorm.DB {
	var opened *gorm.DB
	connect = func(cfg *config.Config, log logrus.FieldLogger) (*gorm.DB, error) {
		db, err := database.Connect(cfg, log)
		opened = db
		return db, err
	}
	t.Cleanup(func() { connect = database.Connect })
	return &opened
}

func TestNewWiresServices(t *testing.T) {
	pos, err := New(testConfig(t), config.DiscardLogger())
	require.NoError(t, err)

	assert.Equal(t, database.LatestVersion(), pos.Schema.Version)
	assert.NotNil(t, pos.Handler.Sales)
	assert.NotNil(t, pos.Handler.Reports)
	assert.False(t, pos.Handler.Agent.Enabled())
	require.NoError(t, pos.Close())
}

func TestNewClosesDatabaseOnCacheFailure(t *testing.T) {
	opened := captureConnect(t)
	cfg := testConfig(t)
	cfg.RedisURL = "http://not-redis"

	_, err := New(cfg, config.DiscardLogger())
	require.ErrorContains(t, err, "report cache")

	require.NotNil(t, *opened)
	sqlDB, err := (*opened).DB()
	require.NoError(t, err)
	assert.ErrorContains(t, sqlDB.Ping(), "database is closed")
}
