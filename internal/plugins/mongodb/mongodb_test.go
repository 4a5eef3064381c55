package mongodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/berth/internal/domain/plugin"
	"github.com/felixgeelhaar/berth/internal/domain/service"
)

func adapted(t *testing.T, raw map[string]any) (service.DatabaseService, service.Config) {
	t.Helper()

	p, err := New()
	require.NoError(t, err)
	cfg, err := p.(plugin.Configurable).ConfigSchema().Validate(raw)
	require.NoError(t, err)

	defs := p.(plugin.ServiceProvider).Services(cfg)
	require.Len(t, defs, 1)
	db, ok := service.Adapt("mongodb", defs[0]).(service.DatabaseService)
	require.True(t, ok)
	return db, db.DefaultConfig()
}

func TestMongoDB_WithoutAuthentication(t *testing.T) {
	t.Parallel()

	db, cfg := adapted(t, nil)
	assert.Equal(t, "7", cfg.Version)
	assert.Equal(t, 27017, cfg.Port)
	assert.Empty(t, cfg.Environment)

	assert.Equal(t, []string{"mongodump", "--archive", "--gzip"}, db.DumpCommand(cfg))
	assert.Equal(t, []string{"mongorestore", "--archive", "--gzip", "--drop"}, db.RestoreCommand(cfg))
	assert.Equal(t, []string{"mongosh", "--port", "27017"}, db.ShellCommand(cfg))
}

func TestMongoDB_WithAuthentication(t *testing.T) {
	t.Parallel()

	db, cfg := adapted(t, map[string]any{"root_password": "pw", "port": 27018, "version": "6"})
	assert.Equal(t, 27018, cfg.Port)
	assert.Equal(t, "6", cfg.Version)
	assert.Equal(t, "pw", cfg.Environment["MONGO_INITDB_ROOT_PASSWORD"])

	assert.Equal(t, []string{
		"mongodump", "--archive", "--gzip",
		"--username", "root", "--password", "pw", "--authenticationDatabase", "admin",
	}, db.DumpCommand(cfg))
}

func TestMongoDB_SchemaMarksPasswordSecret(t *testing.T) {
	t.Parallel()

	p, err := New()
	require.NoError(t, err)
	field, ok := p.(plugin.Configurable).ConfigSchema().Field("root_password")
	require.True(t, ok)
	assert.True(t, field.Secret)
	assert.True(t, field.Nullable)
}
