// Package mongodb bundles a MongoDB database service.
package mongodb

import (
	"strconv"
	"time"

	"github.com/felixgeelhaar/berth/internal/domain/plugin"
	"github.com/felixgeelhaar/berth/internal/domain/service"
)

// ID is the factory identifier of the plugin.
const ID = "mongodb"

const (
	rootUser     = "root"
	internalPort = 27017
)

func init() {
	plugin.RegisterFactory(ID, New)
}

// Plugin provides the mongodb service.
type Plugin struct {
	plugin.Base
}

// New creates the plugin.
func New() (plugin.Plugin, error) {
	return &Plugin{Base: plugin.Base{
		Name:        "mongodb",
		Version:     "1.0.0",
		Description: "MongoDB document database",
	}}, nil
}

// ConfigSchema declares the image version, port and root password.
func (p *Plugin) ConfigSchema() *plugin.Schema {
	return plugin.NewSchema().
		String("version", "7", plugin.Label("Image tag")).
		Integer("port", 27017, plugin.Min(1), plugin.Max(65535)).
		String("root_password", nil, plugin.Nullable(), plugin.Secret(), plugin.Describe("Enables authentication when set"))
}

// Services returns the database container.
func (p *Plugin) Services(cfg plugin.Config) []service.Definition {
	env := map[string]string{}
	if password := cfg.String("root_password"); password != "" {
		env["MONGO_INITDB_ROOT_USERNAME"] = rootUser
		env["MONGO_INITDB_ROOT_PASSWORD"] = password
	}
	return []service.Definition{{
		Name:          "mongodb",
		Template:      "mongodb.yaml.tmpl",
		DisplayName:   "MongoDB",
		Description:   "Document database",
		Ports:         []int{cfg.Int("port")},
		InternalPorts: []int{27017},
		Version:       cfg.String("version"),
		Environment:   env,
		HealthCheck: &service.HealthCheck{
			Test:     []string{"CMD", "mongosh", "--quiet", "--eval", "db.adminCommand('ping')"},
			Interval: 5 * time.Second,
			Timeout:  5 * time.Second,
			Retries:  12,
			Probe:    "tcp",
		},
		Dump:    service.NewCommandTemplate("mongodb.dump", dumpCommand),
		Restore: service.NewCommandTemplate("mongodb.restore", restoreCommand),
		Shell:   service.NewCommandTemplate("mongodb.shell", shellCommand),
	}}
}

func authArgs(cfg service.Config) []string {
	password := cfg.Environment["MONGO_INITDB_ROOT_PASSWORD"]
	if password == "" {
		return nil
	}
	return []string{
		"--username", cfg.Environment["MONGO_INITDB_ROOT_USERNAME"],
		"--password", password,
		"--authenticationDatabase", "admin",
	}
}

func dumpCommand(cfg service.Config) []string {
	return append([]string{"mongodump", "--archive", "--gzip"}, authArgs(cfg)...)
}

func restoreCommand(cfg service.Config) []string {
	return append([]string{"mongorestore", "--archive", "--gzip", "--drop"}, authArgs(cfg)...)
}

func shellCommand(cfg service.Config) []string {
	args := []string{"mongosh", "--port", strconv.Itoa(internalPort)}
	return append(args, authArgs(cfg)...)
}
