package config

import (
	"github.com/sushiltimalsina/bemasathi/pkg/db"
	"go.uber.org/fx"
)

// DatabaseConfig maps the env-loaded application config onto the
// connection settings pkg/db consumes.
func DatabaseConfig(cfg Config) db.Config {
	return db.Config{
		Type:            cfg.DBType,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		SSLMode:         cfg.DBSSLMode,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	}
}

// Module wires application and engine configuration.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		DatabaseConfig,
		NewEngineConfigHolder,
	),
)
