package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/sushiltimalsina/bemasathi/internal/buyer"
	"github.com/sushiltimalsina/bemasathi/internal/clock"
	"github.com/sushiltimalsina/bemasathi/internal/config"
	"github.com/sushiltimalsina/bemasathi/internal/logger"
	"github.com/sushiltimalsina/bemasathi/internal/migration"
	"github.com/sushiltimalsina/bemasathi/internal/notification"
	"github.com/sushiltimalsina/bemasathi/internal/observability"
	"github.com/sushiltimalsina/bemasathi/internal/providers"
	"github.com/sushiltimalsina/bemasathi/internal/scheduler"
	"github.com/sushiltimalsina/bemasathi/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		providers.Module,
		buyer.Module,
		notification.Module,

		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
