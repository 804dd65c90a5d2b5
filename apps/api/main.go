package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/sushiltimalsina/bemasathi/internal/buyer"
	"github.com/sushiltimalsina/bemasathi/internal/clock"
	"github.com/sushiltimalsina/bemasathi/internal/config"
	"github.com/sushiltimalsina/bemasathi/internal/impression"
	"github.com/sushiltimalsina/bemasathi/internal/logger"
	"github.com/sushiltimalsina/bemasathi/internal/matching"
	"github.com/sushiltimalsina/bemasathi/internal/migration"
	"github.com/sushiltimalsina/bemasathi/internal/notification"
	"github.com/sushiltimalsina/bemasathi/internal/observability"
	"github.com/sushiltimalsina/bemasathi/internal/payment"
	"github.com/sushiltimalsina/bemasathi/internal/policy"
	"github.com/sushiltimalsina/bemasathi/internal/pricing"
	"github.com/sushiltimalsina/bemasathi/internal/providers"
	"github.com/sushiltimalsina/bemasathi/internal/purchase"
	"github.com/sushiltimalsina/bemasathi/internal/renewal"
	"github.com/sushiltimalsina/bemasathi/internal/server"
	"github.com/sushiltimalsina/bemasathi/pkg/db"
	"github.com/sushiltimalsina/bemasathi/pkg/telemetry"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		telemetry.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		providers.Module,
		buyer.Module,
		policy.Module,
		pricing.Module,
		impression.Module,
		matching.Module,
		purchase.Module,
		renewal.Module,
		notification.Module,
		payment.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
