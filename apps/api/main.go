package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/karat/internal/clock"
	"github.com/smallbiznis/karat/internal/config"
	"github.com/smallbiznis/karat/internal/migration"
	"github.com/smallbiznis/karat/internal/observability"
	"github.com/smallbiznis/karat/internal/server"
	"github.com/smallbiznis/karat/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// HTTP surface with every domain service; rate refresh and alert
		// evaluation run in apps/scheduler.
		server.Module,
		migration.Module,
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
