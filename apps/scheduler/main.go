package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/karat/internal/alert"
	"github.com/smallbiznis/karat/internal/audit"
	"github.com/smallbiznis/karat/internal/cache"
	"github.com/smallbiznis/karat/internal/catalog"
	"github.com/smallbiznis/karat/internal/clock"
	"github.com/smallbiznis/karat/internal/config"
	"github.com/smallbiznis/karat/internal/material"
	"github.com/smallbiznis/karat/internal/observability"
	"github.com/smallbiznis/karat/internal/pricing"
	"github.com/smallbiznis/karat/internal/providers"
	"github.com/smallbiznis/karat/internal/rate"
	"github.com/smallbiznis/karat/internal/ratelimit"
	"github.com/smallbiznis/karat/internal/scheduler"
	"github.com/smallbiznis/karat/internal/supplier"
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

		scheduler.Module,

		// Domain services required by scheduler
		cache.Module,
		providers.Module,
		ratelimit.Module,
		audit.Module,
		supplier.Module,
		material.Module,
		rate.Module,

		// Transitive dependencies (alerts price products)
		catalog.Module,
		pricing.Module,
		alert.Module,

		// No server module!
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
