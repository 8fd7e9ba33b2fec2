package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/framehaus/callsheet/internal/audit"
	"github.com/framehaus/callsheet/internal/billing"
	"github.com/framehaus/callsheet/internal/client"
	"github.com/framehaus/callsheet/internal/config"
	"github.com/framehaus/callsheet/internal/logger"
	"github.com/framehaus/callsheet/internal/member"
	"github.com/framehaus/callsheet/internal/migration"
	"github.com/framehaus/callsheet/internal/organization"
	"github.com/framehaus/callsheet/internal/production"
	"github.com/framehaus/callsheet/internal/server"
	"github.com/framehaus/callsheet/internal/signup"
	"github.com/framehaus/callsheet/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		migration.Module,

		// Functional domains
		organization.Module,
		production.Module,
		billing.Module,
		client.Module,
		member.Module,
		signup.Module,
		audit.Module,

		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
