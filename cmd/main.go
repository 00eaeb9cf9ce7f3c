// Package bureauapi provides the API to manage users, till accounts and
// currency exchange transactions.
package main

import (
	"github.com/rs/zerolog/log"

	"github.com/caribfx/bureau/cmd/httpserver"
	"github.com/caribfx/bureau/internal/middleware"
	"github.com/caribfx/bureau/pkg/configpkg"
	"github.com/caribfx/bureau/pkg/dbpkg"

	_ "github.com/lib/pq"
)

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to database")
	}

	server, err := httpserver.New(db, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	logger.Info().Msg("BUREAU API SERVER HAS STARTED")

	err = server.Engine.Run(config.ServerAddress)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot start server")
	}
}
