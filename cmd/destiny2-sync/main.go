package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/mythosaz/destiny2-ha/internal/logger"
	"github.com/mythosaz/destiny2-ha/syncservice"
)

func main() {
	// Optional build-target flag override (local | cloud)
	buildTarget := flag.String("build-target", "", "Override BUILD_TARGET (local, cloud)")
	envFile := flag.String("env-file", "", "Load environment variables from this file before starting")
	flag.Parse()

	log := logger.New("destiny2-sync")

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatal().Err(err).Str("file", *envFile).Msg("Failed to load env file")
		}
	} else {
		// A local .env is optional.
		_ = godotenv.Load()
	}

	if *buildTarget != "" {
		if err := os.Setenv("DESTINY2_BUILD_TARGET", *buildTarget); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply build-target override")
		}
	}

	if err := syncservice.Run(); err != nil {
		log.Fatal().Err(err).Msg("Service exited with error")
	}
}
