// Command migrate applies or rolls back the embedded schema migrations.
//
//	migrate up
//	migrate down
package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/congo-pay/onboarding/internal/infra"
	"github.com/congo-pay/onboarding/internal/logging"
)

func main() {
	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}
	if direction != "up" && direction != "down" {
		fmt.Fprintf(os.Stderr, "usage: %s [up|down]\n", os.Args[0])
		os.Exit(2)
	}

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()
	v.AutomaticEnv()
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	logger := logging.New(v.GetString("LOG_LEVEL"), v.GetString("LOG_FORMAT"))
	url := v.GetString("DATABASE_URL")
	if url == "" {
		logger.Error("DATABASE_URL must be set")
		os.Exit(1)
	}

	if err := infra.Migrate(url, direction == "up", logger); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}
