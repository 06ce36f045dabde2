package main

import (
	"log"

	corecmd "github.com/m3rciful/regbot/core/cmd"
	"github.com/m3rciful/regbot/internal/app"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        app.LoadConfigCarrier,
		Bootstrap:         app.Bootstrap,
	})
	if err != nil {
		log.Fatalf("regbot: %v", err)
	}
}
