package main

import (
	"os"

	_ "embed"

	config "github.com/pressflow/pacer/pkg/coordinator/core/config"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/logger"

	"go.uber.org/fx"
)

//go:embed resources/application.yaml
var embeddedConfig []byte

func main() {
	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	app := fx.New(GetApplicationOptions(envFilePath, config.EmbeddedConfig(embeddedConfig))...)
	app.Run()
	if app.Err() != nil {
		logger.Fatalf("Application run failed: %v", app.Err())
	}
}
