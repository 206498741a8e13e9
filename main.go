package main

import (
	"embed"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"go.uber.org/zap"

	"github.com/chazu/cathedral/internal/config"
)

//go:embed all:frontend/dist
var assets embed.FS

// configPath returns the settings file, overridable with CATHEDRAL_CONFIG.
func configPath() string {
	if p := os.Getenv("CATHEDRAL_CONFIG"); p != "" {
		return p
	}
	return "cathedral.yaml"
}

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	settings, err := config.Load(configPath())
	if err != nil {
		log.Fatal("loading config", zap.Error(err))
	}
	if err := settings.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	app := NewApp(log, settings)

	err = wails.Run(&options.App{
		Title:  "Cathedral of Circuits",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup: app.startup,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		log.Fatal("wails run failed", zap.Error(err))
	}
}
