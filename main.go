package main

import (
	"embed"

	"github.com/joho/godotenv"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"herelaw/internal/logger"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	// A .env next to the binary is a convenience for development;
	// missing is fine.
	_ = godotenv.Load()

	log := logger.New()

	app := NewApp(log)

	err := wails.Run(&options.App{
		Title:  "Herelaw",
		Width:  1100,
		Height: 780,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup: app.startup,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		log.WithError(err).Fatal("application failed")
	}
}
