package main

import (
	"embed"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/chazu/smoothvox/pkg/config"
)

//go:embed all:frontend/dist
var assets embed.FS

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "smoothvox.toml"
	}
	return filepath.Join(dir, "smoothvox", "config.toml")
}

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to the TOML settings file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading settings: %v", err)
	}
	app, err := NewAppWithConfig(cfg)
	if err != nil {
		log.Fatalf("starting: %v", err)
	}

	err = wails.Run(&options.App{
		Title:  "smoothvox",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		log.Fatalf("wails: %v", err)
	}
}
