package main

import (
	"context"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"lenslingua/internal/app"
	"lenslingua/internal/config"
	"lenslingua/internal/logging"
)

func main() {
	c := &cli{newApp: openApp, readPassword: promptPassword}
	root := newRootCmd(c)
	if err := root.Execute(); err != nil {
		f := app.Classify(err)
		if f.Kind == app.KindInternal {
			f.Message = err.Error()
		}
		if c.jsonOutput {
			_ = printJSON(os.Stdout, f)
		} else {
			color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, "Error: "+f.Message)
		}
		os.Exit(1)
	}
}

func openApp(ctx context.Context) (*app.App, error) {
	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	return app.New(ctx, cfg)
}
