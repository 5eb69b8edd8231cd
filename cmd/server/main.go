package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"merlo/server/internal/app"
	"merlo/server/internal/input"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to the config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := app.Options{
		ConfigPath: configPath,
		Keyboard:   input.NewStateKeyboard(),
		Gamepad:    input.NewStateGamepad(),
		Mouse:      input.NewStateMouse(),
	}
	if err := app.Run(ctx, opts); err != nil && ctx.Err() == nil {
		log.Fatalf("%v", err)
	}
}
