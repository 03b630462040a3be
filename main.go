package main

import (
	"log/slog"
	"os"

	"bmp2goose/convert"
	"bmp2goose/goose"
	"bmp2goose/inspect"
	"bmp2goose/preview"

	"github.com/alecthomas/kong"
)

type cli struct {
	Workers  int    `help:"Rows rendered concurrently per file, 0 for one per CPU" default:"0"`
	LogLevel string `help:"Minimum log level" enum:"debug,info,warn,error" default:"info"`

	Convert convert.CLICmd `cmd:"" help:"Convert bitmaps into platform documents"`
	Preview preview.CLICmd `cmd:"" help:"Render a bitmap as the level will look"`
	Inspect inspect.CLICmd `cmd:"" help:"Print the layout of bitmaps"`
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("bmp2goose"),
		kong.Description("Turns 24-bit bitmaps into level editor platforms, one per pixel."),
		kong.UsageOnError(),
	)

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		kctx.FatalIfErrorf(err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Debug("running", "command", kctx.Command(), "workers", c.Workers)
	err := kctx.Run(goose.Options{Workers: c.Workers})
	kctx.FatalIfErrorf(err)
}
