package main

import (
	"log"
	"os"

	"github.com/alecthomas/kong"
	_ "github.com/silbinarywolf/preferdiscretegpu"
	"github.com/sudorandom/screenshot-automator/pkg/config"
)

// Globals are shared by every command.
type Globals struct {
	Config string `help:"Settings file." default:"${config_path}" type:"path" short:"c"`
}

type CLI struct {
	Globals

	Run  RunCmd  `cmd:"" default:"withargs" help:"Run the capture session (default)."`
	Init InitCmd `cmd:"" help:"Write a settings file with the default values."`
	List ListCmd `cmd:"" help:"List recorded captures."`
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("shotauto"),
		kong.Description("Automatic, manual and remote-triggered screenshots with rotating retention."),
		kong.UsageOnError(),
		kong.Vars{"config_path": config.DefaultPath},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
