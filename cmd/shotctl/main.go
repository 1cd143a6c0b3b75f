package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sudorandom/screenshot-automator/pkg/capture"
	"github.com/sudorandom/screenshot-automator/pkg/remote"
)

var cli struct {
	URL      string        `help:"Remote capture endpoint." default:"ws://127.0.0.1:7878/capture"`
	Kind     string        `help:"Capture kind to request." default:"Triggered" enum:"Manual,Automatic,Triggered"`
	Count    int           `help:"Number of captures to request." default:"1"`
	Interval time.Duration `help:"Pause between captures." default:"1s"`
	Timeout  time.Duration `help:"How long to wait for the session to come up (0 for infinite)." default:"30s"`
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	kctx := kong.Parse(&cli,
		kong.Name("shotctl"),
		kong.Description("Request captures from a running shotauto session."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(run())
}

func run() error {
	kind, err := capture.ParseTriggerKind(cli.Kind)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dialCtx := ctx
	if cli.Timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cli.Timeout)
		defer cancel()
	}

	log.Printf("Connecting to %s", cli.URL)
	c, err := remote.DialRetry(dialCtx, cli.URL, 5*time.Second)
	if err != nil {
		return err
	}
	defer func() {
		_ = c.Close()
	}()

	failed := 0
	for i := 0; i < cli.Count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				log.Println("Exiting...")
				return nil
			case <-time.After(cli.Interval):
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, time.Minute)
		resp, err := c.Capture(reqCtx, kind)
		cancel()
		if err != nil {
			return err
		}
		switch {
		case resp.NoOp:
			fmt.Printf("%s: nothing to capture\n", resp.Kind)
		case resp.Busy:
			fmt.Printf("%s: dropped, another capture is running\n", resp.Kind)
		case resp.Error != "":
			failed++
			fmt.Printf("%s: error: %s\n", resp.Kind, resp.Error)
		default:
			fmt.Println(resp.Path)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d captures failed", failed, cli.Count)
	}
	return nil
}
