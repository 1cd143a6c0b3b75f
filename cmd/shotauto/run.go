package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/sudorandom/screenshot-automator/pkg/capture"
	"github.com/sudorandom/screenshot-automator/pkg/catalog"
	"github.com/sudorandom/screenshot-automator/pkg/config"
	"github.com/sudorandom/screenshot-automator/pkg/host"
	"github.com/sudorandom/screenshot-automator/pkg/remote"
	"github.com/sudorandom/screenshot-automator/pkg/scene"
	"github.com/sudorandom/screenshot-automator/pkg/shutter"
	"github.com/sudorandom/screenshot-automator/pkg/trigger"
)

type RunCmd struct {
	Scene    string `help:"Scene name used in capture file names." default:"PulseField"`
	Width    int    `help:"Initial window width." default:"1280"`
	Height   int    `help:"Initial window height." default:"720"`
	TPS      int    `help:"Ticks per second (game updates)." default:"60"`
	Listen   string `help:"Address for remote capture requests, empty disables." default:"127.0.0.1:7878"`
	Catalog  string `help:"Capture catalog directory, empty keeps it in memory." default:".screenshots.db"`
	Headless bool   `help:"Run without resizing the window (Xvfb rendering active)."`
	NoWatch  bool   `help:"Do not reload the settings file when it changes."`
}

func (r *RunCmd) Run(g *Globals) error {
	store, err := config.NewStore(g.Config)
	if err != nil {
		return err
	}
	settings := store.Settings()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Open(r.Catalog)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer func() {
		if err := cat.Close(); err != nil {
			log.Printf("Error closing catalog: %v", err)
		}
	}()

	field := scene.NewField(r.Scene)
	camera := host.NewCamera(field.DrawTo)
	frames := capture.NewFrameQueue()

	var window capture.WindowSizeController = host.Window{}
	if r.Headless {
		log.Println("Running in HEADLESS mode, window resizing disabled.")
		window = capture.NoopWindow{}
	}

	mgr, err := capture.NewManager(capture.Options{
		Settings: store,
		Frames:   frames,
		Window:   window,
		Camera:   func() capture.Camera { return camera },
		Targets:  host.NewTarget,
		Scene:    field.Name,
		Recorder: cat,
	})
	if err != nil {
		return err
	}
	defer mgr.Close()

	dispatcher := trigger.NewDispatcher(ctx, mgr)
	defer dispatcher.Close()

	keys, err := host.ParseKeys(settings.TriggerKeys)
	if err != nil {
		return fmt.Errorf("manual_key_strokes: %w", err)
	}
	watchers := trigger.NewWatchers(dispatcher, keys, func() time.Duration {
		return store.Settings().AutomaticPeriod
	})

	var sound atomic.Pointer[shutter.Shutter]
	sound.Store(loadShutter(settings.ShutterSound))

	dispatcher.OnOutcome(trigger.LogOutcome)
	dispatcher.OnOutcome(func(o trigger.Outcome) {
		if o.Err != nil {
			return
		}
		field.AddPulse(scene.KindColor(o.Kind), 40)
		field.SetStatus(fmt.Sprintf("%s: %s", o.Kind, filepath.Base(o.Path)))
		if s := sound.Load(); s != nil {
			s.Play()
		}
	})

	store.OnChange(func(s capture.Settings) {
		keys, err := host.ParseKeys(s.TriggerKeys)
		if err != nil {
			log.Printf("Keeping previous capture keys: %v", err)
		} else {
			watchers.SetKeys(keys)
		}
		sound.Store(loadShutter(s.ShutterSound))
	})

	if !r.NoWatch {
		go func() {
			if err := store.Watch(ctx); err != nil {
				log.Printf("Settings watcher stopped: %v", err)
			}
		}()
	}

	if r.Listen != "" {
		srv := remote.NewServer(dispatcher)
		go func() {
			if err := srv.ListenAndServe(ctx, r.Listen); err != nil {
				log.Printf("Remote capture server failed: %v", err)
			}
		}()
	}

	log.Printf("Capturing with %s into %s (automatic every %v, manual keys %v)",
		settings.Method, settings.OutputDir, settings.AutomaticPeriod, settings.TriggerKeys)

	ebiten.SetTPS(r.TPS)
	ebiten.SetWindowSize(r.Width, r.Height)
	ebiten.SetWindowTitle("Screenshot Automator - " + r.Scene)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(host.New(ctx, field, frames, watchers))
}

func loadShutter(path string) *shutter.Shutter {
	if path == "" {
		return nil
	}
	s, err := shutter.Load(path)
	if err != nil {
		log.Printf("Shutter sound disabled: %v", err)
		return nil
	}
	return s
}
