// Package host runs a game under ebiten and connects it to a capture
// manager: it drives the trigger watchers from Update and hands each
// finished frame to the capture frame queue from Draw.
package host

import (
	"context"
	"image"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/sudorandom/screenshot-automator/pkg/capture"
	"github.com/sudorandom/screenshot-automator/pkg/trigger"
)

// Host wraps a game. It implements ebiten.Game.
type Host struct {
	ctx      context.Context
	game     ebiten.Game
	frames   *capture.FrameQueue
	watchers *trigger.Watchers[ebiten.Key]
	pressed  func(ebiten.Key) bool
	now      func() time.Time
	last     time.Time
}

// New returns a Host. Update reports ebiten.Termination once ctx is done.
func New(ctx context.Context, game ebiten.Game, frames *capture.FrameQueue, watchers *trigger.Watchers[ebiten.Key]) *Host {
	return &Host{
		ctx:      ctx,
		game:     game,
		frames:   frames,
		watchers: watchers,
		pressed:  ebiten.IsKeyPressed,
		now:      time.Now,
	}
}

func (h *Host) Update() error {
	select {
	case <-h.ctx.Done():
		return ebiten.Termination
	default:
	}

	now := h.now()
	var dt time.Duration
	if !h.last.IsZero() {
		dt = now.Sub(h.last)
	}
	h.last = now

	if h.watchers != nil {
		h.watchers.Tick(dt, h.pressed)
	}
	return h.game.Update()
}

func (h *Host) Draw(screen *ebiten.Image) {
	h.game.Draw(screen)
	// The frame is complete once the game has drawn it.
	h.frames.RunFrameEnd(screenFrame{img: screen})
}

func (h *Host) Layout(outsideWidth, outsideHeight int) (int, int) {
	return h.game.Layout(outsideWidth, outsideHeight)
}

type screenFrame struct {
	img *ebiten.Image
}

func (f screenFrame) Size() capture.Size {
	b := f.img.Bounds()
	return capture.Size{Width: b.Dx(), Height: b.Dy()}
}

func (f screenFrame) ReadPixels() (*image.RGBA, error) {
	return readPixels(f.img), nil
}

func readPixels(img *ebiten.Image) *image.RGBA {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	img.ReadPixels(rgba.Pix)
	return rgba
}
