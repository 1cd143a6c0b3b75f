package host

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/sudorandom/screenshot-automator/pkg/capture"
)

// Target is an offscreen ebiten image used as a capture render target.
type Target struct {
	img  *ebiten.Image
	size capture.Size
}

// NewTarget allocates a target. It satisfies capture.TargetAllocator.
func NewTarget(size capture.Size) capture.RenderTarget {
	size = size.AtLeastOne()
	return &Target{img: ebiten.NewImage(size.Width, size.Height), size: size}
}

func (t *Target) Size() capture.Size { return t.size }

func (t *Target) Image() *ebiten.Image { return t.img }

func (t *Target) ReadPixels() (*image.RGBA, error) {
	return readPixels(t.img), nil
}

func (t *Target) Dispose() {
	t.img.Deallocate()
}

// Camera draws a scene into its target, or nowhere when it has none; the
// screen is drawn by the game itself.
type Camera struct {
	draw   func(dst *ebiten.Image)
	target capture.RenderTarget
}

func NewCamera(draw func(dst *ebiten.Image)) *Camera {
	return &Camera{draw: draw}
}

func (c *Camera) Target() capture.RenderTarget { return c.target }

func (c *Camera) SetTarget(t capture.RenderTarget) { c.target = t }

func (c *Camera) Render() {
	t, ok := c.target.(*Target)
	if !ok || t == nil {
		return
	}
	t.img.Clear()
	c.draw(t.img)
}

// Window resizes the desktop window.
type Window struct{}

func (Window) Size() capture.Size {
	w, h := ebiten.WindowSize()
	return capture.Size{Width: w, Height: h}
}

func (Window) SetSize(s capture.Size) {
	ebiten.SetWindowSize(s.Width, s.Height)
}
