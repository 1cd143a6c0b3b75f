package capture

import (
	"image"

	"golang.org/x/image/draw"
)

// Frame is a fully rendered frame, valid only while a frame-end job runs.
type Frame interface {
	Size() Size
	ReadPixels() (*image.RGBA, error)
}

// Strategy acquires pixels for a capture at the frame-complete boundary.
type Strategy interface {
	// Resolution is the effective resolution before scaling.
	Resolution(f Frame, s Settings) Size
	// Acquire returns an image of exactly out pixels.
	Acquire(f Frame, out Size) (image.Image, error)
}

// Readback copies the frame that was just rendered.
type Readback struct{}

func (Readback) Resolution(f Frame, _ Settings) Size {
	return f.Size().AtLeastOne()
}

func (Readback) Acquire(f Frame, out Size) (image.Image, error) {
	src, err := f.ReadPixels()
	if err != nil {
		return nil, err
	}
	return resample(src, out), nil
}

// RenderTarget is an offscreen surface a camera can render into.
type RenderTarget interface {
	Size() Size
	ReadPixels() (*image.RGBA, error)
	Dispose()
}

// Camera renders the scene into its current target. A nil target means the
// camera draws to the screen.
type Camera interface {
	Target() RenderTarget
	SetTarget(RenderTarget)
	Render()
}

// CameraResolver returns the camera to capture from, or nil when the scene
// has none.
type CameraResolver func() Camera

// TargetAllocator creates render targets.
type TargetAllocator func(Size) RenderTarget

// Offscreen renders a camera into a cached render target. It is owned by a
// single Manager; nothing else may touch its target.
type Offscreen struct {
	alloc       TargetAllocator
	camera      CameraResolver
	target      RenderTarget
	allocations int
}

func NewOffscreen(alloc TargetAllocator, camera CameraResolver) *Offscreen {
	return &Offscreen{alloc: alloc, camera: camera}
}

func (o *Offscreen) Resolution(_ Frame, s Settings) Size {
	return s.TargetResolution
}

func (o *Offscreen) Acquire(_ Frame, out Size) (image.Image, error) {
	var cam Camera
	if o.camera != nil {
		cam = o.camera()
	}
	if cam == nil || o.alloc == nil {
		return nil, ErrNoCamera
	}

	target := o.renderTarget(out)
	previous := cam.Target()
	cam.SetTarget(target)
	defer cam.SetTarget(previous)
	cam.Render()

	img, err := target.ReadPixels()
	if err != nil {
		return nil, err
	}
	return resample(img, out), nil
}

// renderTarget reuses the cached target unless the size changed.
func (o *Offscreen) renderTarget(size Size) RenderTarget {
	if o.target != nil && o.target.Size() == size {
		return o.target
	}
	if o.target != nil {
		o.target.Dispose()
	}
	o.target = o.alloc(size)
	o.allocations++
	return o.target
}

// Allocations counts how many render targets have been created.
func (o *Offscreen) Allocations() int { return o.allocations }

// Close releases the cached render target.
func (o *Offscreen) Close() {
	if o.target != nil {
		o.target.Dispose()
		o.target = nil
	}
}

func resample(src *image.RGBA, out Size) image.Image {
	b := src.Bounds()
	if b.Dx() == out.Width && b.Dy() == out.Height {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, out.Width, out.Height))
	if b.Empty() {
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
