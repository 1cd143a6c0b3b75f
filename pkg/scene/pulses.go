// Package scene is a small animated demo game used as the capture source
// when no other game is hosted. It draws fading pulses and a label.
package scene

import (
	"bytes"
	"image/color"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/sudorandom/screenshot-automator/pkg/capture"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	ColorManual    = color.RGBA{0, 191, 255, 255}  // Sky Blue
	ColorAutomatic = color.RGBA{173, 255, 47, 255} // Lime Green
	ColorTriggered = color.RGBA{255, 255, 0, 255}  // Yellow
	ColorAmbient   = color.RGBA{255, 255, 255, 255}
	background     = color.RGBA{10, 12, 20, 255}
)

const pulseLifetime = 1500 * time.Millisecond

// Pulse positions are relative to the drawing surface so the scene renders
// the same at any resolution.
type Pulse struct {
	X, Y      float64
	StartTime time.Time
	Color     color.RGBA
	MaxRadius float64
}

type Field struct {
	name string
	now  func() time.Time

	mu     sync.Mutex
	pulses []*Pulse
	status string
	next   time.Time

	pulseImage *ebiten.Image
	fontSource *text.GoTextFaceSource
}

// NewField returns a scene called name.
func NewField(name string) *Field {
	f := &Field{name: name, now: time.Now, fontSource: loadFont(goregular.TTF)}
	f.initPulseTexture()
	return f
}

// loadFont parses a TTF. On failure it logs and returns nil, which turns
// off the labels.
func loadFont(ttf []byte) *text.GoTextFaceSource {
	s, err := text.NewGoTextFaceSource(bytes.NewReader(ttf))
	if err != nil {
		log.Printf("Error loading scene font, labels disabled: %v", err)
		return nil
	}
	return s
}

// Name is the scene name used in capture file names.
func (f *Field) Name() string { return f.name }

// SetStatus replaces the status line drawn under the scene name.
func (f *Field) SetStatus(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

// AddPulse adds a pulse at a random position. Safe from any goroutine.
func (f *Field) AddPulse(c color.RGBA, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pulses) >= 500 {
		return
	}
	radius := 0.02 + math.Log10(float64(count)+1.0)*0.04
	if radius > 0.25 {
		radius = 0.25
	}
	f.pulses = append(f.pulses, &Pulse{
		X:         0.1 + rand.Float64()*0.8,
		Y:         0.1 + rand.Float64()*0.8,
		StartTime: f.now(),
		Color:     c,
		MaxRadius: radius,
	})
}

func (f *Field) Update() error {
	now := f.now()
	if now.After(f.next) {
		f.next = now.Add(time.Duration(100+rand.Intn(300)) * time.Millisecond)
		f.AddPulse(ColorAmbient, rand.Intn(20))
	}

	f.mu.Lock()
	active := f.pulses[:0]
	for _, p := range f.pulses {
		if now.Sub(p.StartTime) < pulseLifetime {
			active = append(active, p)
		}
	}
	f.pulses = active
	f.mu.Unlock()
	return nil
}

func (f *Field) Draw(screen *ebiten.Image) {
	f.DrawTo(screen)
}

// DrawTo renders the scene scaled to dst. Offscreen cameras call this with
// their own target.
func (f *Field) DrawTo(dst *ebiten.Image) {
	dst.Fill(background)
	w, h := float64(dst.Bounds().Dx()), float64(dst.Bounds().Dy())
	unit := math.Min(w, h)

	f.mu.Lock()
	now := f.now()
	op := &ebiten.DrawImageOptions{}
	op.Blend = ebiten.BlendLighter
	imgW := f.pulseImage.Bounds().Dx()
	halfW := float64(imgW) / 2
	for _, p := range f.pulses {
		progress := now.Sub(p.StartTime).Seconds() / pulseLifetime.Seconds()
		if progress > 1.0 {
			continue
		}

		baseAlpha := 0.6
		if p.Color == ColorAmbient {
			baseAlpha = 0.25
		}

		scale := (3 + progress*p.MaxRadius*unit) / float64(imgW) * 2.0
		alpha := (1.0 - progress) * baseAlpha
		op.GeoM.Reset()
		op.GeoM.Translate(-halfW, -halfW)
		op.GeoM.Scale(scale, scale)
		op.GeoM.Translate(p.X*w, p.Y*h)
		r, g, b := float64(p.Color.R)/255.0, float64(p.Color.G)/255.0, float64(p.Color.B)/255.0
		op.ColorScale.Reset()
		op.ColorScale.Scale(float32(r*alpha), float32(g*alpha), float32(b*alpha), float32(alpha))
		dst.DrawImage(f.pulseImage, op)
	}
	status := f.status
	f.mu.Unlock()

	f.drawLabel(dst, unit, status)
}

func (f *Field) drawLabel(dst *ebiten.Image, unit float64, status string) {
	if f.fontSource == nil {
		return
	}
	fontSize := math.Max(12, unit/30)
	margin := fontSize * 2

	face := &text.GoTextFace{Source: f.fontSource, Size: fontSize * 1.5}
	top := &text.DrawOptions{}
	top.GeoM.Translate(margin, margin)
	top.ColorScale.Scale(1, 1, 1, 0.9)
	text.Draw(dst, f.name, face, top)

	if status == "" {
		return
	}
	small := &text.GoTextFace{Source: f.fontSource, Size: fontSize}
	sop := &text.DrawOptions{}
	sop.GeoM.Translate(margin, margin+fontSize*2.2)
	sop.ColorScale.Scale(1, 1, 1, 0.6)
	text.Draw(dst, status, small, sop)
}

// Layout follows the window so a resized window renders at its new size.
func (f *Field) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// ActivePulses reports how many pulses are still animating.
func (f *Field) ActivePulses() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pulses)
}

func (f *Field) initPulseTexture() {
	size := 128
	f.pulseImage = ebiten.NewImage(size, size)
	f.pulseImage.WritePixels(ringPixels(size))
}

// ringPixels draws a soft white ring into an RGBA buffer of size*size.
func ringPixels(size int) []byte {
	pixels := make([]byte, size*size*4)
	center, maxDist := float64(size)/2.0, float64(size)/2.0
	outer, inner := 0.9, 0.8
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)-center, float64(y)-center
			dist := math.Sqrt(dx*dx + dy*dy)
			if dist >= maxDist {
				continue
			}
			val := 0.0
			if dist > maxDist*outer {
				val = math.Cos(((dist - maxDist*(outer+((1-outer)/2))) / (maxDist * ((1 - outer) / 2))) * (math.Pi / 2))
			} else if dist > maxDist*inner {
				val = math.Sin(((dist - maxDist*inner) / (maxDist * (outer - inner))) * (math.Pi / 2))
			}
			i := (y*size + x) * 4
			pixels[i+3] = uint8(math.Max(0, val) * 255)
			pixels[i+0], pixels[i+1], pixels[i+2] = 255, 255, 255
		}
	}
	return pixels
}

// KindColor picks the pulse color announcing a capture of the given kind.
func KindColor(kind capture.TriggerKind) color.RGBA {
	switch kind {
	case capture.Manual:
		return ColorManual
	case capture.Automatic:
		return ColorAutomatic
	default:
		return ColorTriggered
	}
}
