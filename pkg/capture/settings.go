package capture

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Size is a pixel resolution.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// Scale multiplies both dimensions and rounds to the nearest pixel.
func (s Size) Scale(factor float64) Size {
	return Size{
		Width:  int(math.Round(float64(s.Width) * factor)),
		Height: int(math.Round(float64(s.Height) * factor)),
	}
}

// AtLeastOne clamps both dimensions to a minimum of 1.
func (s Size) AtLeastOne() Size {
	return Size{Width: max(s.Width, 1), Height: max(s.Height, 1)}
}

// Format is the encoding used for capture files.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// Ext returns the file extension including the leading dot.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return ".png"
}

// Limits accepted for settings values.
const (
	MinResolutionScale = 1.0
	MaxResolutionScale = 50.0
	MaxAutomaticPeriod = 60 * time.Second
	MinFilesKept       = 1
	MaxFilesKept       = 50
	DefaultOutputDir   = "Screenshots"
)

// Settings configure one capture request. They are read once per request so
// changes take effect on the next capture.
type Settings struct {
	Method                  Method
	ResolutionScale         float64
	TargetResolution        Size
	MaxFilesBeforeOverwrite int
	TriggerKeys             []string
	// AutomaticPeriod of zero disables periodic captures.
	AutomaticPeriod  time.Duration
	ResizeHostWindow bool

	OutputDir    string
	Format       Format
	JPEGQuality  int
	ShutterSound string
}

// DefaultSettings mirrors the defaults shipped with the settings file.
func DefaultSettings() Settings {
	return Settings{
		Method:                  FramebufferReadback,
		ResolutionScale:         1,
		TargetResolution:        Size{Width: 1920, Height: 1080},
		MaxFilesBeforeOverwrite: 5,
		TriggerKeys:             []string{"J"},
		AutomaticPeriod:         10 * time.Second,
		OutputDir:               DefaultOutputDir,
		Format:                  FormatPNG,
		JPEGQuality:             90,
	}
}

// Validate rejects settings a capture cannot be attempted with.
func (s Settings) Validate() error {
	var problems []string
	if s.Method != FramebufferReadback && s.Method != OffscreenRender {
		problems = append(problems, fmt.Sprintf("unknown method %v", s.Method))
	}
	if s.TargetResolution.Width <= 0 || s.TargetResolution.Height <= 0 {
		problems = append(problems, fmt.Sprintf("target resolution %v must be positive", s.TargetResolution))
	}
	if s.ResolutionScale < MinResolutionScale || s.ResolutionScale > MaxResolutionScale {
		problems = append(problems, fmt.Sprintf("resolution scale %v outside [%v, %v]", s.ResolutionScale, MinResolutionScale, MaxResolutionScale))
	}
	if s.MaxFilesBeforeOverwrite < MinFilesKept || s.MaxFilesBeforeOverwrite > MaxFilesKept {
		problems = append(problems, fmt.Sprintf("max files %d outside [%d, %d]", s.MaxFilesBeforeOverwrite, MinFilesKept, MaxFilesKept))
	}
	if s.AutomaticPeriod < 0 || s.AutomaticPeriod > MaxAutomaticPeriod {
		problems = append(problems, fmt.Sprintf("automatic period %v outside [0s, %v]", s.AutomaticPeriod, MaxAutomaticPeriod))
	}
	switch s.Format {
	case FormatPNG, "":
	case FormatJPEG:
		if s.JPEGQuality < 1 || s.JPEGQuality > 100 {
			problems = append(problems, fmt.Sprintf("jpeg quality %d outside [1, 100]", s.JPEGQuality))
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown format %q", s.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(problems, "; "))
	}
	return nil
}

// SettingsSource hands out the settings in effect for the next request.
type SettingsSource interface {
	Settings() Settings
}

// StaticSettings is a SettingsSource that never changes.
type StaticSettings Settings

func (s StaticSettings) Settings() Settings { return Settings(s) }
