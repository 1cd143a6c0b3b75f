// Package config loads capture settings from a TOML file and keeps them
// current while the file changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/sudorandom/screenshot-automator/pkg/capture"
)

// DefaultPath is where the settings file is looked up when none is given.
const DefaultPath = "screenshots.toml"

// File is the on-disk layout of the settings file.
type File struct {
	// Method is "FramebufferReadback" or "OffscreenRender".
	Method string `toml:"method" comment:"FramebufferReadback or OffscreenRender"`
	// ResolutionScalingFactor is applied to the captured resolution (1-50).
	ResolutionScalingFactor float64 `toml:"resolution_scaling_factor" comment:"Scaling factor applied to the capture resolution (1-50)"`
	// DesiredResolution is used by OffscreenRender and by window resizing.
	DesiredResolution Resolution `toml:"desired_resolution" comment:"Resolution for offscreen captures and window resizing"`
	// ManualKeyStrokes must all be held to take a manual capture.
	ManualKeyStrokes []string `toml:"manual_key_strokes" comment:"Keys that must be held together to take a manual capture"`
	// AutomaticPeriod is in seconds (0-60), 0 disables automatic captures.
	AutomaticPeriod float64 `toml:"automatic_period" comment:"Seconds between automatic captures (0-60, 0 disables)"`
	// MaxScreenshotsTillOverwrite caps rotating capture directories (1-50).
	MaxScreenshotsTillOverwrite int `toml:"max_screenshots_till_overwrite" comment:"Captures kept per rotating kind before overwriting (1-50)"`
	// AttemptToResizeGameWindow resizes the window for FramebufferReadback.
	AttemptToResizeGameWindow bool `toml:"attempt_to_resize_game_window" comment:"Resize the game window to desired_resolution for FramebufferReadback"`

	OutputDir    string `toml:"output_dir" comment:"Root directory for captures"`
	Format       string `toml:"format" comment:"png or jpeg"`
	JPEGQuality  int    `toml:"jpeg_quality" comment:"JPEG quality (1-100)"`
	ShutterSound string `toml:"shutter_sound" comment:"MP3 played after each capture, empty disables"`
}

// Resolution is a width and height in pixels.
type Resolution struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// Default returns the file written by `shotauto init`.
func Default() File {
	return FromSettings(capture.DefaultSettings())
}

// FromSettings converts settings to their file form.
func FromSettings(s capture.Settings) File {
	return File{
		Method:                      s.Method.String(),
		ResolutionScalingFactor:     s.ResolutionScale,
		DesiredResolution:           Resolution{Width: s.TargetResolution.Width, Height: s.TargetResolution.Height},
		ManualKeyStrokes:            append([]string(nil), s.TriggerKeys...),
		AutomaticPeriod:             s.AutomaticPeriod.Seconds(),
		MaxScreenshotsTillOverwrite: s.MaxFilesBeforeOverwrite,
		AttemptToResizeGameWindow:   s.ResizeHostWindow,
		OutputDir:                   s.OutputDir,
		Format:                      string(s.Format),
		JPEGQuality:                 s.JPEGQuality,
		ShutterSound:                s.ShutterSound,
	}
}

// Settings converts the file form to validated capture settings.
func (f File) Settings() (capture.Settings, error) {
	method, err := capture.ParseMethod(f.Method)
	if err != nil {
		return capture.Settings{}, err
	}
	s := capture.Settings{
		Method:                  method,
		ResolutionScale:         f.ResolutionScalingFactor,
		TargetResolution:        capture.Size{Width: f.DesiredResolution.Width, Height: f.DesiredResolution.Height},
		MaxFilesBeforeOverwrite: f.MaxScreenshotsTillOverwrite,
		TriggerKeys:             append([]string(nil), f.ManualKeyStrokes...),
		AutomaticPeriod:         time.Duration(f.AutomaticPeriod * float64(time.Second)),
		ResizeHostWindow:        f.AttemptToResizeGameWindow,
		OutputDir:               f.OutputDir,
		Format:                  capture.Format(f.Format),
		JPEGQuality:             f.JPEGQuality,
		ShutterSound:            f.ShutterSound,
	}
	if s.OutputDir == "" {
		s.OutputDir = capture.DefaultOutputDir
	}
	if s.Format == "" {
		s.Format = capture.FormatPNG
	}
	if err := s.Validate(); err != nil {
		return capture.Settings{}, err
	}
	return s, nil
}

// Parse decodes a settings file. Keys missing from data keep their defaults.
func Parse(data []byte) (capture.Settings, error) {
	f := Default()
	if err := toml.Unmarshal(data, &f); err != nil {
		return capture.Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	return f.Settings()
}

// Load reads and parses the settings file at path.
func Load(path string) (capture.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return capture.Settings{}, err
	}
	s, err := Parse(data)
	if err != nil {
		return capture.Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// LoadOrDefault loads path, falling back to defaults when it does not exist.
func LoadOrDefault(path string) (capture.Settings, error) {
	s, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return capture.DefaultSettings(), nil
	}
	return s, err
}

// Save writes f to path through a temp file and rename.
func Save(path string, f File) error {
	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
