package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// WindowSizeController reads and changes the host window size.
type WindowSizeController interface {
	Size() Size
	SetSize(Size)
}

// NoopWindow is used when the host cannot resize its window.
type NoopWindow struct{}

func (NoopWindow) Size() Size { return Size{} }
func (NoopWindow) SetSize(Size) {}

// Entry describes a capture written to disk.
type Entry struct {
	Path       string      `json:"path"`
	Kind       TriggerKind `json:"kind"`
	Index      int         `json:"index"`
	Scene      string      `json:"scene"`
	Size       Size        `json:"size"`
	Method     Method      `json:"method"`
	CapturedAt time.Time   `json:"captured_at"`
}

// Recorder keeps an index of written captures. Failures are logged and never
// fail a capture.
type Recorder interface {
	Record(Entry) error
	Forget(path string) error
}

// Options configure a Manager. Settings and Frames are required.
type Options struct {
	Settings SettingsSource
	Frames   FrameScheduler
	Window   WindowSizeController
	Camera   CameraResolver
	Targets  TargetAllocator
	Scene    func() string
	Fs       afero.Fs
	Clock    func() time.Time
	Recorder Recorder
	// ResizeSettleFrames bounds how many frames to wait for a resized window
	// to reach the requested size.
	ResizeSettleFrames int
}

// Manager runs capture sessions. Captures are serialized; the rotation
// state and the offscreen target are only touched while holding mu.
type Manager struct {
	settings     SettingsSource
	frames       FrameScheduler
	window       WindowSizeController
	scene        func() string
	fs           afero.Fs
	clock        func() time.Time
	recorder     Recorder
	settleFrames int

	mu        sync.Mutex
	rotation  *rotation
	readback  Readback
	offscreen *Offscreen
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Settings == nil {
		return nil, errors.New("settings source is required")
	}
	if opts.Frames == nil {
		return nil, errors.New("frame scheduler is required")
	}
	m := &Manager{
		settings:     opts.Settings,
		frames:       opts.Frames,
		window:       opts.Window,
		scene:        opts.Scene,
		fs:           opts.Fs,
		clock:        opts.Clock,
		recorder:     opts.Recorder,
		settleFrames: opts.ResizeSettleFrames,
		rotation:     newRotation(),
		offscreen:    NewOffscreen(opts.Targets, opts.Camera),
	}
	if m.window == nil {
		m.window = NoopWindow{}
	}
	if m.scene == nil {
		m.scene = func() string { return "" }
	}
	if m.fs == nil {
		m.fs = afero.NewOsFs()
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	if m.settleFrames <= 0 {
		m.settleFrames = 3
	}
	return m, nil
}

// Capture takes one screenshot of the given kind and returns the written
// path. ErrNoCamera means nothing was captured and nothing changed.
//
// Capture must not be called from the render loop goroutine: it waits for
// the loop to reach the next frame boundary.
func (m *Manager) Capture(ctx context.Context, kind TriggerKind) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.settings.Settings()
	if err := s.Validate(); err != nil {
		return "", err
	}
	if s.OutputDir == "" {
		s.OutputDir = DefaultOutputDir
	}

	dir := filepath.Join(s.OutputDir, kind.String())
	if err := m.fs.MkdirAll(dir, 0o755); err != nil {
		return "", &Error{Kind: kind, Step: ErrDirectoryCreateFailed, Path: dir, Err: err}
	}

	var strategy Strategy = m.readback
	if s.Method == OffscreenRender {
		strategy = m.offscreen
	} else if s.ResizeHostWindow {
		restore, err := m.resizeWindow(ctx, s.TargetResolution)
		defer restore()
		if err != nil {
			return "", err
		}
	}

	var (
		img       image.Image
		effective Size
	)
	err := m.frames.AtFrameEnd(ctx, func(f Frame) error {
		effective = strategy.Resolution(f, s)
		var err error
		img, err = strategy.Acquire(f, effective.Scale(s.ResolutionScale))
		return err
	})
	if err != nil {
		return "", err
	}
	out := effective.Scale(s.ResolutionScale)

	data, err := encode(img, s)
	if err != nil {
		return "", &Error{Kind: kind, Step: ErrEncodeFailed, Err: err}
	}

	// Nothing has been mutated yet; bail out cleanly if cancelled.
	if err := ctx.Err(); err != nil {
		return "", err
	}

	plan, err := m.rotation.plan(m.fs, dir, kind, s.MaxFilesBeforeOverwrite)
	if err != nil {
		return "", &Error{Kind: kind, Step: ErrWriteFailed, Path: dir, Err: err}
	}

	scene := m.scene()
	path := filepath.Join(dir, FileName(plan.index, scene, out, m.clock(), s.Format))
	if !kind.Rotates() {
		// Manual captures never replace an earlier file.
		path, err = freePath(m.fs, path)
		if err != nil {
			return "", &Error{Kind: kind, Step: ErrWriteFailed, Path: path, Err: err}
		}
	}

	if plan.victim != "" {
		victim := filepath.Join(dir, plan.victim)
		if err := m.fs.Remove(victim); err != nil {
			log.Printf("Error removing rotated capture %s: %v", victim, err)
		} else {
			m.forget(victim)
		}
	} else if plan.advance {
		log.Printf("No %s capture with index %d to overwrite in %s", kind, plan.index, dir)
	}
	m.rotation.commit(kind, plan)

	if err := writeFileAtomic(m.fs, path, data); err != nil {
		return "", &Error{Kind: kind, Step: ErrWriteFailed, Path: path, Err: err}
	}

	if m.recorder != nil {
		entry := Entry{
			Path:       path,
			Kind:       kind,
			Index:      plan.index,
			Scene:      scene,
			Size:       out,
			Method:     s.Method,
			CapturedAt: m.clock(),
		}
		if err := m.recorder.Record(entry); err != nil {
			log.Printf("Error recording capture %s: %v", path, err)
		}
	}
	return path, nil
}

// resizeWindow resizes the host window and waits a bounded number of frames
// for the rendered frame to match. The returned restore func must always run.
func (m *Manager) resizeWindow(ctx context.Context, want Size) (func(), error) {
	previous := m.window.Size()
	m.window.SetSize(want)
	restore := func() { m.window.SetSize(previous) }

	for i := 0; i < m.settleFrames; i++ {
		var settled bool
		err := m.frames.AtFrameEnd(ctx, func(f Frame) error {
			settled = f.Size() == want
			return nil
		})
		if err != nil {
			return restore, fmt.Errorf("wait for window resize: %w", err)
		}
		if settled {
			break
		}
	}
	return restore, nil
}

// maxCopies bounds the search for a free manual file name.
const maxCopies = 10000

// freePath returns path, or path with a "_<n>" copy suffix when a file by
// that name already exists.
func freePath(fs afero.Fs, path string) (string, error) {
	candidate := path
	for n := 2; n <= maxCopies; n++ {
		exists, err := afero.Exists(fs, candidate)
		if err != nil {
			return path, err
		}
		if !exists {
			return candidate, nil
		}
		candidate = withCopySuffix(path, n)
	}
	return path, fmt.Errorf("no free file name after %d copies: %w", maxCopies, os.ErrExist)
}

func (m *Manager) forget(path string) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.Forget(path); err != nil {
		log.Printf("Error forgetting capture %s: %v", path, err)
	}
}

// NextIndex returns the rotation index the next overwriting capture of kind
// will use.
func (m *Manager) NextIndex(kind TriggerKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rotation.peek(kind)
}

// TargetAllocations reports how many offscreen render targets were created.
func (m *Manager) TargetAllocations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offscreen.Allocations()
}

// Close releases the offscreen render target. It must run on the render
// loop or after it has stopped.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offscreen.Close()
}
