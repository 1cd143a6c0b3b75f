package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

type fakeFrame struct {
	size Size
}

func (f fakeFrame) Size() Size { return f.size }

func (f fakeFrame) ReadPixels() (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, f.size.Width, f.size.Height)), nil
}

// immediateFrames runs frame-end jobs synchronously against the frame
// returned by frame.
type immediateFrames struct {
	frame func() Frame
}

func (s immediateFrames) AtFrameEnd(ctx context.Context, fn func(Frame) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s.frame())
}

type fakeTarget struct {
	size     Size
	disposed bool
}

func (t *fakeTarget) Size() Size { return t.size }

func (t *fakeTarget) ReadPixels() (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, t.size.Width, t.size.Height)), nil
}

func (t *fakeTarget) Dispose() { t.disposed = true }

type fakeCamera struct {
	target  RenderTarget
	renders int
}

func (c *fakeCamera) Target() RenderTarget      { return c.target }
func (c *fakeCamera) SetTarget(t RenderTarget) { c.target = t }
func (c *fakeCamera) Render()                  { c.renders++ }

type fakeWindow struct {
	size    Size
	history []Size
}

func (w *fakeWindow) Size() Size { return w.size }

func (w *fakeWindow) SetSize(s Size) {
	w.size = s
	w.history = append(w.history, s)
}

var testDate = time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC)

func testSettings() Settings {
	s := DefaultSettings()
	s.OutputDir = "shots"
	s.TargetResolution = Size{Width: 80, Height: 60}
	s.MaxFilesBeforeOverwrite = 3
	return s
}

type testManager struct {
	*Manager
	fs     afero.Fs
	scenes int
}

func newTestManager(t *testing.T, s Settings, configure func(*Options)) *testManager {
	t.Helper()
	tm := &testManager{fs: afero.NewMemMapFs()}
	opts := Options{
		Settings: StaticSettings(s),
		Frames:   immediateFrames{frame: func() Frame { return fakeFrame{size: Size{Width: 40, Height: 30}} }},
		Fs:       tm.fs,
		Clock:    func() time.Time { return testDate },
		// Each capture sees a new scene name so rotated files are
		// distinguishable from the ones replacing them.
		Scene: func() string {
			tm.scenes++
			return fmt.Sprintf("Level%d", tm.scenes)
		},
	}
	if configure != nil {
		configure(&opts)
	}
	m, err := NewManager(opts)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	tm.Manager = m
	return tm
}

func (tm *testManager) files(t *testing.T, kind TriggerKind) []string {
	t.Helper()
	names, err := listCaptures(tm.fs, filepath.Join("shots", kind.String()))
	if err != nil {
		t.Fatalf("Failed to list captures: %v", err)
	}
	return names
}

func TestRotationCyclesIndices(t *testing.T) {
	tm := newTestManager(t, testSettings(), nil)
	ctx := context.Background()

	wantPrefixes := []string{"0__", "1__", "2__", "0__", "1__", "2__", "0__"}
	for i, prefix := range wantPrefixes {
		path, err := tm.Capture(ctx, Automatic)
		if err != nil {
			t.Fatalf("Capture %d failed: %v", i+1, err)
		}
		if name := filepath.Base(path); !strings.HasPrefix(name, prefix) {
			t.Errorf("Capture %d: expected prefix %q, got %q", i+1, prefix, name)
		}
		if n := len(tm.files(t, Automatic)); n > 3 {
			t.Errorf("Capture %d: expected at most 3 files, got %d", i+1, n)
		}
	}
}

func TestRotationDeletesMatchingPrefix(t *testing.T) {
	tm := newTestManager(t, testSettings(), nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := tm.Capture(ctx, Triggered); err != nil {
			t.Fatalf("Capture %d failed: %v", i+1, err)
		}
	}

	files := tm.files(t, Triggered)
	want := []string{
		"0__Level4__40x30__2024-3-7.png",
		"1__Level2__40x30__2024-3-7.png",
		"2__Level3__40x30__2024-3-7.png",
	}
	if strings.Join(files, ",") != strings.Join(want, ",") {
		t.Errorf("Expected files %v, got %v", want, files)
	}
	if next := tm.NextIndex(Triggered); next != 1 {
		t.Errorf("Expected next index 1, got %d", next)
	}

	if _, err := tm.Capture(ctx, Triggered); err != nil {
		t.Fatalf("Capture 5 failed: %v", err)
	}
	files = tm.files(t, Triggered)
	if files[1] != "1__Level5__40x30__2024-3-7.png" {
		t.Errorf("Expected write 5 to replace index 1, got %v", files)
	}
}

func TestManualCapturesNeverRotate(t *testing.T) {
	s := testSettings()
	s.MaxFilesBeforeOverwrite = 1
	tm := newTestManager(t, s, nil)

	for i := 0; i < 4; i++ {
		path, err := tm.Capture(context.Background(), Manual)
		if err != nil {
			t.Fatalf("Capture %d failed: %v", i+1, err)
		}
		if name := filepath.Base(path); !strings.HasPrefix(name, "Level") {
			t.Errorf("Expected manual capture without index, got %q", name)
		}
	}
	if n := len(tm.files(t, Manual)); n != 4 {
		t.Errorf("Expected 4 manual captures, got %d", n)
	}
}

func TestManualCapturesKeepEarlierFiles(t *testing.T) {
	tm := newTestManager(t, testSettings(), func(o *Options) {
		o.Scene = func() string { return "Level1" }
	})

	var paths []string
	for i := 0; i < 3; i++ {
		path, err := tm.Capture(context.Background(), Manual)
		if err != nil {
			t.Fatalf("Capture %d failed: %v", i+1, err)
		}
		paths = append(paths, filepath.Base(path))
	}

	want := []string{
		"Level1__40x30__2024-3-7.png",
		"Level1__40x30__2024-3-7_2.png",
		"Level1__40x30__2024-3-7_3.png",
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("Capture %d: expected %q, got %q", i+1, want[i], paths[i])
		}
	}
	if n := len(tm.files(t, Manual)); n != 3 {
		t.Errorf("Expected 3 manual files, got %d", n)
	}
}

func TestRotationWithoutMatchingFileKeepsGoing(t *testing.T) {
	tm := newTestManager(t, testSettings(), nil)
	dir := filepath.Join("shots", Automatic.String())
	if err := tm.fs.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		if err := afero.WriteFile(tm.fs, filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("Failed to seed %s: %v", name, err)
		}
	}

	path, err := tm.Capture(context.Background(), Automatic)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "0__") {
		t.Errorf("Expected index 0, got %s", path)
	}
	if n := len(tm.files(t, Automatic)); n != 4 {
		t.Errorf("Expected 4 files after unmatched rotation, got %d", n)
	}
	if next := tm.NextIndex(Automatic); next != 1 {
		t.Errorf("Expected next index 1, got %d", next)
	}
}

func TestCancelledCaptureLeavesRotationUntouched(t *testing.T) {
	tm := newTestManager(t, testSettings(), nil)
	for i := 0; i < 3; i++ {
		if _, err := tm.Capture(context.Background(), Automatic); err != nil {
			t.Fatalf("Capture %d failed: %v", i+1, err)
		}
	}
	before := tm.files(t, Automatic)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tm.Capture(ctx, Automatic); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	if next := tm.NextIndex(Automatic); next != 0 {
		t.Errorf("Expected next index to stay 0, got %d", next)
	}
	if after := tm.files(t, Automatic); strings.Join(after, ",") != strings.Join(before, ",") {
		t.Errorf("Expected files %v to be untouched, got %v", before, after)
	}
}

func TestFileNameUsesScaledResolution(t *testing.T) {
	s := testSettings()
	s.ResolutionScale = 2
	tm := newTestManager(t, s, nil)

	path, err := tm.Capture(context.Background(), Manual)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if !strings.Contains(path, "__80x60__") {
		t.Errorf("Expected 40x30 frame scaled to 80x60, got %s", path)
	}

	data, err := afero.ReadFile(tm.fs, path)
	if err != nil {
		t.Fatalf("Failed to read capture: %v", err)
	}
	if len(data) == 0 {
		t.Error("Expected encoded capture data")
	}
}

func TestReadbackClampsEmptyFrame(t *testing.T) {
	tm := newTestManager(t, testSettings(), func(o *Options) {
		o.Frames = immediateFrames{frame: func() Frame { return fakeFrame{} }}
	})

	path, err := tm.Capture(context.Background(), Manual)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if !strings.Contains(path, "__1x1__") {
		t.Errorf("Expected 1x1 capture, got %s", path)
	}
}

func TestOffscreenReusesRenderTarget(t *testing.T) {
	s := testSettings()
	s.Method = OffscreenRender
	source := &mutableSettings{s: s}

	screen := &fakeTarget{size: Size{Width: 1, Height: 1}}
	cam := &fakeCamera{target: screen}
	tm := newTestManager(t, s, func(o *Options) {
		o.Settings = source
		o.Camera = func() Camera { return cam }
		o.Targets = func(size Size) RenderTarget { return &fakeTarget{size: size} }
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		path, err := tm.Capture(ctx, Manual)
		if err != nil {
			t.Fatalf("Capture %d failed: %v", i+1, err)
		}
		if !strings.Contains(path, "__80x60__") {
			t.Errorf("Expected target resolution in name, got %s", path)
		}
	}
	if n := tm.TargetAllocations(); n != 1 {
		t.Errorf("Expected 1 render target allocation, got %d", n)
	}
	if cam.renders != 2 {
		t.Errorf("Expected 2 render passes, got %d", cam.renders)
	}
	if cam.target != screen {
		t.Error("Expected camera target to be restored")
	}

	source.s.TargetResolution = Size{Width: 64, Height: 64}
	if _, err := tm.Capture(ctx, Manual); err != nil {
		t.Fatalf("Capture after resize failed: %v", err)
	}
	if n := tm.TargetAllocations(); n != 2 {
		t.Errorf("Expected 2 render target allocations after resize, got %d", n)
	}
}

func TestOffscreenWithoutCameraIsNoop(t *testing.T) {
	s := testSettings()
	s.Method = OffscreenRender
	tm := newTestManager(t, s, func(o *Options) {
		o.Camera = func() Camera { return nil }
		o.Targets = func(size Size) RenderTarget { return &fakeTarget{size: size} }
	})

	if _, err := tm.Capture(context.Background(), Triggered); !errors.Is(err, ErrNoCamera) {
		t.Fatalf("Expected ErrNoCamera, got %v", err)
	}
	if n := len(tm.files(t, Triggered)); n != 0 {
		t.Errorf("Expected no files, got %d", n)
	}
	if n := tm.TargetAllocations(); n != 0 {
		t.Errorf("Expected no render target allocations, got %d", n)
	}
}

func TestResizeHostWindowRestoresSize(t *testing.T) {
	s := testSettings()
	s.ResizeHostWindow = true
	window := &fakeWindow{size: Size{Width: 320, Height: 200}}
	tm := newTestManager(t, s, func(o *Options) {
		o.Window = window
		o.Frames = immediateFrames{frame: func() Frame { return fakeFrame{size: window.size} }}
	})

	path, err := tm.Capture(context.Background(), Manual)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if !strings.Contains(path, "__80x60__") {
		t.Errorf("Expected capture at the resized window size, got %s", path)
	}
	if window.size != (Size{Width: 320, Height: 200}) {
		t.Errorf("Expected window restored to 320x200, got %v", window.size)
	}
	if len(window.history) != 2 {
		t.Errorf("Expected resize and restore, got %v", window.history)
	}
}

func TestInvalidSettingsRejected(t *testing.T) {
	s := testSettings()
	s.TargetResolution = Size{Width: 0, Height: 600}
	tm := newTestManager(t, s, nil)

	if _, err := tm.Capture(context.Background(), Manual); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("Expected ErrInvalidSettings, got %v", err)
	}
}

func TestDirectoryCreateFailure(t *testing.T) {
	tm := newTestManager(t, testSettings(), func(o *Options) {
		o.Fs = afero.NewReadOnlyFs(afero.NewMemMapFs())
	})

	_, err := tm.Capture(context.Background(), Automatic)
	if !errors.Is(err, ErrDirectoryCreateFailed) {
		t.Fatalf("Expected ErrDirectoryCreateFailed, got %v", err)
	}
	var captureErr *Error
	if !errors.As(err, &captureErr) || captureErr.Kind != Automatic {
		t.Errorf("Expected *Error for Automatic, got %v", err)
	}
}

type fakeRecorder struct {
	recorded  []Entry
	forgotten []string
}

func (r *fakeRecorder) Record(e Entry) error {
	r.recorded = append(r.recorded, e)
	return nil
}

func (r *fakeRecorder) Forget(path string) error {
	r.forgotten = append(r.forgotten, path)
	return nil
}

func TestRecorderTracksRotation(t *testing.T) {
	rec := &fakeRecorder{}
	s := testSettings()
	s.MaxFilesBeforeOverwrite = 1
	tm := newTestManager(t, s, func(o *Options) { o.Recorder = rec })

	first, err := tm.Capture(context.Background(), Automatic)
	if err != nil {
		t.Fatalf("Capture 1 failed: %v", err)
	}
	if _, err := tm.Capture(context.Background(), Automatic); err != nil {
		t.Fatalf("Capture 2 failed: %v", err)
	}

	if len(rec.recorded) != 2 {
		t.Fatalf("Expected 2 recorded entries, got %d", len(rec.recorded))
	}
	if rec.recorded[0].Index != 0 || rec.recorded[0].Kind != Automatic {
		t.Errorf("Unexpected first entry: %+v", rec.recorded[0])
	}
	if len(rec.forgotten) != 1 || rec.forgotten[0] != first {
		t.Errorf("Expected %s to be forgotten, got %v", first, rec.forgotten)
	}
}

type mutableSettings struct {
	s Settings
}

func (m *mutableSettings) Settings() Settings { return m.s }
