// Package capture implements the screenshot capture session: filename and
// rotation bookkeeping, the two pixel acquisition strategies and the
// frame-boundary handoff to the render loop.
package capture

import (
	"fmt"
	"strings"
)

// TriggerKind identifies what raised a capture request. It also names the
// output directory the capture is written to.
type TriggerKind int

const (
	Manual TriggerKind = iota
	Automatic
	Triggered
)

var kindNames = map[TriggerKind]string{
	Manual:    "Manual",
	Automatic: "Automatic",
	Triggered: "Triggered",
}

func (k TriggerKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TriggerKind(%d)", int(k))
}

// Rotates reports whether captures of this kind reuse indices once the
// directory holds MaxFilesBeforeOverwrite files.
func (k TriggerKind) Rotates() bool {
	return k == Automatic || k == Triggered
}

func (k TriggerKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *TriggerKind) UnmarshalText(text []byte) error {
	parsed, err := ParseTriggerKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseTriggerKind accepts kind names case-insensitively.
func ParseTriggerKind(s string) (TriggerKind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown trigger kind %q", s)
}

// Method selects how pixels are acquired.
type Method int

const (
	// FramebufferReadback copies the frame that was just presented.
	FramebufferReadback Method = iota
	// OffscreenRender renders the scene camera into a dedicated target.
	OffscreenRender
)

var methodNames = map[Method]string{
	FramebufferReadback: "FramebufferReadback",
	OffscreenRender:     "OffscreenRender",
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMethod accepts method names case-insensitively, with or without
// underscores ("offscreen_render" and "OffscreenRender" are the same).
func ParseMethod(s string) (Method, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	for m, name := range methodNames {
		if strings.EqualFold(normalized, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown capture method %q", s)
}
