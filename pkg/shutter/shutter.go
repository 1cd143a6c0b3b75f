// Package shutter plays a short sound after each capture.
package shutter

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dhowden/tag"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/go-mp3"
)

// Shutter holds a decoded sound ready to play.
type Shutter struct {
	Title string

	audioContext *audio.Context
	pcm          []byte

	mu     sync.Mutex
	player *audio.Player
}

// Load decodes the MP3 at path. The shared audio context is created at the
// file's sample rate if no other code created one first.
func Load(path string) (*Shutter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m tag.Metadata
	if md, err := tag.ReadFrom(f); err == nil {
		m = md
	}
	title := trackTitle(m, path)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	d, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}

	ctx := audio.CurrentContext()
	if ctx == nil {
		ctx = audio.NewContext(d.SampleRate())
	}

	var src io.Reader = d
	if ctx.SampleRate() != d.SampleRate() {
		src = audio.Resample(d, d.Length(), d.SampleRate(), ctx.SampleRate())
	}
	pcm, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}

	log.Printf("Loaded shutter sound %q (%d bytes PCM)", title, len(pcm))
	return &Shutter{Title: title, audioContext: ctx, pcm: pcm}, nil
}

// Play starts the sound, cutting off a previous play that is still running.
func (s *Shutter) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		_ = s.player.Close()
	}
	s.player = s.audioContext.NewPlayerFromBytes(s.pcm)
	s.player.Play()
}

// trackTitle prefers the tag title and falls back to the file name.
func trackTitle(m tag.Metadata, path string) string {
	if m != nil {
		if t := strings.TrimSpace(m.Title()); t != "" {
			return t
		}
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

