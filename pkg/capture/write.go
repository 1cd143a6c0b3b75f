package capture

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

func encode(img image.Image, s Settings) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch s.Format {
	case FormatJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.JPEGQuality})
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFileAtomic writes through a hidden temp file in the same directory so
// a concurrent directory listing never sees a partial capture.
func writeFileAtomic(fs afero.Fs, path string, data []byte) error {
	tmpFile, err := afero.TempFile(fs, filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	defer func() {
		if err := fs.Remove(tmpName); err != nil && !os.IsNotExist(err) {
			log.Printf("Error removing temp file %s: %v", tmpName, err)
		}
	}() // Clean up if we fail

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	return fs.Rename(tmpName, path)
}
