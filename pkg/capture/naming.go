package capture

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FileNameSeparator splits the fields of a capture file name. Tools that
// parse capture names depend on it.
const FileNameSeparator = "__"

const dateLayout = "2006-1-2"

// NoIndex marks a file name without a leading index field.
const NoIndex = -1

// FileName assembles [index__]scene__WxH__yyyy-M-d.ext. An index of NoIndex
// drops the index field along with its separator.
func FileName(index int, scene string, size Size, at time.Time, format Format) string {
	var b strings.Builder
	if index != NoIndex {
		b.WriteString(indexPrefix(index))
	}
	b.WriteString(sanitizeScene(scene))
	b.WriteString(FileNameSeparator)
	b.WriteString(size.String())
	b.WriteString(FileNameSeparator)
	b.WriteString(at.Format(dateLayout))
	b.WriteString(format.Ext())
	return b.String()
}

// withCopySuffix inserts "_<n>" before the extension of name.
func withCopySuffix(name string, n int) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "_" + strconv.Itoa(n) + ext
}

func indexPrefix(index int) string {
	return strconv.Itoa(index) + FileNameSeparator
}

// sanitizeScene keeps scene names from introducing path separators or extra
// field separators into the file name.
func sanitizeScene(scene string) string {
	scene = strings.TrimSpace(scene)
	if scene == "" {
		return "Untitled"
	}
	scene = strings.NewReplacer("/", "-", "\\", "-", ":", "-").Replace(scene)
	for strings.Contains(scene, FileNameSeparator) {
		scene = strings.ReplaceAll(scene, FileNameSeparator, "_")
	}
	return scene
}
