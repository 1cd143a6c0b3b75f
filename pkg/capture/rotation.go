package capture

import (
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// rotation tracks the next index to overwrite for each rotating kind. It is
// never persisted.
type rotation struct {
	next map[TriggerKind]int
}

func newRotation() *rotation {
	return &rotation{next: make(map[TriggerKind]int)}
}

type rotationPlan struct {
	index int
	// victim is the existing file that must be deleted before the write.
	victim  string
	advance bool
	next    int
}

// plan decides the index for the next write without mutating anything.
func (r *rotation) plan(fs afero.Fs, dir string, kind TriggerKind, maxFiles int) (rotationPlan, error) {
	if !kind.Rotates() {
		return rotationPlan{index: NoIndex}, nil
	}

	names, err := listCaptures(fs, dir)
	if err != nil {
		return rotationPlan{}, err
	}
	if len(names) < maxFiles {
		return rotationPlan{index: len(names)}, nil
	}

	// The cap may have been lowered since the index was last advanced.
	index := r.next[kind] % maxFiles
	p := rotationPlan{index: index, advance: true, next: (index + 1) % maxFiles}
	prefix := indexPrefix(index)
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			p.victim = name
			break
		}
	}
	return p, nil
}

func (r *rotation) commit(kind TriggerKind, p rotationPlan) {
	if p.advance {
		r.next[kind] = p.next
	}
}

func (r *rotation) peek(kind TriggerKind) int {
	return r.next[kind]
}

// listCaptures returns the regular files in dir, skipping hidden files such
// as in-progress temp files.
func listCaptures(fs afero.Fs, dir string) ([]string, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names, nil
}
