package host

import (
	"fmt"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
)

// ParseKeys maps key names such as "J" or "Control" to ebiten keys. Names
// are matched case-insensitively against ebiten.Key.String.
func ParseKeys(names []string) ([]ebiten.Key, error) {
	keys := make([]ebiten.Key, 0, len(names))
	for _, name := range names {
		k, ok := lookupKey(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown key %q", name)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func lookupKey(name string) (ebiten.Key, bool) {
	for k := ebiten.Key(0); k <= ebiten.KeyMax; k++ {
		if strings.EqualFold(k.String(), name) {
			return k, true
		}
	}
	return 0, false
}
