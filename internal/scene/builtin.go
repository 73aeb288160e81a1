package scene

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/san-kum/trajlab/internal/dynamo"
)

//go:embed scenes/*.xml
var builtin embed.FS

// Builtin returns the names of the embedded scenes.
func Builtin() []string {
	entries, err := builtin.ReadDir("scenes")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".xml"))
	}
	sort.Strings(names)
	return names
}

// Source returns the MJCF text of an embedded scene.
func Source(name string) ([]byte, error) {
	data, err := builtin.ReadFile("scenes/" + name + ".xml")
	if err != nil {
		return nil, dynamo.Configf("unknown scene: %s (available: %v)", name, Builtin())
	}
	return data, nil
}

// Load parses an embedded scene by name, or an MJCF file when name ends in
// .xml.
func Load(name string) (*Scene, error) {
	if strings.EqualFold(filepath.Ext(name), ".xml") {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dynamo.ErrConfig, err)
		}
		return Parse(data)
	}
	data, err := Source(name)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
