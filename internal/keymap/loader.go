package keymap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var ErrUnknownFormat = errors.New("unknown keymap format")

// Load reads a keymap file. The format follows the extension: .json,
// .toml, .yaml or .yml.
func Load(path string) (*Keymap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keymap %s: %w", path, err)
	}
	km, err := Parse(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("parsing keymap %s: %w", path, err)
	}
	return km, nil
}

// Parse decodes keymap data; ext is a file extension such as ".toml".
func Parse(ext string, data []byte) (*Keymap, error) {
	actions := make(map[string][]string)
	var err error
	switch strings.ToLower(ext) {
	case ".json":
		err = json.Unmarshal(data, &actions)
	case ".toml":
		err = toml.Unmarshal(data, &actions)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &actions)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	return New(actions), nil
}

// Save writes the keymap as JSON.
func (m *Keymap) Save(path string) error {
	b, err := json.MarshalIndent(m.actions, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
