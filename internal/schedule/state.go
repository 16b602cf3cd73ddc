package schedule

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"spacepanel/internal/config"
)

// State is what survives a restart: the count on the panel and when it
// was drawn.
type State struct {
	LastCount  int       `yaml:"last_count"`
	LastUpdate time.Time `yaml:"last_update"`
}

// LoadState reads path. A missing file is not an error and yields a state
// that forces the first redraw.
func LoadState(path string) (State, error) {
	st := State{LastCount: -1}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return st, nil
		}
		return st, err
	}
	if err := yaml.Unmarshal(data, &st); err != nil {
		return State{LastCount: -1}, err
	}
	return st, nil
}

// SaveState writes st to path atomically.
func SaveState(path string, st State) error {
	data, err := yaml.Marshal(&st)
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(path, data)
}
