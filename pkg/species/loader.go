package species

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
)

// FileExt is the extension of species source files.
const FileExt = ".cri"

// MaxSourceSize bounds a single species file.
const MaxSourceSize = 1 << 20

// ErrTooLarge is returned for species files over MaxSourceSize.
var ErrTooLarge = errors.New("species file too large")

// LoadFile parses a single species file.
func LoadFile(path string) (*Species, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > MaxSourceSize {
		return nil, fmt.Errorf("%w: %s (%d bytes)", ErrTooLarge, path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, string(data))
}

// LoadDir parses every *.cri file in dir in lexical order. Files that fail to
// load are logged and skipped; their errors are returned alongside the
// species that did load. Later files whose name duplicates an earlier
// species are skipped the same way.
func LoadDir(dir string, logger zerolog.Logger) (Roster, []error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+FileExt))
	if err != nil {
		return nil, []error{err}
	}
	sort.Strings(paths)

	var (
		roster Roster
		errs   []error
	)
	for _, path := range paths {
		s, err := LoadFile(path)
		if err == nil {
			if _, dup := roster.Lookup(s.Name); dup {
				err = fmt.Errorf("%s: duplicate species name %q", path, s.Name)
			}
		}
		if err != nil {
			logger.Warn().Str("file", path).Err(err).Msg("skipping species")
			errs = append(errs, err)
			continue
		}
		logger.Debug().
			Str("file", path).
			Str("species", s.Name).
			Int("lines", s.Program.Len()).
			Str("color", s.Color.String()).
			Msg("loaded species")
		roster = append(roster, s)
	}
	return roster, errs
}
