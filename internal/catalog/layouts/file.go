package layouts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/filmfolio/internal/catalog"
	"gopkg.in/yaml.v3"
)

// fileSpec is the YAML document accepted by LoadFile.
//
//	layouts:
//	  - name: letterboxd
//	    media_type: movie
//	    columns:
//	      title: 1
//	      release_year: 2
type fileSpec struct {
	Layouts []layoutSpec `yaml:"layouts"`
}

type layoutSpec struct {
	Name                string         `yaml:"name"`
	MediaType           string         `yaml:"media_type"`
	YearFromPrefix      bool           `yaml:"year_from_prefix"`
	DirectorPlaceholder string         `yaml:"director_placeholder"`
	Columns             map[string]int `yaml:"columns"`
}

// Parse decodes and validates layouts from a YAML document.
// Unknown keys are rejected.
func Parse(data []byte) ([]catalog.Layout, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var spec fileSpec
	if err := dec.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode layouts: %w", err)
	}

	out := make([]catalog.Layout, 0, len(spec.Layouts))
	for _, ls := range spec.Layouts {
		mt, err := catalog.ParseMediaType(ls.MediaType)
		if err != nil {
			return nil, fmt.Errorf("layout %q: %w", ls.Name, err)
		}

		cols := make(map[catalog.Field]int, len(ls.Columns))
		for name, idx := range ls.Columns {
			cols[catalog.Field(name)] = idx
		}

		l := catalog.Layout{
			Name:                ls.Name,
			MediaType:           mt,
			Columns:             cols,
			YearFromPrefix:      ls.YearFromPrefix,
			DirectorPlaceholder: ls.DirectorPlaceholder,
		}
		if err := l.Validate(); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// LoadFile reads layouts from a YAML file and registers them.
// Nothing is registered unless every layout in the file is valid and
// none collides with an existing name.
func LoadFile(path string) ([]catalog.Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layouts file: %w", err)
	}

	parsed, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := catalog.RegisterLayouts(parsed...); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return parsed, nil
}
