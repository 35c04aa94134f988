package template

import (
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

type rawParameter struct {
	Discipline int    `toml:"discipline"`
	Category   int    `toml:"category"`
	Number     int    `toml:"number"`
	Name       string `toml:"name"`
}

type rawParameters struct {
	Parameter []rawParameter `toml:"parameter"`
}

type paramKey struct {
	discipline, category, number int
}

var (
	paramsOnce sync.Once
	paramsMap  map[paramKey]string
	paramsErr  error
)

func loadParameters() (map[paramKey]string, error) {
	data, err := tableFS.ReadFile("tables/parameters.toml")
	if err != nil {
		return nil, errors.Wrap(err, "template: reading parameters.toml")
	}
	var raw rawParameters
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, errors.Wrap(err, "template: parsing parameters.toml")
	}
	m := make(map[paramKey]string, len(raw.Parameter))
	for _, p := range raw.Parameter {
		m[paramKey{p.Discipline, p.Category, p.Number}] = p.Name
	}
	return m, nil
}

// DescribeParameter looks up a human-readable name for a (discipline,
// category, number) triple from Section 4's product definition template.
// It returns ok=false for anything not in the small bundled fixture.
func DescribeParameter(discipline, category, number int) (name string, ok bool) {
	paramsOnce.Do(func() {
		paramsMap, paramsErr = loadParameters()
	})
	if paramsErr != nil {
		return "", false
	}
	name, ok = paramsMap[paramKey{discipline, category, number}]
	return name, ok
}
