package models

import (
	"errors"
	"fmt"
	"time"
)

// Config represents the main configuration
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Compile CompileConfig `mapstructure:"compile"`
	Output  OutputConfig  `mapstructure:"output"`
	Lists   []FilterList  `mapstructure:"lists"`
}

// HTTPConfig contains HTTP client settings
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// CompileConfig controls how cosmetic rules are compiled
type CompileConfig struct {
	Debug           bool  `mapstructure:"debug"`            // keep raw lines in compiled filters
	StrictSelectors bool  `mapstructure:"strict_selectors"` // validate selectors with a CSS parser
	HiddenGenerics  bool  `mapstructure:"hidden_generics"`  // emit generic rules implied by negation-only rules
	Permission      uint8 `mapstructure:"permission"`
}

// OutputConfig contains output settings
type OutputConfig struct {
	Dir              string `mapstructure:"dir"`
	MaxRulesPerFile  int    `mapstructure:"max_rules_per_file"`
	GenerateManifest bool   `mapstructure:"generate_manifest"`
}

// FilterList represents a single filter list configuration. Exactly one of
// URL or Path is set.
type FilterList struct {
	Name    string `mapstructure:"name"`
	URL     string `mapstructure:"url"`
	Path    string `mapstructure:"path"`
	Enabled bool   `mapstructure:"enabled"`
}

// Source returns the URL or local path the list is read from
func (l FilterList) Source() string {
	if l.URL != "" {
		return l.URL
	}
	return l.Path
}

// Validate checks that the list has a name and exactly one source
func (l FilterList) Validate() error {
	if l.Name == "" {
		return errors.New("filter list without a name")
	}
	if (l.URL == "") == (l.Path == "") {
		return fmt.Errorf("filter list %q: set exactly one of url or path", l.Name)
	}
	return nil
}

// EnabledLists returns only enabled filter lists
func (c *Config) EnabledLists() []FilterList {
	var enabled []FilterList
	for _, l := range c.Lists {
		if l.Enabled {
			enabled = append(enabled, l)
		}
	}
	return enabled
}

// FindList returns the list with the given name
func (c *Config) FindList(name string) (FilterList, bool) {
	for _, l := range c.Lists {
		if l.Name == name {
			return l, true
		}
	}
	return FilterList{}, false
}
