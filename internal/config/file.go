package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// fileConfig is the YAML overlay shape:
//
//	sports: [nfl, nba]
//	feeds:
//	  - name: espn-nfl
//	    url: https://www.espn.com/espn/rss/nfl/news
type fileConfig struct {
	Sports []string `koanf:"sports"`
	Feeds  []Feed   `koanf:"feeds"`
}

// LoadFile overlays the sports and feeds lists from a YAML file onto cfg.
// Keys absent from the file leave cfg untouched.
func LoadFile(path string, cfg *Config) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := k.UnmarshalWithConf("", &fc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	if k.Exists("sports") {
		sports := make([]string, 0, len(fc.Sports))
		for _, s := range fc.Sports {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				sports = append(sports, s)
			}
		}
		cfg.Sports = sports
	}
	if k.Exists("feeds") {
		for i, f := range fc.Feeds {
			if f.URL == "" {
				return fmt.Errorf("config file %s: feed %d has no url", path, i)
			}
			if f.Name == "" {
				fc.Feeds[i].Name = f.URL
			}
		}
		cfg.Feeds = fc.Feeds
	}
	return nil
}
