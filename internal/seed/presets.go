package seed

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var presetsYAML []byte

// Preset sizes one seeding run.
type Preset struct {
	Users              int     `yaml:"users"`
	Contents           int     `yaml:"contents"`
	CommentsPerContent int     `yaml:"comments_per_content"`
	ReplyRatio         float64 `yaml:"reply_ratio"`
	LikeRatio          float64 `yaml:"like_ratio"`
	BookmarkRatio      float64 `yaml:"bookmark_ratio"`
	DraftRatio         float64 `yaml:"draft_ratio"`
	MaxDays            int     `yaml:"max_days"`
}

// CategorySeed is one category created by every preset.
type CategorySeed struct {
	Slug string `yaml:"slug"`
	Name string `yaml:"name"`
}

// Catalog is the parsed presets file.
type Catalog struct {
	Presets    map[string]Preset `yaml:"presets"`
	Categories []CategorySeed    `yaml:"categories"`
	Tags       []string          `yaml:"tags"`
}

// LoadCatalog parses the embedded presets file.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(presetsYAML)
}

// ParseCatalog parses a presets document.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse seed presets: %w", err)
	}
	if len(c.Presets) == 0 {
		return nil, fmt.Errorf("parse seed presets: no presets defined")
	}
	for name, p := range c.Presets {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
	}
	return &c, nil
}

// Preset returns the named preset.
func (c *Catalog) Preset(name string) (Preset, error) {
	p, ok := c.Presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q (have %v)", name, c.Names())
	}
	return p, nil
}

// Names lists the preset names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p Preset) validate() error {
	if p.Users <= 0 || p.Contents < 0 || p.CommentsPerContent < 0 {
		return fmt.Errorf("users must be positive and counts non-negative")
	}
	for _, r := range []float64{p.ReplyRatio, p.LikeRatio, p.BookmarkRatio, p.DraftRatio} {
		if r < 0 || r > 1 {
			return fmt.Errorf("ratios must be between 0 and 1")
		}
	}
	return nil
}
