package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"folio/internal/model"
	"folio/internal/nav"
)

//go:embed site.yaml
var defaultSite []byte

type Owner struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// Site describes the portfolio: navigation, section content and the tuning
// of the section synchronizer for the page and for the terminal browser.
type Site struct {
	Title    string                 `yaml:"title"`
	Owner    Owner                  `yaml:"owner"`
	Nav      []model.NavigationItem `yaml:"nav"`
	Sections []model.Section        `yaml:"sections"`

	Thresholds       nav.Thresholds    `yaml:"thresholds"`
	BrowseThresholds nav.Thresholds    `yaml:"browse_thresholds"`
	Reveal           nav.RevealOptions `yaml:"reveal"`
	BrowseReveal     nav.RevealOptions `yaml:"browse_reveal"`
}

// LoadSite reads the site file at path, or the built-in site when path is empty.
func LoadSite(path string) (Site, error) {
	data := defaultSite
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Site{}, fmt.Errorf("read site file: %w", err)
		}
		data = b
	}
	return ParseSite(data)
}

func ParseSite(data []byte) (Site, error) {
	var s Site
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Site{}, fmt.Errorf("parse site: %w", err)
	}
	if err := s.validate(); err != nil {
		return Site{}, err
	}
	return s, nil
}

func (s Site) validate() error {
	if len(s.Nav) == 0 {
		return errors.New("site: nav must list at least one item")
	}
	seen := map[string]bool{}
	for i, item := range s.Nav {
		if item.Label == "" || item.Href == "" {
			return fmt.Errorf("site: nav item %d needs a label and an href", i)
		}
		if strings.HasPrefix(item.Href, "#") {
			if seen[item.Href] {
				return fmt.Errorf("site: duplicate nav href %s", item.Href)
			}
			seen[item.Href] = true
		}
	}
	return nil
}

// Section returns the content for a fragment id.
func (s Site) Section(id string) (model.Section, bool) {
	for _, sec := range s.Sections {
		if sec.ID == id {
			return sec, true
		}
	}
	return model.Section{}, false
}

// WithOwner overrides the owner identity from the environment.
func (s Site) WithOwner(name, email string) Site {
	if name != "" {
		s.Owner.Name = name
	}
	if email != "" {
		s.Owner.Email = email
	}
	return s
}
