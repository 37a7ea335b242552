// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SelectorProfile describes how story pages of one site are taken apart.
// All fields are CSS selectors unless noted otherwise.
type SelectorProfile struct {
	// BaseURL is prefixed to relative links found on the page.
	BaseURL string `yaml:"base_url"`

	Title       string `yaml:"title"`
	Author      string `yaml:"author"`
	Breadcrumb  string `yaml:"breadcrumb"`  // category links; the second one is the category
	Tags        string `yaml:"tags"`        // one element per tag
	Content     string `yaml:"content"`     // paragraph container; <p> children are the story text
	Description string `yaml:"description"` // chapter description on the first page

	// Pagination within a chapter.
	NextPage string `yaml:"next_page"`

	// Series navigation panel linking to further parts.
	SeriesPanel string `yaml:"series_panel"`
	SeriesItem  string `yaml:"series_item"`
	SeriesLink  string `yaml:"series_link"`
	SeriesRole  string `yaml:"series_role"` // element whose text is "Next Part" / "Series Info"
}

// Selectors maps a host name (or "default") to its selector profile.
type Selectors map[string]SelectorProfile

// DefaultSelectors returns the built-in selector profile set.
func DefaultSelectors() Selectors {
	return Selectors{
		"default": {
			BaseURL:     "https://www.literotica.com",
			Title:       "h1.headline",
			Author:      "a.y_eU",
			Breadcrumb:  "#BreadCrumbComponent a.h_aZ",
			Tags:        "a.av_as.av_r",
			Content:     "div.aa_ht",
			Description: "div.bn_B span",
			NextPage:    `a.l_bJ[title="Next Page"]`,
			SeriesPanel: "div.panel.z_r.z_R",
			SeriesItem:  "div.z_S",
			SeriesLink:  "a.z_t",
			SeriesRole:  "span.z_pm",
		},
	}
}

// LoadSelectors reads selector profiles from a YAML file. Profiles present in
// the file override the built-in defaults; missing hosts keep the defaults.
func LoadSelectors(path string) (Selectors, error) {
	merged := DefaultSelectors()
	if path == "" {
		return merged, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- operator-provided config path
	if err != nil {
		return nil, fmt.Errorf("read selectors file: %w", err)
	}

	var fromFile Selectors
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("parse selectors file: %w", err)
	}

	for host, profile := range fromFile {
		if err := validateProfile(host, profile); err != nil {
			return nil, err
		}
		merged[host] = profile
	}
	return merged, nil
}

// ForHost returns the profile for the given host, falling back to "default".
func (s Selectors) ForHost(host string) SelectorProfile {
	if p, ok := s[host]; ok {
		return p
	}
	return s["default"]
}

func validateProfile(host string, p SelectorProfile) error {
	if p.Title == "" {
		return fmt.Errorf("selector profile %q: title selector is required", host)
	}
	if p.Content == "" {
		return fmt.Errorf("selector profile %q: content selector is required", host)
	}
	return nil
}
