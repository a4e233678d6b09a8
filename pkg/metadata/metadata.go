// Package metadata obtains the resolved metadata of a Python distribution
// by installing it, without dependencies, into a throwaway virtual
// environment and reading back what pip recorded.
//
// Letting pip do the install means environment markers and dynamic
// setup.py metadata are already evaluated; no marker parsing happens here.
package metadata

import (
	"bufio"
	"strings"
)

// Metadata is what pip reports about an installed distribution.
type Metadata struct {
	Name        string            `json:"name" yaml:"name"`
	Version     string            `json:"version" yaml:"version"`
	Summary     string            `json:"summary" yaml:"summary"`
	HomePage    string            `json:"home_page,omitempty" yaml:"home_page,omitempty"`
	License     string            `json:"license,omitempty" yaml:"license,omitempty"`
	Classifiers []string          `json:"classifiers,omitempty" yaml:"classifiers,omitempty"`
	Requires    []string          `json:"requires,omitempty" yaml:"requires,omitempty"`
	ProjectURLs map[string]string `json:"project_urls,omitempty" yaml:"project_urls,omitempty"`
}

const fallbackMarker = "# fallback: "

// Parse reads the output of `pip show --verbose`, optionally preceded by
// fallback marker lines naming requirements that had to be pre-installed.
// Those requirements are appended to Requires.
func Parse(out string) (*Metadata, error) {
	m := &Metadata{ProjectURLs: map[string]string{}}
	var fallbacks []string
	list := ""

	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if rest, ok := strings.CutPrefix(line, fallbackMarker); ok {
			fallbacks = append(fallbacks, strings.TrimSpace(rest))
			continue
		}
		if strings.HasPrefix(line, "  ") && list != "" {
			m.addListItem(list, strings.TrimSpace(line))
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		list = ""
		switch key {
		case "Name":
			m.Name = value
		case "Version":
			m.Version = value
		case "Summary":
			m.Summary = value
		case "Home-page":
			m.HomePage = value
		case "License":
			m.License = value
		case "License-Expression":
			if m.License == "" || m.License == "UNKNOWN" {
				m.License = value
			}
		case "Requires":
			for _, r := range strings.Split(value, ",") {
				if r = strings.TrimSpace(r); r != "" {
					m.Requires = append(m.Requires, r)
				}
			}
		case "Classifiers", "Project-URLs":
			list = key
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if m.Name == "" {
		return nil, errNoName
	}
	m.Requires = append(m.Requires, fallbacks...)
	return m, nil
}

func (m *Metadata) addListItem(list, item string) {
	switch list {
	case "Classifiers":
		m.Classifiers = append(m.Classifiers, item)
	case "Project-URLs":
		label, url, ok := strings.Cut(item, ",")
		if ok {
			m.ProjectURLs[strings.TrimSpace(label)] = strings.TrimSpace(url)
		}
	}
}

var homeLabels = []string{"Homepage", "homepage", "Home", "Source", "Repository", "Source Code"}

// URL returns the best project URL: the home page field, else one of the
// conventional project URL labels.
func (m *Metadata) URL() string {
	if usable(m.HomePage) {
		return m.HomePage
	}
	for _, label := range homeLabels {
		if u := m.ProjectURLs[label]; usable(u) {
			return u
		}
	}
	return ""
}

func usable(s string) bool {
	return s != "" && s != "UNKNOWN" && s != "None"
}
