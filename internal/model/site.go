package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Site identifies a supported retail site.
type Site string

const (
	SiteAmazon Site = "amazon"
	SiteIHerb  Site = "iherb"
)

// AllSites returns every supported site.
func AllSites() []Site {
	return []Site{SiteAmazon, SiteIHerb}
}

// DisplayName is the label written into the record's source column.
func (s Site) DisplayName() string {
	switch s {
	case SiteAmazon:
		return "Amazon"
	case SiteIHerb:
		return "IHerb"
	}
	return string(s)
}

// ParseSite resolves a case-insensitive site name.
func ParseSite(name string) (Site, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, s := range AllSites() {
		if n == string(s) {
			return s, nil
		}
	}
	return "", eris.Errorf("unsupported site %q", name)
}
