package scrape

import (
	"net/url"
	"path"
	"strings"
)

// defaultRejectPatterns cover search and browse pages that share a host
// with product pages.
var defaultRejectPatterns = []string{
	"/s",
	"/s/*",
	"/search",
	"/search/*",
}

// PathMatcher rejects URLs whose path matches a glob pattern.
// A pattern like "/s/*" also matches deeper paths such as "/s/a/b".
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher creates a PathMatcher from glob patterns (e.g. "/s/*", "/*.pdf").
// Falls back to default patterns if none are provided.
func NewPathMatcher(patterns []string) *PathMatcher {
	if len(patterns) == 0 {
		patterns = defaultRejectPatterns
	}
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}
	return &PathMatcher{patterns: lowered}
}

// Patterns returns the configured patterns.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// IsExcluded checks whether a URL matches any reject pattern.
// Unparseable URLs are always excluded.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	return m.IsPathExcluded(u.Path)
}

// IsPathExcluded checks a bare URL path against all patterns.
func (m *PathMatcher) IsPathExcluded(urlPath string) bool {
	urlPath = strings.ToLower(urlPath)
	for _, pattern := range m.patterns {
		if matchSegmented(pattern, urlPath) {
			return true
		}
	}
	return false
}

// matchSegmented performs glob matching where "/s/*" matches both "/s/x"
// and "/s/x/y/z".
func matchSegmented(pattern, urlPath string) bool {
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}

	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}

	return false
}
