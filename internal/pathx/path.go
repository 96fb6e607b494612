// Package pathx contains helpers for repository paths. Repository paths are
// always forward-slash separated and never start or end with a slash,
// regardless of the host OS.
package pathx

import (
	"net/url"
	"strings"
)

// unsafe chars are replaced when deriving a repository path from a URL.
const unsafeChars = ";&?%$-#"

// Join joins path segments with "/", dropping empty segments and trimming
// redundant slashes.
func Join(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.Join(cleaned, "/")
}

// Divide splits a path into its parent directory and file name. A path
// without a slash divides into an empty directory and the path itself.
func Divide(path string) (dir, file string) {
	idx := strings.LastIndex(path, "/")
	if idx == -1 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

// FromURL derives a repository path from a URL: host plus path with
// characters unsafe for a repository path replaced by underscores. The
// query string is discarded.
func FromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	urlPath := u.Path
	if urlPath == "/" {
		urlPath = ""
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(unsafeChars, r) {
			return '_'
		}
		return r
	}, u.Host+urlPath), nil
}

// HostOf returns the host part of the URL without the port, or "" when the
// URL cannot be parsed.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
