package validation

import (
	"net/url"
	"strings"
)

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// youtubeHosts are the hosts whose path and query carry a video or playlist id.
var youtubeHosts = map[string]bool{
	"www.youtube.com":   true,
	"youtube.com":       true,
	"music.youtube.com": true,
}

// ValidateURL performs syntactic checks only. Reachability is left to the
// fetchers that actually request the page.
func ValidateURL(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return &ValidationError{Message: "error: URL is required"}
	}

	parsedURL, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return &ValidationError{Message: "error: invalid URL format"}
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ValidationError{Message: "error: URL must start with http or https"}
	}

	if parsedURL.Host == "" {
		return &ValidationError{Message: "error: URL must have a host"}
	}

	return nil
}

// ResolveVideoID extracts the identifier a YouTube URL refers to. Unless
// ignorePlaylist is set, a non-empty "list" query parameter wins over the
// video id.
// The second result is false when the URL has no recognized shape.
func ResolveVideoID(rawURL string, ignorePlaylist bool) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}

	id := resolve(u, ignorePlaylist)
	return id, id != ""
}

func resolve(u *url.URL, ignorePlaylist bool) string {
	host := u.Hostname()
	if host == "youtu.be" {
		return strings.TrimPrefix(u.Path, "/")
	}
	if !youtubeHosts[host] {
		return ""
	}

	query := u.Query()
	if !ignorePlaylist {
		for _, list := range query["list"] {
			if list != "" {
				return list
			}
		}
	}

	switch {
	case u.Path == "/watch":
		return query.Get("v")
	case strings.HasPrefix(u.Path, "/watch/"),
		strings.HasPrefix(u.Path, "/embed/"),
		strings.HasPrefix(u.Path, "/v/"):
		// "/<prefix>/<id>" splits into ["", prefix, id, ...].
		return segment(u.Path, 2)
	}
	return ""
}

func segment(path string, i int) string {
	parts := strings.Split(path, "/")
	if i >= len(parts) {
		return ""
	}
	return parts[i]
}
