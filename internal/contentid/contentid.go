package contentid

import (
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var youtubeHosts = map[string]struct{}{
	"youtube.com":              {},
	"www.youtube.com":          {},
	"m.youtube.com":            {},
	"music.youtube.com":        {},
	"youtube-nocookie.com":     {},
	"www.youtube-nocookie.com": {},
}

// pathPrefixes are URL path forms that carry the video ID as the next segment.
var pathPrefixes = []string{"/shorts/", "/embed/", "/live/", "/v/", "/e/"}

// ValidVideoID reports whether id has the shape of a YouTube video ID.
func ValidVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// FromURL extracts the video ID from any supported YouTube URL form. A bare
// 11-character ID is accepted as-is.
func FromURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if ValidVideoID(raw) {
		return raw, true
	}
	u, ok := parse(raw)
	if !ok {
		return "", false
	}
	host := strings.ToLower(u.Hostname())

	if host == "youtu.be" || host == "www.youtu.be" {
		return candidate(firstSegment(u.Path))
	}
	if _, known := youtubeHosts[host]; !known {
		return "", false
	}
	if strings.TrimRight(u.Path, "/") == "/watch" {
		return candidate(u.Query().Get("v"))
	}
	for _, prefix := range pathPrefixes {
		if rest, found := strings.CutPrefix(u.Path, prefix); found {
			return candidate(firstSegment(rest))
		}
	}
	return "", false
}

// PlaylistID returns the list= parameter of a URL, if any.
func PlaylistID(raw string) (string, bool) {
	u, ok := parse(strings.TrimSpace(raw))
	if !ok {
		return "", false
	}
	id := strings.TrimSpace(u.Query().Get("list"))
	return id, id != ""
}

// IsPlaylist reports whether the URL references a playlist, including
// watch URLs that carry a list= parameter.
func IsPlaylist(raw string) bool {
	_, ok := PlaylistID(raw)
	return ok
}

// PlaylistURL returns the canonical playlist URL for any URL carrying list=,
// so "watch?v=...&list=..." expands the whole playlist.
func PlaylistURL(raw string) (string, bool) {
	id, ok := PlaylistID(raw)
	if !ok {
		return "", false
	}
	return "https://www.youtube.com/playlist?list=" + url.QueryEscape(id), true
}

// WatchURL builds the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + strings.TrimSpace(videoID)
}

// Canonical returns the watch URL for raw when a video ID can be derived.
func Canonical(raw string) (string, bool) {
	id, ok := FromURL(raw)
	if !ok {
		return "", false
	}
	return WatchURL(id), true
}

func parse(raw string) (*url.URL, bool) {
	if raw == "" {
		return nil, false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, false
	}
	return u, true
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		path = path[:idx]
	}
	return path
}

func candidate(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if !ValidVideoID(id) {
		return "", false
	}
	return id, true
}
