package ingest

import "strings"

// NormalizeURL repairs scheme-less video URLs so the same video matches
// across corpora regardless of how each one recorded the link. Returns ""
// for URLs that cannot be normalized into an absolute form.
func NormalizeURL(url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return ""
	}
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	if strings.HasPrefix(url, "www.") {
		return "https://" + url
	}
	if strings.Contains(url, "youtube.com") || strings.Contains(url, "youtu.be") {
		return "https://" + url
	}
	return ""
}
