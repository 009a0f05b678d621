package resolver

import (
	"net/url"
	"regexp"
	"strings"
)

const driveDownloadPrefix = "https://drive.google.com/uc?export=download&id="

var driveFileID = regexp.MustCompile(`^/file/d/([A-Za-z0-9_-]+)(?:/|$)`)

// NormalizeLink rewrites Google Drive share links into direct download links. Any other link,
// including one that is already direct, is returned unchanged.
func NormalizeLink(link string) string {
	trimmed := strings.TrimSpace(link)
	u, err := url.Parse(trimmed)
	if err != nil || !isDriveHost(u.Host) {
		return link
	}
	if m := driveFileID.FindStringSubmatch(u.Path); m != nil {
		return driveDownloadPrefix + m[1]
	}
	if u.Path == "/open" {
		if id := u.Query().Get("id"); id != "" {
			return driveDownloadPrefix + url.QueryEscape(id)
		}
	}
	return link
}

func isDriveHost(host string) bool {
	host = strings.ToLower(host)
	return host == "drive.google.com" || host == "www.drive.google.com"
}
