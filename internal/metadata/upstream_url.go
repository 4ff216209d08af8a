package metadata

import "strings"

const (
	gitLabTreeDelimiterConstant  = "/-/tree/"
	gitilesTreeDelimiterConstant = "/+/"
	referencePathSeparator       = "/"
)

var upstreamTreeDelimiters = []string{gitLabTreeDelimiterConstant, gitilesTreeDelimiterConstant}

// UpstreamURL is a GIT url entry split into the repository location and the vendored subdirectory.
// The browse ref between the delimiter and the subpath is discarded; the import version selects the revision.
type UpstreamURL struct {
	BaseURL string
	// Subpath is empty when the entry names the whole repository.
	Subpath string
}

// ParseUpstreamURL splits GitLab (/-/tree/<ref>/<path>) and Gitiles (/+/<ref>/<path>) browse URLs.
// URLs without either delimiter are returned whole as the base URL.
func ParseUpstreamURL(rawURL string) UpstreamURL {
	trimmedURL := strings.TrimSpace(rawURL)
	for _, delimiter := range upstreamTreeDelimiters {
		baseURL, treeSuffix, found := strings.Cut(trimmedURL, delimiter)
		if !found {
			continue
		}
		_, subpath, _ := strings.Cut(treeSuffix, referencePathSeparator)
		return UpstreamURL{
			BaseURL: baseURL,
			Subpath: strings.Trim(subpath, referencePathSeparator),
		}
	}
	return UpstreamURL{BaseURL: trimmedURL}
}
