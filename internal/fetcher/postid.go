package fetcher

import (
	"regexp"
	"strconv"
)

// The external post identifier hides in the link in several shapes
// depending on how the feed renders it. Patterns are tried in order;
// the first positive integer wins.
var postIDPatterns = []*regexp.Regexp{
	// dashed path segment: /post-482-1
	regexp.MustCompile(`-(\d+)(?:-\d+)*/?(?:[?#].*)?$`),
	// named path segment: /post/482
	regexp.MustCompile(`/[A-Za-z][A-Za-z0-9_]*/(\d+)(?:[/?#]|$)`),
	// trailing numeric segment: /482/
	regexp.MustCompile(`/(\d+)/?(?:[?#].*)?$`),
	// query parameter: ?id=482
	regexp.MustCompile(`(?i)[?&](?:post_)?(?:id|tid)=(\d+)`),
}

// ExtractPostID derives the stable numeric post identifier from an item
// link. It reports false when no pattern yields a positive integer.
func ExtractPostID(link string) (int64, bool) {
	for _, re := range postIDPatterns {
		m := re.FindStringSubmatch(link)
		if m == nil {
			continue
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		return id, true
	}
	return 0, false
}
