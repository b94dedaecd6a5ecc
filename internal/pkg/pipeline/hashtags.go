package pipeline

import "strings"

// defaultHashtags backstops an upstream response that yields no usable tags.
var defaultHashtags = []string{"#RealEstate", "#Property", "#Home", "#Listing", "#ForSale"}

// NormalizeHashtags post-processes upstream hashtags: at most 5, trimmed,
// "#"-prefixed, bare or empty entries dropped. An empty outcome is replaced
// by the default set so the result never carries zero hashtags.
func NormalizeHashtags(tags []string) []string {
	if len(tags) > 5 {
		tags = tags[:5]
	}

	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		cleaned := strings.TrimSpace(tag)
		if cleaned == "" {
			continue
		}
		if !strings.HasPrefix(cleaned, "#") {
			cleaned = "#" + cleaned
		}
		if len(cleaned) <= 1 {
			continue
		}
		out = append(out, cleaned)
	}

	if len(out) == 0 {
		return append([]string(nil), defaultHashtags...)
	}
	return out
}
