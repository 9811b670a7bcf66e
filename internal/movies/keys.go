package movies

import "strings"

// Sorted-set and key names in the backing store.
const (
	titleIndexSet = "movies:titles"
	popularitySet = "movies:popularity"
	releaseSet    = "movies:release"

	cacheKeyPrefix   = "cache:autocomplete:"
	trendingCacheKey = "trending"

	titleDelimiter = "|"

	// lexMaxSentinel closes a prefix range: every member starting with the
	// prefix sorts below prefix+0xff.
	lexMaxSentinel = "\xff"
)

func recordKey(id string) string {
	return "movie:" + id
}

// titleMember encodes a title-index entry. Members carry score 0 so the set
// orders purely lexicographically by normalized title.
func titleMember(normalizedTitle, id string) string {
	return normalizedTitle + titleDelimiter + id
}

// idFromTitleMember extracts the movie id from a title-index member. The id
// follows the last delimiter, so titles containing the delimiter still parse.
func idFromTitleMember(member string) string {
	i := strings.LastIndex(member, titleDelimiter)
	if i < 0 {
		return ""
	}
	return member[i+1:]
}
