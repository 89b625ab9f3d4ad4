package metadata

import (
	"regexp"
	"sort"
	"strings"
)

var (
	tagSplitPattern  = regexp.MustCompile(`,\s*`)
	timestampPattern = regexp.MustCompile(`^\s*\d{1,2}:\d{2}`)
	urlPattern       = regexp.MustCompile(`https?://\S+`)
	hashtagPattern   = regexp.MustCompile(`#(\w+)`)
)

// NormalizeTags lowercases, trims, dedupes, and sorts a comma-separated
// tag list.
func NormalizeTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	for _, candidate := range tagSplitPattern.Split(raw, -1) {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == "" {
			continue
		}
		seen[candidate] = struct{}{}
	}
	return sortedKeys(seen)
}

// Cleaned is the decomposition of a raw video description.
type Cleaned struct {
	Description string
	Hashtags    []string
	URLs        []string
	Sponsors    []string
}

// CleanDescription strips blank and chapter-timestamp lines from a raw
// description, collects lines mentioning sponsors, and extracts the
// deduplicated hashtags and links of the full text.
func CleanDescription(raw string) Cleaned {
	if raw == "" {
		return Cleaned{}
	}

	var (
		cleanedLines []string
		sponsors     []string
	)
	for _, line := range strings.Split(raw, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if timestampPattern.MatchString(stripped) {
			continue
		}
		if strings.Contains(strings.ToLower(stripped), "sponsor") {
			sponsors = append(sponsors, stripped)
		}
		cleanedLines = append(cleanedLines, stripped)
	}

	hashtags := make(map[string]struct{})
	for _, match := range hashtagPattern.FindAllStringSubmatch(raw, -1) {
		hashtags[strings.ToLower(match[1])] = struct{}{}
	}
	urls := make(map[string]struct{})
	for _, match := range urlPattern.FindAllString(raw, -1) {
		urls[match] = struct{}{}
	}

	return Cleaned{
		Description: strings.Join(cleanedLines, "\n"),
		Hashtags:    sortedKeys(hashtags),
		URLs:        sortedKeys(urls),
		Sponsors:    sponsors,
	}
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
