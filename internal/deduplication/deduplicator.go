// Package deduplication drops repeated stories from a batch of parsed items.
// Two items are duplicates when their URLs match after normalization, or
// when their titles are near-identical word sets.
package deduplication

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/steveyegge/contentfactory/internal/contracts"
)

// Result is the outcome of Deduplicate.
type Result struct {
	// Unique holds the first occurrence of every story, in input order.
	Unique []*contracts.ParsedItem `json:"unique"`

	// Duplicates maps a duplicate's index in the input to the index of the
	// item it repeats. Keys are always greater than their values.
	Duplicates map[int]int `json:"duplicates"`

	Stats Stats `json:"stats"`
}

// Stats provides metrics about one deduplication pass
type Stats struct {
	TotalCandidates int `json:"total_candidates"`
	UniqueCount     int `json:"unique_count"`
	URLMatches      int `json:"url_matches"`
	TitleMatches    int `json:"title_matches"`
	ComparisonsMade int `json:"comparisons_made"`
}

type fingerprint struct {
	index int
	url   string
	words map[string]struct{}
}

// Deduplicate keeps the first item of every story. Items with a "url" field
// are matched on the normalized URL; items with a "title" field of at least
// MinTitleLength runes are also compared by title similarity when enabled.
func Deduplicate(items []*contracts.ParsedItem, cfg Config) Result {
	res := Result{
		Unique:     make([]*contracts.ParsedItem, 0, len(items)),
		Duplicates: make(map[int]int),
	}
	res.Stats.TotalCandidates = len(items)

	byURL := make(map[string]int)
	var seen []fingerprint

	for i, item := range items {
		fp := fingerprint{index: i, url: NormalizeURL(item.Text("url"))}
		if fp.url != "" {
			if orig, ok := byURL[fp.url]; ok {
				res.Duplicates[i] = orig
				res.Stats.URLMatches++
				continue
			}
		}

		title := item.Text("title")
		if cfg.CompareTitles && len([]rune(strings.TrimSpace(title))) >= cfg.MinTitleLength {
			fp.words = titleWords(title)
			if orig, ok := matchTitle(seen, fp.words, cfg.SimilarityThreshold, &res.Stats); ok {
				res.Duplicates[i] = orig
				res.Stats.TitleMatches++
				continue
			}
		}

		if fp.url != "" {
			byURL[fp.url] = i
		}
		seen = append(seen, fp)
		res.Unique = append(res.Unique, item)
	}

	res.Stats.UniqueCount = len(res.Unique)
	return res
}

func matchTitle(seen []fingerprint, words map[string]struct{}, threshold float64, stats *Stats) (int, bool) {
	for _, prev := range seen {
		if prev.words == nil {
			continue
		}
		stats.ComparisonsMade++
		if Similarity(prev.words, words) >= threshold {
			return prev.index, true
		}
	}
	return 0, false
}

// NormalizeURL lowercases the host, drops the scheme, "www.", the fragment,
// tracking parameters and a trailing slash. Unparseable input yields "".
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	q := u.Query()
	for key := range q {
		if strings.HasPrefix(key, "utm_") || key == "fbclid" || key == "gclid" {
			q.Del(key)
		}
	}
	out := host + strings.TrimSuffix(u.EscapedPath(), "/")
	if enc := q.Encode(); enc != "" {
		out += "?" + enc
	}
	return out
}

// Similarity is the Jaccard index of two word sets.
func Similarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func titleWords(title string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	words := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		words[f] = struct{}{}
	}
	return words
}
