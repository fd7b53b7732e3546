package ranking

import (
	"regexp"
	"strings"
	"unicode"
)

// Release-version decorations that only add noise to a keyword search,
// e.g. "Song - Remastered 2009" or "Song (Mono)".
const versionAlternatives = `Mono|Stereo|Remaster(?:ed)?(?:\s+\d{4})?` +
	`|Deluxe(?:\s+Edition)?` +
	`|Ultimate\s+Mix|Single\s+Version|Album\s+Version` +
	`|Radio\s+Edit|Bonus\s+Track|Anniversary(?:\s+Edition)?` +
	`|Super\s+Deluxe|Special\s+Edition|\d{4}\s+Mix`

var (
	versionSuffixRe = regexp.MustCompile(`(?i)\s*[-–]\s*(?:` + versionAlternatives + `).*$`)
	versionParenRe  = regexp.MustCompile(`(?i)\s*\((?:` + versionAlternatives + `)\)`)
	latinWordRe     = regexp.MustCompile(`[a-zA-Z]{2,}`)
)

var noiseWords = map[string]bool{
	"single": true, "version": true, "long": true, "short": true, "full": true,
	"edit": true, "mix": true, "remastered": true, "remaster": true, "deluxe": true,
	"edition": true, "bonus": true, "track": true, "album": true, "mono": true,
	"stereo": true, "original": true, "extended": true, "feat": true,
	"featuring": true, "ft": true, "the": true, "an": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "at": true, "to": true, "for": true,
	"with": true, "from": true, "by": true,
}

// CleanSearchTitle strips release-version decorations from a catalog title.
func CleanSearchTitle(title string) string {
	title = versionSuffixRe.ReplaceAllString(title, "")
	title = versionParenRe.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

// SearchQuery is the primary "artist title" query for a reference track.
func SearchQuery(ref ReferenceTrack) string {
	return strings.TrimSpace(ref.Artist + " " + CleanSearchTitle(ref.Title))
}

// ReducedQueries drops one title word at a time and appends the year. Some
// peers filter whole phrases; a reduced query often gets through. Empty when
// the year is unknown or the title has fewer than two words.
func ReducedQueries(title, year string) []string {
	if year == "" {
		return nil
	}
	words := strings.Fields(title)
	if len(words) < 2 {
		return nil
	}
	queries := make([]string, 0, len(words))
	for i := range words {
		reduced := make([]string, 0, len(words)-1)
		reduced = append(reduced, words[:i]...)
		reduced = append(reduced, words[i+1:]...)
		queries = append(queries, strings.Join(reduced, " ")+" "+year)
	}
	return queries
}

// LatinKeywords pulls distinctive Latin-script words out of a possibly
// mixed-script title, e.g. ["KURENAI"] from "紅 - KURENAI - Single Long Version".
func LatinKeywords(title string) []string {
	var out []string
	for _, w := range latinWordRe.FindAllString(title, -1) {
		if !noiseWords[strings.ToLower(w)] {
			out = append(out, w)
		}
	}
	return out
}

// FilterByKeywords keeps hits whose remote path mentions any keyword.
func FilterByKeywords(hits []*SearchHit, keywords []string) []*SearchHit {
	if len(keywords) == 0 {
		return hits
	}
	lower := make([]string, len(keywords))
	for i, k := range keywords {
		lower[i] = strings.ToLower(k)
	}
	out := make([]*SearchHit, 0, len(hits))
	for _, h := range hits {
		name := strings.ToLower(h.Filename)
		for _, k := range lower {
			if strings.Contains(name, k) {
				out = append(out, h)
				break
			}
		}
	}
	return out
}

// FallbackQueries lists the searches to try, in order, when the primary query
// finds nothing usable: the primary query itself, artist plus the Latin
// keywords of a mixed-script title, the reduced queries when the year is
// known, and finally the artist alone.
func FallbackQueries(ref ReferenceTrack) []string {
	artist := strings.TrimSpace(ref.Artist)
	title := CleanSearchTitle(ref.Title)

	var queries []string
	seen := make(map[string]bool)
	add := func(q string) {
		q = strings.Join(strings.Fields(q), " ")
		if q == "" || seen[strings.ToLower(q)] {
			return
		}
		seen[strings.ToLower(q)] = true
		queries = append(queries, q)
	}

	add(SearchQuery(ref))
	if hasNonLatinLetter(title) {
		if kw := LatinKeywords(title); len(kw) > 0 {
			add(artist + " " + strings.Join(kw, " "))
		}
	}
	for _, q := range ReducedQueries(title, strings.TrimSpace(ref.Year)) {
		add(q)
	}
	add(artist)
	return queries
}

func hasNonLatinLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			return true
		}
	}
	return false
}
