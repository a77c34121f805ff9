package sources

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"repackhub/internal/catalog"
)

// matchTally counts how each title in a batch resolved, for the summary
// line logged after ingestion.
type matchTally struct {
	Hash  int
	Fuzzy int
	None  int
}

// hashTitle hashes the raw title as-is: exact matching is case- and
// punctuation-sensitive on purpose.
func hashTitle(title string) string {
	sum := sha256.Sum256([]byte(title))
	return hex.EncodeToString(sum[:])
}

// matchTitle resolves a repack title to catalog ids.
//
// The exact path wins outright: if the title's hash is in the mapping,
// fuzzy matching never runs. Otherwise the formatted title is compared
// against the letter bucket it shares a first character with — prefix
// match first (lower false-positive risk), then bidirectional substring —
// and finally against every bucket, stopping at the first bucket that
// yields anything. All matches within the winning step are unioned with
// no ranking.
func matchTitle(title string, hashes catalog.TitleHashMapping, index catalog.ByLetter, tally *matchTally) []string {
	if ids := hashes[hashTitle(title)]; len(ids) > 0 {
		tally.Hash++
		return ids
	}

	formatted := catalog.FormatRepackName(title)
	if formatted == "" {
		tally.None++
		return nil
	}

	letter := formatted[:1]
	bucket := index[letter]

	matches := filterEntries(bucket, func(e catalog.FormattedEntry) bool {
		return strings.HasPrefix(formatted, e.FormattedName)
	})

	if len(matches) == 0 {
		matches = filterEntries(bucket, func(e catalog.FormattedEntry) bool {
			return strings.Contains(formatted, e.FormattedName) ||
				strings.Contains(e.FormattedName, formatted)
		})
	}

	if len(matches) == 0 {
		letters := make([]string, 0, len(index))
		for l := range index {
			letters = append(letters, l)
		}
		sort.Strings(letters)

		for _, l := range letters {
			found := filterEntries(index[l], func(e catalog.FormattedEntry) bool {
				return strings.Contains(formatted, e.FormattedName) ||
					strings.Contains(e.FormattedName, formatted)
			})
			if len(found) > 0 {
				matches = found
				break
			}
		}
	}

	if len(matches) == 0 {
		tally.None++
		return nil
	}

	tally.Fuzzy++
	ids := make([]string, len(matches))
	for i, e := range matches {
		ids[i] = e.ID
	}
	return ids
}

func filterEntries(entries []catalog.FormattedEntry, keep func(catalog.FormattedEntry) bool) []catalog.FormattedEntry {
	var out []catalog.FormattedEntry
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
