package catalog

// Entry is one reference catalog row: a stable id and a display name.
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FormattedEntry is an Entry carrying its precomputed comparable form.
type FormattedEntry struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	FormattedName string `json:"formattedName"`
}

// ByLetter buckets formatted entries by the first character of their
// formatted name. Built once per import and passed by reference; never
// cached across imports.
type ByLetter map[string][]FormattedEntry

// TitleHashMapping maps a sha256 hex digest of a raw repack title to the
// catalog ids it resolves to. Used as the exact-match fast path; may be
// empty.
type TitleHashMapping map[string][]string

// BuildIndex formats every entry and buckets it by first letter. Entries
// whose formatted name is empty are dropped since they can never match.
func BuildIndex(entries []Entry) ByLetter {
	index := make(ByLetter)
	for _, e := range entries {
		formatted := FormatName(e.Name)
		if formatted == "" {
			continue
		}
		letter := formatted[:1]
		index[letter] = append(index[letter], FormattedEntry{
			ID:            e.ID,
			Name:          e.Name,
			FormattedName: formatted,
		})
	}
	return index
}
