package storage

import "strings"

// Sanitize lowercases s and replaces every character outside [a-z0-9] with
// an underscore. Store names built from user-supplied sport/set strings
// must survive use as file names and schema names unchanged.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// StoreName derives the deterministic Set Store name for a (sport, set)
// pair: sanitize(sport) + "_" + sanitize(set).
func StoreName(sport, set string) string {
	return Sanitize(sport) + "_" + Sanitize(set)
}

// SportPrefix is the store-name prefix shared by every set of one sport.
func SportPrefix(sport string) string {
	return Sanitize(sport) + "_"
}
