package serializer

import "strings"

// Common initialisms that Go struct fields and methods spell in upper case.
// We keep this implementation local so lookup candidates stay predictable for
// the reflection fallback: a declared "user_id" must find both a UserId and a
// UserID accessor without pulling in a full case-conversion dependency.
var initialisms = map[string]string{
	"api":   "API",
	"html":  "HTML",
	"http":  "HTTP",
	"https": "HTTPS",
	"id":    "ID",
	"ip":    "IP",
	"json":  "JSON",
	"sql":   "SQL",
	"ttl":   "TTL",
	"ui":    "UI",
	"uid":   "UID",
	"url":   "URL",
	"uuid":  "UUID",
	"xml":   "XML",
}

// exportedNames converts a snake_case attribute name into the exported Go
// identifiers a source may plausibly use, most specific first. "user_id"
// yields [UserID, UserId]; names without initialism segments yield one
// candidate.
func exportedNames(attr string) []string {
	if attr == "" {
		return nil
	}

	segments := strings.Split(attr, "_")
	var plain, upper strings.Builder
	plain.Grow(len(attr))
	upper.Grow(len(attr))
	differ := false

	for _, seg := range segments {
		if seg == "" {
			continue
		}
		title := strings.ToUpper(seg[:1]) + seg[1:]
		plain.WriteString(title)
		if u, ok := initialisms[strings.ToLower(seg)]; ok {
			upper.WriteString(u)
			differ = true
		} else {
			upper.WriteString(title)
		}
	}

	if !differ {
		return []string{plain.String()}
	}
	return []string{upper.String(), plain.String()}
}
