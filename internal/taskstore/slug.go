package taskstore

import "strings"

// maxSlugLen caps generated task ids.
const maxSlugLen = 50

// Slugify derives a task id from its title: lowercase, strip
// non-alphanumerics, collapse whitespace runs to single hyphens, truncate.
func Slugify(title string) string {
	lower := strings.ToLower(title)

	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	slug := strings.Join(strings.Fields(b.String()), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}
