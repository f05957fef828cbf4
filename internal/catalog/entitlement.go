package catalog

import "polylingo/internal/domain"

// Permitted reports whether the user may run generation for the named
// target language. Pro languages require a pro user; everything else is
// open. A language missing from the catalog permits by default.
// Pure and side-effect free; callers must not contact the generator or
// storage when it returns false.
func Permitted(user domain.User, languageName string) bool {
	lang, ok := Lookup(languageName)
	if !ok {
		return true
	}
	return !lang.Pro || user.IsPro
}
