// Package catalog holds the static language and proficiency configuration
// consumed by the panels and the entitlement gate.
package catalog

import (
	"fmt"

	"golang.org/x/text/language"

	"polylingo/internal/domain"
)

// Language is one supported target language. Pro marks languages gated
// behind a paid subscription.
type Language struct {
	Name string `json:"name"`
	Code string `json:"code"`
	Pro  bool   `json:"pro"`
}

// Languages is the ordered set of supported target languages.
var Languages = []Language{
	{Name: "Spanish", Code: "es-ES", Pro: false},
	{Name: "French", Code: "fr-FR", Pro: false},
	{Name: "German", Code: "de-DE", Pro: false},
	{Name: "Italian", Code: "it-IT", Pro: false},
	{Name: "Portuguese", Code: "pt-BR", Pro: false},
	{Name: "Japanese", Code: "ja-JP", Pro: true},
	{Name: "Korean", Code: "ko-KR", Pro: true},
	{Name: "Mandarin Chinese", Code: "zh-CN", Pro: true},
	{Name: "Arabic", Code: "ar-SA", Pro: true},
	{Name: "Hindi", Code: "hi-IN", Pro: true},
	{Name: "Russian", Code: "ru-RU", Pro: true},
}

// ProficiencyLevels is the ordered list of selectable proficiency labels.
var ProficiencyLevels = []domain.Proficiency{
	domain.ProficiencyBeginner,
	domain.ProficiencyIntermediate,
	domain.ProficiencyAdvanced,
}

var byName = func() map[string]Language {
	m := make(map[string]Language, len(Languages))
	for _, l := range Languages {
		// Fail fast on a typo in the static table.
		if _, err := language.Parse(l.Code); err != nil {
			panic(fmt.Sprintf("catalog: invalid language code %q: %v", l.Code, err))
		}
		m[l.Name] = l
	}
	return m
}()

// Lookup returns the catalog entry for the given language name.
func Lookup(name string) (Language, bool) {
	l, ok := byName[name]
	return l, ok
}

// SuggestForRegion returns the catalog language spoken in the given ISO
// country code, if any. Used to preselect a target language for visitors.
func SuggestForRegion(country string) (Language, bool) {
	region, err := language.ParseRegion(country)
	if err != nil {
		return Language{}, false
	}
	for _, l := range Languages {
		tag := language.MustParse(l.Code)
		if r, conf := tag.Region(); conf >= language.High && r == region {
			return l, true
		}
	}
	return Language{}, false
}
