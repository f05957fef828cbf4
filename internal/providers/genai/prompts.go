package genai

import (
	"fmt"
	"strings"

	"polylingo/internal/domain"
)

func buildLessonPrompt(topic string, proficiency domain.Proficiency, language string) string {
	sb := &strings.Builder{}
	sb.WriteString("You are an experienced language teacher creating a lesson for a student. Respond strictly with JSON matching this schema: ")
	sb.WriteString(`{"title":string,"objectives":string[],"vocabulary":[{"term":string,"translation":string,"example":string}],"dialogue":[{"speaker":string,"line":string,"translation":string}],"grammar_tips":string[],"practice":string[]}`)
	fmt.Fprintf(sb, ". Create a %s lesson in %s about %q.", strings.ToLower(string(proficiency)), language, topic)
	sb.WriteString(" Vocabulary terms and dialogue lines are in the target language with English translations. Include 6-10 vocabulary entries, a short dialogue, 2-3 grammar tips and 3 practice prompts.")
	return sb.String()
}

func buildTranslatePrompt(text, sourceLang, targetLang string) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Translate the following text from %s to %s. Respond strictly as JSON: {\"translated_text\":string}. Preserve tone and meaning; do not add commentary. Text: %q", sourceLang, targetLang, text)
	return sb.String()
}
