package providers

import (
	"fmt"
	"strings"

	"github.com/ibeckermayer/icebreaker/internal/types"
)

// MaxSuggestions is how many variants every prompt asks for.
const MaxSuggestions = 3

// tones is the one-line tone directive for each (style, persona) pair
var tones = map[types.Style]map[types.Persona]string{
	types.StyleCasual: {
		types.PersonaMale:   "Write like you're texting a guy friend. Super chill and fun - the way guys chat!",
		types.PersonaFemale: "Write like you're texting a girl friend. Super chill and fun - the way girls chat!",
	},
	types.StyleFlirty: {
		types.PersonaMale:   "Keep it playful and fun like trending reels. Think modern guy flirting casually!",
		types.PersonaFemale: "Keep it playful and fun like trending reels. Think modern girl flirting casually!",
	},
	types.StyleWitty: {
		types.PersonaMale:   "Be that funny guy friend with the best comebacks. Use trending memes and pop culture references.",
		types.PersonaFemale: "Be that funny girl friend with the best comebacks. Use trending memes and pop culture references.",
	},
	types.StyleIntellectual: {
		types.PersonaMale:   "Like those chill late-night dorm discussions with guys. Keep it smart but totally informal.",
		types.PersonaFemale: "Like those chill late-night dorm discussions with girls. Keep it smart but totally informal.",
	},
}

// Tone returns the tone directive for a style and persona, or "" if unknown.
func Tone(style types.Style, persona types.Persona) string {
	return tones[style][persona]
}

func crowd(persona types.Persona) string {
	if persona == types.PersonaMale {
		return "guys"
	}
	return "girls"
}

// BuildPrompt constructs the LLM prompt for generating conversation starters
func BuildPrompt(profileSummary string, postTexts []string, style types.Style, persona types.Persona) string {
	var sb strings.Builder
	who := crowd(persona)

	sb.WriteString(fmt.Sprintf("Help write super casual DMs for Twitter/X - the way Gen Z %s chat online. Think Instagram vibes!\n\n", who))

	sb.WriteString("Profile Info:\n")
	sb.WriteString(profileSummary)
	sb.WriteString("\n\n")

	sb.WriteString("Recent Activity:\n")
	sb.WriteString(strings.Join(postTexts, "\n"))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Style: %s\n\n", Tone(style, persona)))

	// Rules
	sb.WriteString("Rules:\n")
	sb.WriteString(fmt.Sprintf("- Write exactly like Gen Z %s text each other\n", who))
	sb.WriteString("- Keep it short and fun (max 2 lines)\n")
	sb.WriteString("- Be super casual (like texting your bestie)\n")
	sb.WriteString("- Use current internet slang and emojis\n")
	sb.WriteString("- Reference their stuff in a cool way\n")
	sb.WriteString("- Make it easy to reply to\n")
	sb.WriteString("- Keep it in simple, casual English\n")
	sb.WriteString("- NO formal language!\n\n")

	sb.WriteString(fmt.Sprintf("Give me exactly %d different casual conversation starters, one per line:", MaxSuggestions))

	return sb.String()
}

func validateTone(style types.Style, persona types.Persona) error {
	if !style.Valid() {
		return fmt.Errorf("unknown style: %q", style)
	}
	if !persona.Valid() {
		return fmt.Errorf("unknown persona: %q", persona)
	}
	return nil
}
