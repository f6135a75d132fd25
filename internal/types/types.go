package types

import (
	"errors"
	"fmt"
	"strings"
)

// Profile represents a scraped X profile header.
// Counts are kept as display strings ("1.2K", "3,400").
type Profile struct {
	Username       string `json:"username"`
	Bio            string `json:"bio"`
	FollowersCount string `json:"followersCount"`
	FollowingCount string `json:"followingCount"`
}

// Post represents a scraped X post from a profile timeline.
// ID is a hash of Text; posts with identical text are the same post.
type Post struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Likes     string `json:"likes"`
	Retweets  string `json:"retweets"`
	Comments  string `json:"comments"`
	Views     string `json:"views"`
}

// Suggestion is a single generated icebreaker
type Suggestion struct {
	Topic      string  `json:"topic"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Tab is a browser tab as seen by the relay
type Tab struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Style selects the tone of generated messages.
type Style string

const (
	StyleCasual       Style = "casual"
	StyleFlirty       Style = "flirty"
	StyleWitty        Style = "witty"
	StyleIntellectual Style = "intellectual"
)

// Styles lists every supported style in display order.
var Styles = []Style{StyleCasual, StyleFlirty, StyleWitty, StyleIntellectual}

// Valid reports whether s is a known style.
func (s Style) Valid() bool {
	switch s {
	case StyleCasual, StyleFlirty, StyleWitty, StyleIntellectual:
		return true
	}
	return false
}

// ParseStyle converts user input into a Style.
func ParseStyle(s string) (Style, error) {
	style := Style(strings.ToLower(strings.TrimSpace(s)))
	if !style.Valid() {
		return "", fmt.Errorf("unknown style: %q", s)
	}
	return style, nil
}

// Persona selects the voice of generated messages.
type Persona string

const (
	PersonaMale   Persona = "male"
	PersonaFemale Persona = "female"
)

// Personas lists every supported persona.
var Personas = []Persona{PersonaMale, PersonaFemale}

func (p Persona) Valid() bool {
	return p == PersonaMale || p == PersonaFemale
}

// ParsePersona converts user input into a Persona.
func ParsePersona(s string) (Persona, error) {
	persona := Persona(strings.ToLower(strings.TrimSpace(s)))
	if !persona.Valid() {
		return "", fmt.Errorf("unknown persona: %q", s)
	}
	return persona, nil
}

// ProviderID identifies a generative AI backend.
type ProviderID string

const (
	ProviderClaude ProviderID = "claude"
	ProviderGemini ProviderID = "gemini"
)

// Providers lists every supported provider.
var Providers = []ProviderID{ProviderClaude, ProviderGemini}

func (p ProviderID) Valid() bool {
	return p == ProviderClaude || p == ProviderGemini
}

// ParseProvider converts user input into a ProviderID.
func ParseProvider(s string) (ProviderID, error) {
	id := ProviderID(strings.ToLower(strings.TrimSpace(s)))
	if !id.Valid() {
		return "", fmt.Errorf("unknown provider: %q", s)
	}
	return id, nil
}

// GenerationRequest is everything a provider needs to produce suggestions.
type GenerationRequest struct {
	ProfileSummary string
	PostTexts      []string
	Style          Style
	Persona        Persona
	Provider       ProviderID
}

// Validate checks the enum fields of the request.
func (r GenerationRequest) Validate() error {
	var errs []error
	if !r.Style.Valid() {
		errs = append(errs, fmt.Errorf("unknown style: %q", r.Style))
	}
	if !r.Persona.Valid() {
		errs = append(errs, fmt.Errorf("unknown persona: %q", r.Persona))
	}
	if !r.Provider.Valid() {
		errs = append(errs, fmt.Errorf("unknown provider: %q", r.Provider))
	}
	return errors.Join(errs...)
}
