package types

import "encoding/json"

// ProviderConfig holds the selected provider and one credential per provider.
// It is owned by the credential store; everyone else works on a Clone.
type ProviderConfig struct {
	Active      ProviderID
	Credentials map[ProviderID]string
}

// Clone returns a deep copy.
func (c ProviderConfig) Clone() ProviderConfig {
	out := ProviderConfig{Active: c.Active}
	if c.Credentials != nil {
		out.Credentials = make(map[ProviderID]string, len(c.Credentials))
		for k, v := range c.Credentials {
			out.Credentials[k] = v
		}
	}
	return out
}

// Credential returns the stored secret for a provider, or "".
func (c ProviderConfig) Credential(id ProviderID) string {
	return c.Credentials[id]
}

// HasAnyCredential reports whether at least one provider has a secret.
func (c ProviderConfig) HasAnyCredential() bool {
	for _, v := range c.Credentials {
		if v != "" {
			return true
		}
	}
	return false
}

// Compact returns a copy keeping only non-empty credentials of known
// providers, with a nil map when none are left. This is the form that
// survives a JSON round trip.
func (c ProviderConfig) Compact() ProviderConfig {
	out := ProviderConfig{Active: c.Active}
	for _, id := range []ProviderID{ProviderClaude, ProviderGemini} {
		if v := c.Credentials[id]; v != "" {
			if out.Credentials == nil {
				out.Credentials = make(map[ProviderID]string, 2)
			}
			out.Credentials[id] = v
		}
	}
	return out
}

// persistedProviderConfig is the on-disk record shape.
type persistedProviderConfig struct {
	Provider     ProviderID `json:"provider"`
	ClaudeAPIKey string     `json:"claudeApiKey,omitempty"`
	GeminiAPIKey string     `json:"geminiApiKey,omitempty"`
}

func (c ProviderConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(persistedProviderConfig{
		Provider:     c.Active,
		ClaudeAPIKey: c.Credentials[ProviderClaude],
		GeminiAPIKey: c.Credentials[ProviderGemini],
	})
}

func (c *ProviderConfig) UnmarshalJSON(data []byte) error {
	var p persistedProviderConfig
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = ProviderConfig{
		Active: p.Provider,
		Credentials: map[ProviderID]string{
			ProviderClaude: p.ClaudeAPIKey,
			ProviderGemini: p.GeminiAPIKey,
		},
	}.Compact()
	return nil
}
