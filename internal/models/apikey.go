package models

import "time"

const secretPrefixLen = 8

// APIKey is a credential issued to the user for calling the router.
// Secret is only known in the response that created the key.
type APIKey struct {
	CreatedAt time.Time `json:"createdAt,omitzero" yaml:"createdAt,omitempty"`
	ID        ID        `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Secret    string    `json:"secret,omitempty" yaml:"secret,omitempty"`
	Disabled  bool      `json:"disabled" yaml:"disabled"`
}

// HasSecret reports whether the one-time secret is still held locally.
func (k APIKey) HasSecret() bool {
	return k.Secret != ""
}

// MaskedSecret renders the first characters of the secret followed by an ellipsis.
func (k APIKey) MaskedSecret() string {
	if k.Secret == "" {
		return ""
	}
	if len(k.Secret) <= secretPrefixLen {
		return k.Secret
	}
	return k.Secret[:secretPrefixLen] + "..."
}

// StatusLabel returns "disabled" or "active".
func (k APIKey) StatusLabel() string {
	if k.Disabled {
		return "disabled"
	}
	return "active"
}
