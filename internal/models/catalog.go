package models

import (
	"encoding/json"
	"strings"
)

// Model is a routable AI model from the catalog.
type Model struct {
	ID          ID     `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
}

// Provider is an upstream serving one or more models.
type Provider struct {
	ID          ID     `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ModelProviderOffering describes how one provider serves one model.
type ModelProviderOffering struct {
	ProviderID ID       `json:"providerId" yaml:"providerId"`
	Pricing    string   `json:"pricing,omitempty" yaml:"pricing,omitempty"`
	Endpoint   string   `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Features   []string `json:"features" yaml:"features"`
}

// UnmarshalJSON accepts "id" in place of "providerId" and non-string pricing.
func (o *ModelProviderOffering) UnmarshalJSON(data []byte) error {
	var wire struct {
		ProviderID ID              `json:"providerId"`
		ID         ID              `json:"id"`
		Pricing    json.RawMessage `json:"pricing"`
		Endpoint   string          `json:"endpoint"`
		Features   []string        `json:"features"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*o = ModelProviderOffering{
		ProviderID: wire.ProviderID,
		Endpoint:   wire.Endpoint,
		Features:   wire.Features,
		Pricing:    rawString(wire.Pricing),
	}
	if o.ProviderID.IsZero() {
		o.ProviderID = wire.ID
	}
	if o.Features == nil {
		o.Features = []string{}
	}
	return nil
}

// rawString renders a JSON scalar as plain text. Strings lose their quotes.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
