package models

import (
	"encoding/json"
)

// SessionStatus is the authentication state of the current user.
type SessionStatus int

const (
	SessionAnonymous SessionStatus = iota
	SessionAuthenticating
	SessionAuthenticated
)

// String returns a human-readable status name.
func (s SessionStatus) String() string {
	switch s {
	case SessionAnonymous:
		return "anonymous"
	case SessionAuthenticating:
		return "authenticating"
	case SessionAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is a snapshot of the client-held authentication record.
// A failed attempt leaves the status Anonymous with Error set.
type Session struct {
	UserID ID
	Email  string
	Error  string
	Status SessionStatus
}

// IsAuthenticated reports whether a user is signed in.
func (s Session) IsAuthenticated() bool {
	return s.Status == SessionAuthenticated
}

// Failed reports whether the last attempt left the session anonymous with an error.
func (s Session) Failed() bool {
	return s.Status == SessionAnonymous && s.Error != ""
}

// Identity is the user record returned by sign-up and sign-in.
type Identity struct {
	Extra map[string]any `json:"-" yaml:"extra,omitempty"`
	ID    ID             `json:"id" yaml:"id"`
	Email string         `json:"email,omitempty" yaml:"email,omitempty"`
}

// UnmarshalJSON keeps unknown fields in Extra.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*i = Identity{}
	for k, v := range raw {
		switch k {
		case "id":
			if err := json.Unmarshal(v, &i.ID); err != nil {
				return err
			}
		case "email":
			if err := json.Unmarshal(v, &i.Email); err != nil {
				return err
			}
		default:
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			if i.Extra == nil {
				i.Extra = make(map[string]any)
			}
			i.Extra[k] = val
		}
	}
	return nil
}
