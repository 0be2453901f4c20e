package models

import (
	"strings"

	"github.com/rs/zerolog"
)

const redacted = "[REDACTED]"

// Credential holds the API key a visitor entered. Every printable form of it
// is redacted; only Reveal returns the key.
type Credential struct {
	key string
}

func NewCredential(key string) Credential {
	return Credential{key: strings.TrimSpace(key)}
}

func (c Credential) IsEmpty() bool {
	return c.key == ""
}

// Reveal returns the raw key for the x-api-key header.
func (c Credential) Reveal() string {
	return c.key
}

func (c Credential) String() string {
	if c.key == "" {
		return ""
	}
	return redacted
}

func (c Credential) GoString() string {
	return "models.Credential{" + c.String() + "}"
}

func (c Credential) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

func (c Credential) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c Credential) MarshalZerologObject(e *zerolog.Event) {
	e.Bool("present", !c.IsEmpty())
}
