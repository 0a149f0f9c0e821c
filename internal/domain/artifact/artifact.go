// Package artifact defines the Artifact domain entity.
package artifact

import (
	"fmt"
	"time"

	"github.com/Strob0t/MissionDeck/internal/domain"
)

// Type classifies an artifact's content.
type Type string

const (
	TypeMarkdown Type = "markdown"
	TypeJSON     Type = "json"
	TypeText     Type = "text"
	TypeCode     Type = "code"
)

// Valid reports whether t is a known artifact type.
func (t Type) Valid() bool {
	switch t {
	case TypeMarkdown, TypeJSON, TypeText, TypeCode:
		return true
	}
	return false
}

// Artifact is an immutable named content blob produced by an agent or
// uploaded by a user. Content is never mutated after creation; a fresh
// artifact is produced for each output.
type Artifact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      Type      `json:"type"`
	Content   string    `json:"content"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks invariants on a new artifact.
func (a *Artifact) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: artifact name is required", domain.ErrValidation)
	}
	if a.Content == "" {
		return fmt.Errorf("%w: artifact content is required", domain.ErrValidation)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: invalid artifact type %q", domain.ErrValidation, a.Type)
	}
	return nil
}
