// Package bans holds the per-session set of excluded attribute values.
package bans

import (
	"errors"
	"fmt"
	"strings"

	"artdiscover/pkg/models"
)

var ErrUnknownKind = errors.New("unknown ban kind")

// ParseKind maps user input to a BanKind. The catalog calls artists
// "people" and filters them by "person", so both are accepted.
func ParseKind(s string) (models.BanKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "artist", "people", "person":
		return models.BanArtist, nil
	case "century":
		return models.BanCentury, nil
	case "culture":
		return models.BanCulture, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Registry is an insertion-ordered set of bans. It is not safe for
// concurrent use; the owning session serialises access.
type Registry struct {
	entries   []models.Ban
	protected map[string]struct{}
}

// Guard selects which placeholder values can never be banned.
type Guard int

const (
	// GuardCultureOnly protects only "Unknown culture".
	GuardCultureOnly Guard = iota
	// GuardAllPlaceholders also protects "Unknown artist" and
	// "Unknown period".
	GuardAllPlaceholders
)

func NewRegistry(guard Guard) *Registry {
	protected := map[string]struct{}{models.UnknownCulture: {}}
	if guard == GuardAllPlaceholders {
		protected[models.UnknownArtist] = struct{}{}
		protected[models.UnknownCentury] = struct{}{}
	}
	return &Registry{protected: protected}
}

// Bannable reports whether value may ever enter the registry.
func (r *Registry) Bannable(value string) bool {
	if strings.TrimSpace(value) == "" {
		return false
	}
	_, blocked := r.protected[value]
	return !blocked
}

// Toggle removes (kind, value) if present, otherwise appends it.
// It returns true when the registry changed.
func (r *Registry) Toggle(kind models.BanKind, value string) bool {
	if !r.Bannable(value) {
		return false
	}
	if i := r.index(kind, value); i >= 0 {
		r.entries = append(r.entries[:i], r.entries[i+1:]...)
		return true
	}
	r.entries = append(r.entries, models.Ban{Kind: kind, Value: value})
	return true
}

func (r *Registry) IsBanned(kind models.BanKind, value string) bool {
	return r.index(kind, value) >= 0
}

// Values returns the banned values of one kind in insertion order.
func (r *Registry) Values(kind models.BanKind) []string {
	var out []string
	for _, b := range r.entries {
		if b.Kind == kind {
			out = append(out, b.Value)
		}
	}
	return out
}

// Entries returns a copy of the registry contents.
func (r *Registry) Entries() []models.Ban {
	out := make([]models.Ban, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Registry) Len() int { return len(r.entries) }

func (r *Registry) index(kind models.BanKind, value string) int {
	for i, b := range r.entries {
		if b.Kind == kind && b.Value == value {
			return i
		}
	}
	return -1
}
