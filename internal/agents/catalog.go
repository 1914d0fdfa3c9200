// Package agents defines the specialist reviewer catalog and the interface
// the review engine uses to dispatch work to a specialist.
package agents

import (
	"fmt"
	"slices"
)

// Definition describes one specialist on the review panel, including the
// display metadata the catalog endpoint serves to UIs.
type Definition struct {
	Key         string   `json:"key"`
	Role        string   `json:"role"`
	DisplayName string   `json:"display_name"`
	RoleLabel   string   `json:"role_label,omitempty"`
	Bio         string   `json:"bio,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	AvatarURL   string   `json:"avatar_url,omitempty"`

	// Perspective steers the specialist's prompt; not serialized.
	Perspective string `json:"-"`
}

// EngineerKey and friends are the keys of the built-in panel.
const (
	EngineerKey = "engineer_specialist"
	UXKey       = "ux_designer_specialist"
	QAKey       = "qa_tester_specialist"
	PMKey       = "pm_specialist"
)

var catalog = []Definition{
	{
		Key:         EngineerKey,
		Role:        "engineer",
		DisplayName: "Engineer Specialist",
		RoleLabel:   "Backend Engineer",
		Bio:         "Reviews PRDs for API design, scalability, and implementation feasibility.",
		Tags:        []string{"api-design", "scalability", "performance"},
		AvatarURL:   "/avatars/engineer.png",
		Perspective: "a senior backend engineer focused on API contracts, data modeling, scalability limits, failure modes, and unstated technical prerequisites",
	},
	{
		Key:         UXKey,
		Role:        "ux_designer",
		DisplayName: "UX Designer Specialist",
		RoleLabel:   "UX Designer",
		Bio:         "Reviews PRDs for user flows, usability, and accessibility gaps.",
		Tags:        []string{"ux", "usability", "accessibility"},
		AvatarURL:   "/avatars/ux_designer.png",
		Perspective: "a user experience designer focused on user flows, edge-case states, error messaging, accessibility, and interaction ambiguity",
	},
	{
		Key:         QAKey,
		Role:        "qa_tester",
		DisplayName: "QA Tester Specialist",
		RoleLabel:   "QA Tester",
		Bio:         "Reviews PRDs for testability, missing acceptance criteria, and defect risk.",
		Tags:        []string{"quality", "test-strategy", "acceptance-criteria"},
		AvatarURL:   "/avatars/qa_tester.png",
		Perspective: "a quality assurance engineer focused on testability, measurable acceptance criteria, boundary conditions, and regressions the requirements invite",
	},
	{
		Key:         PMKey,
		Role:        "pm",
		DisplayName: "PM Specialist",
		RoleLabel:   "Product Manager",
		Bio:         "Reviews PRDs for scope clarity, prioritization, and business value.",
		Tags:        []string{"product-strategy", "requirements", "business-value"},
		AvatarURL:   "/avatars/pm.png",
		Perspective: "a product manager focused on scope boundaries, success metrics, stakeholder impact, prioritization conflicts, and unvalidated assumptions",
	},
}

// Catalog returns the built-in specialist definitions.
func Catalog() []Definition {
	return slices.Clone(catalog)
}

// Keys returns the catalog keys in panel order.
func Keys() []string {
	keys := make([]string, len(catalog))
	for i, def := range catalog {
		keys[i] = def.Key
	}
	return keys
}

// Lookup finds a definition by key.
func Lookup(key string) (Definition, bool) {
	for _, def := range catalog {
		if def.Key == key {
			return def, true
		}
	}
	return Definition{}, false
}

// DisplayName returns the display name for key, falling back to the key
// itself for unknown agents.
func DisplayName(key string) string {
	if def, ok := Lookup(key); ok {
		return def.DisplayName
	}
	return key
}

// ValidateSelection resolves a requested agent selection against the
// catalog. An empty selection means the full panel. Duplicates collapse;
// unknown keys are an error.
func ValidateSelection(selected []string) ([]string, error) {
	if len(selected) == 0 {
		return Keys(), nil
	}
	var keys []string
	for _, key := range selected {
		if _, ok := Lookup(key); !ok {
			return nil, fmt.Errorf("unknown agent: %s", key)
		}
		if slices.Contains(keys, key) {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}
