package agents

import (
	"context"
	"strings"
	"time"

	"github.com/joescharf/prd/internal/models"
)

// Specialist reviews a document and returns raw issue items. How a
// specialist derives its findings is its own business; the engine only
// sees the result.
type Specialist interface {
	Key() string
	ReviewDocument(ctx context.Context, documentText string) ([]models.RawIssueItem, error)
}

// Registry maps specialist keys to implementations.
type Registry struct {
	specialists map[string]Specialist
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{specialists: make(map[string]Specialist)}
}

// Register adds or replaces a specialist by its key.
func (r *Registry) Register(s Specialist) {
	r.specialists[s.Key()] = s
}

// Get looks up a specialist by key.
func (r *Registry) Get(key string) (Specialist, bool) {
	s, ok := r.specialists[key]
	return s, ok
}

// Static is a canned specialist used by tests and offline runs.
type Static struct {
	AgentKey string
	Items    []models.RawIssueItem
	Err      error
	Delay    time.Duration
}

func (s *Static) Key() string { return s.AgentKey }

// ReviewDocument returns the canned items after the optional delay,
// honoring context cancellation.
func (s *Static) ReviewDocument(ctx context.Context, _ string) ([]models.RawIssueItem, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Items, nil
}

// StaticRegistry builds a registry of Static specialists that quote the
// first line of whatever document they are given. Used by --mock runs.
func StaticRegistry() *Registry {
	reg := NewRegistry()
	for _, def := range Catalog() {
		reg.Register(&mockSpecialist{def: def})
	}
	return reg
}

type mockSpecialist struct {
	def Definition
}

func (m *mockSpecialist) Key() string { return m.def.Key }

func (m *mockSpecialist) ReviewDocument(_ context.Context, documentText string) ([]models.RawIssueItem, error) {
	quote := documentText
	if idx := strings.IndexByte(documentText, '\n'); idx >= 0 {
		quote = documentText[:idx]
	}
	return []models.RawIssueItem{
		{
			Severity:     "Mid",
			Summary:      m.def.DisplayName + " placeholder finding",
			Comment:      "Offline review: verify this section against the " + m.def.RoleLabel + " checklist.",
			OriginalText: quote,
		},
	}, nil
}
