// Package prompts holds the prompt templates the agents run on, plus a
// small versioned store for overriding them at runtime.
package prompts

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"text/template"
	"time"
)

// Template represents a prompt template
type Template struct {
	ID          string
	Name        string
	Description string
	Content     string
	Version     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Tags        []string

	mu     sync.Mutex
	parsed *template.Template
}

// TemplateOption is a function that configures a template
type TemplateOption func(*Template)

// WithVersion sets the template version
func WithVersion(version string) TemplateOption {
	return func(t *Template) {
		t.Version = version
	}
}

// WithDescription sets the template description
func WithDescription(description string) TemplateOption {
	return func(t *Template) {
		t.Description = description
	}
}

// WithTags sets the template tags
func WithTags(tags ...string) TemplateOption {
	return func(t *Template) {
		t.Tags = tags
	}
}

// New creates a new template
func New(id string, name string, content string, options ...TemplateOption) *Template {
	now := time.Now()

	tmpl := &Template{
		ID:        id,
		Name:      name,
		Content:   content,
		Version:   "1.0.0",
		CreatedAt: now,
		UpdatedAt: now,
		Tags:      []string{},
	}

	for _, option := range options {
		option(tmpl)
	}

	return tmpl
}

// Render renders the template with the given data
func (t *Template) Render(data map[string]interface{}) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.parsed == nil {
		parsed, err := template.New(t.ID).Parse(t.Content)
		if err != nil {
			return "", fmt.Errorf("failed to parse template %s: %w", t.ID, err)
		}
		t.parsed = parsed
	}

	var buf bytes.Buffer
	if err := t.parsed.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", t.ID, err)
	}

	return buf.String(), nil
}

// Store holds templates by ID, letting callers override the built-in
// library. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewStore creates a store preloaded with the built-in library
func NewStore() *Store {
	store := &Store{
		templates: make(map[string]*Template),
	}

	for _, tmpl := range Library() {
		store.templates[tmpl.ID] = tmpl
	}

	return store
}

// Get retrieves a template by ID
func (s *Store) Get(id string) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tmpl, ok := s.templates[id]
	if !ok {
		return nil, fmt.Errorf("template not found: %s", id)
	}
	return tmpl, nil
}

// Save stores a template, replacing any existing one with the same ID
func (s *Store) Save(tmpl *Template) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpl.UpdatedAt = time.Now()
	s.templates[tmpl.ID] = tmpl
}

// List returns all templates ordered by ID
func (s *Store) List() []*Template {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*Template, 0, len(s.templates))
	for _, tmpl := range s.templates {
		list = append(list, tmpl)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})

	return list
}

// Render is a convenience that fetches and renders in one call
func (s *Store) Render(id string, data map[string]interface{}) (string, error) {
	tmpl, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return tmpl.Render(data)
}
