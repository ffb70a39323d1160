package decision

import (
	"fmt"
	"strings"
	"text/template"
)

// PromptTemplate renders a versioned, variable-checked prompt for one
// decision type. Rendering uses text/template so operators can author
// `{{.Var}}`-style placeholders the same way the rest of the prompt
// tooling does.
type PromptTemplate struct {
	DecisionType     Kind
	Version          int
	Active           bool
	Body             string
	RequiredVariables []string
	OutputFormat     string // "json" | "markdown"
}

// Clone returns a deep-enough copy safe to mutate independently (the
// registry hands out clones so concurrent renders never race on a shared
// template).
func (t *PromptTemplate) Clone() *PromptTemplate {
	clone := *t
	clone.RequiredVariables = append([]string(nil), t.RequiredVariables...)
	return &clone
}

// requireVariables validates that every name in RequiredVariables is
// present in variables, returning an error naming the first missing one.
func (t *PromptTemplate) requireVariables(variables map[string]any) error {
	for _, name := range t.RequiredVariables {
		if _, ok := variables[name]; !ok {
			return fmt.Errorf("prompt template %s v%d: missing required variable %q", t.DecisionType, t.Version, name)
		}
	}
	return nil
}

// Render executes the template body against variables after checking that
// every required variable is supplied.
func (t *PromptTemplate) Render(variables map[string]any) (string, error) {
	if err := t.requireVariables(variables); err != nil {
		return "", err
	}
	tpl, err := template.New(string(t.DecisionType)).Parse(t.Body)
	if err != nil {
		return "", fmt.Errorf("parse prompt template %s v%d: %w", t.DecisionType, t.Version, err)
	}
	var sb strings.Builder
	if err := tpl.Execute(&sb, variables); err != nil {
		return "", fmt.Errorf("render prompt template %s v%d: %w", t.DecisionType, t.Version, err)
	}
	return sb.String(), nil
}

// TemplateRegistry is an append-only, read-mostly store of prompt
// templates, keyed by decision type with exactly one active version at a
// time.
type TemplateRegistry struct {
	versions map[Kind][]*PromptTemplate
}

// NewTemplateRegistry returns an empty registry.
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{versions: make(map[Kind][]*PromptTemplate)}
}

// Register appends a new version for its decision type. If active is
// true, every other version for that decision type is deactivated.
func (r *TemplateRegistry) Register(t *PromptTemplate) {
	if t.Active {
		for _, existing := range r.versions[t.DecisionType] {
			existing.Active = false
		}
	}
	r.versions[t.DecisionType] = append(r.versions[t.DecisionType], t)
}

// Active returns the currently active template for kind, or nil.
func (r *TemplateRegistry) Active(kind Kind) *PromptTemplate {
	for _, t := range r.versions[kind] {
		if t.Active {
			return t.Clone()
		}
	}
	return nil
}

// Version returns a specific version of a decision type's template, or
// nil if not found.
func (r *TemplateRegistry) Version(kind Kind, version int) *PromptTemplate {
	for _, t := range r.versions[kind] {
		if t.Version == version {
			return t.Clone()
		}
	}
	return nil
}

// Versions returns every registered version for kind, oldest first.
func (r *TemplateRegistry) Versions(kind Kind) []*PromptTemplate {
	out := make([]*PromptTemplate, len(r.versions[kind]))
	for i, t := range r.versions[kind] {
		out[i] = t.Clone()
	}
	return out
}
