package decision

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/bmeyer99/docaiche/internal/apperr"
)

// FallbackFunc produces a deterministic result for a decision type when
// every model call fails or returns unparseable output. It must never
// itself fail: a fallback that cannot decide returns the most conservative
// answer for its decision type (e.g. "do not trigger external search").
type FallbackFunc func(variables map[string]any) (any, error)

// Config configures a Service.
type Config struct {
	Templates        *TemplateRegistry
	Tests            *TestRegistry
	Primary          Model
	Secondary        Model
	Fallbacks        map[Kind]FallbackFunc
	MaxTokensPerCall int
	EncodingName     string // tiktoken encoding, defaults to "cl100k_base"
}

func (c *Config) validate() error {
	if c.Templates == nil {
		return errors.New("decision service config: templates registry is required")
	}
	if c.Primary == nil {
		return errors.New("decision service config: primary model is required")
	}
	if c.Fallbacks == nil {
		c.Fallbacks = map[Kind]FallbackFunc{}
	}
	if c.MaxTokensPerCall <= 0 {
		c.MaxTokensPerCall = 2048
	}
	if c.EncodingName == "" {
		c.EncodingName = "cl100k_base"
	}
	return nil
}

// Service is the AI decision service: it renders a decision's active
// prompt template (or its A/B-tested variant), dispatches to the primary
// model with a secondary fallback, and falls back to a deterministic
// policy when both fail.
type Service struct {
	templates        *TemplateRegistry
	tests            *TestRegistry
	primary          Model
	secondary        Model
	fallbacks        map[Kind]FallbackFunc
	maxTokensPerCall int
	encoding         *tiktoken.Tiktoken
}

// New builds a Service from cfg.
func New(cfg *Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	enc, err := tiktoken.GetEncoding(cfg.EncodingName)
	if err != nil {
		return nil, err
	}
	return &Service{
		templates:        cfg.Templates,
		tests:            cfg.Tests,
		primary:          cfg.Primary,
		secondary:        cfg.Secondary,
		fallbacks:        cfg.Fallbacks,
		maxTokensPerCall: cfg.MaxTokensPerCall,
		encoding:         enc,
	}, nil
}

// Result is the outcome of one Decide call.
type Result struct {
	UsedFallback bool
	ModelUsed    string
	PromptTokens int
}

// Decide renders the active template for kind (or its A/B variant for
// userID), dispatches it to the primary model, retries on the secondary
// model on failure, and decodes the raw text into out. If every model
// attempt fails or the output cannot be decoded, it invokes the registered
// fallback for kind and reports UsedFallback.
func (s *Service) Decide(ctx context.Context, kind Kind, userID string, variables map[string]any, out any) (Result, error) {
	tmpl := s.resolveTemplate(kind, userID)
	if tmpl == nil {
		return s.fallback(kind, variables, out, apperr.DecisionFallback(string(kind), errors.New("no active prompt template")))
	}

	schema, err := outputSchema(out)
	if err != nil {
		return s.fallback(kind, variables, out, apperr.DecisionFallback(string(kind), err))
	}

	vars := make(map[string]any, len(variables)+1)
	for k, v := range variables {
		vars[k] = v
	}
	vars["OutputSchema"] = schema

	userPrompt, err := tmpl.Render(vars)
	if err != nil {
		return s.fallback(kind, variables, out, apperr.DecisionFallback(string(kind), err))
	}

	tokens := s.encoding.Encode(userPrompt, nil, nil)
	promptTokens := len(tokens)

	systemPrompt := "Respond with JSON matching the provided schema. Do not include commentary."

	raw, modelName, err := s.callModels(ctx, systemPrompt, userPrompt)
	if err != nil {
		return s.fallback(kind, variables, out, apperr.DecisionFallback(string(kind), err))
	}

	if err := decodeOutput(raw, out); err != nil {
		return s.fallback(kind, variables, out, apperr.DecisionFallback(string(kind), err))
	}

	return Result{ModelUsed: modelName, PromptTokens: promptTokens}, nil
}

func (s *Service) resolveTemplate(kind Kind, userID string) *PromptTemplate {
	if s.tests != nil && userID != "" {
		if test := s.tests.ActiveForDecision(kind); test != nil {
			variant := test.VariantForUser(userID)
			if v := s.templates.Version(kind, templateVersionFromVariant(variant)); v != nil {
				return v
			}
		}
	}
	return s.templates.Active(kind)
}

// templateVersionFromVariant resolves a TestVariant's PromptTemplateID to
// a numeric version. The PromptTemplateID holds the decimal string form of
// the template version (e.g. "2"); an id containing any non-digit
// resolves to 0.
func templateVersionFromVariant(v TestVariant) int {
	version := 0
	for _, r := range v.PromptTemplateID {
		if r < '0' || r > '9' {
			return 0
		}
		version = version*10 + int(r-'0')
	}
	return version
}

func (s *Service) callModels(ctx context.Context, systemPrompt, userPrompt string) (string, string, error) {
	raw, err := s.primary.Complete(ctx, systemPrompt, userPrompt, s.maxTokensPerCall)
	if err == nil {
		return raw, s.primary.Name(), nil
	}
	if s.secondary == nil {
		return "", "", err
	}
	raw, secErr := s.secondary.Complete(ctx, systemPrompt, userPrompt, s.maxTokensPerCall)
	if secErr != nil {
		return "", "", errors.Join(err, secErr)
	}
	return raw, s.secondary.Name(), nil
}

func (s *Service) fallback(kind Kind, variables map[string]any, out any, cause error) (Result, error) {
	fn, ok := s.fallbacks[kind]
	if !ok {
		return Result{}, cause
	}
	value, err := fn(variables)
	if err != nil {
		return Result{}, errors.Join(cause, err)
	}
	if err := assignOut(value, out); err != nil {
		return Result{}, errors.Join(cause, err)
	}
	return Result{UsedFallback: true}, nil
}

// assignOut copies value into out via JSON round-trip, keeping fallback
// policies free to build plain structs without sharing out's concrete
// type.
func assignOut(value any, out any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return decodeOutput(string(raw), out)
}

// StageTimeout bounds a single Decide call, matching the ai_decision
// configured timeout.
func StageTimeout(ctx context.Context, seconds float64) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(seconds*float64(time.Second)))
}
