package skills

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/finquill/advisor/core"
)

// PromptSkill renders a text/template over the pipeline context, runs the
// result through the model, and writes the output back into the context
// under OutputVar so later skills in the chain can read it.
type PromptSkill struct {
	name      string
	outputVar string
	tmpl      *template.Template
	completer Completer
	maxTokens int64
}

// NewPromptSkill compiles the prompt template. The template's data is the
// current pipeline context as a map, so {{.userId}} style references read
// pipeline variables.
func NewPromptSkill(name, outputVar, prompt string, completer Completer, maxTokens int64) (*PromptSkill, error) {
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(prompt)
	if err != nil {
		return nil, fmt.Errorf("parse %s prompt: %w", name, err)
	}
	return &PromptSkill{
		name:      name,
		outputVar: outputVar,
		tmpl:      tmpl,
		completer: completer,
		maxTokens: maxTokens,
	}, nil
}

// Name returns the skill identifier.
func (s *PromptSkill) Name() string {
	return s.name
}

// OutputVar returns the context variable this skill writes.
func (s *PromptSkill) OutputVar() string {
	return s.outputVar
}

// Invoke renders the prompt, calls the model, and records the output.
func (s *PromptSkill) Invoke(ctx context.Context, vars *core.PipelineContext) (*core.SkillResult, error) {
	var prompt strings.Builder
	if err := s.tmpl.Execute(&prompt, vars.Map()); err != nil {
		return &core.SkillResult{
			Success: false,
			Error:   fmt.Sprintf("render prompt: %v", err),
		}, nil
	}

	text, err := s.completer.Complete(ctx, prompt.String(), s.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("skill %s: %w", s.name, err)
	}

	vars.Set(s.outputVar, text)
	return &core.SkillResult{Text: text, Success: true}, nil
}
