package core

import "context"

// SkillResult is the outcome of one skill invocation.
type SkillResult struct {
	// Text is the skill's raw output.
	Text string

	// Success is false when the skill itself failed (bad template data,
	// refused generation). Transport-level failures are returned as errors
	// from Invoke instead.
	Success bool

	// Error describes the failure when Success is false.
	Error string
}

// Skill is a named, invokable unit of prompt-driven logic. A skill reads
// variables from the shared pipeline context and writes its output back
// into it; the chain executor relies on that write for later skills.
type Skill interface {
	Name() string
	Invoke(ctx context.Context, vars *PipelineContext) (*SkillResult, error)
}
