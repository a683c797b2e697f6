// Package pipeline implements the advisory orchestration: context
// construction, retrieval augmentation (web search + semantic memory),
// fixed skill chain execution, and output validation with bounded retry.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finquill/advisor/core"
	"github.com/finquill/advisor/memory"
	"github.com/finquill/advisor/metrics"
	"github.com/finquill/advisor/search"
)

// Pipeline context variable names. Skills read these by name, so the
// builder and the retrieval step must write them before the chain runs.
const (
	VarUserID     = "userId"
	VarStocks     = "stocks"
	VarVoice      = "voice"
	VarRisk       = "risk"
	VarTickers    = "tickers"
	VarCollection = "collection"
	VarRelevance  = "relevance"
	VarLimit      = "limit"
	VarBingResult = "bingResult"
)

const (
	// searchQuery is the fixed market-context question asked on every run.
	searchQuery = "What is the current inflation rate?"

	// memoryQuery is the fixed topic for the semantic memory search.
	memoryQuery = "investment advise"

	// DefaultRelevance is the minimum similarity a memory result must meet.
	DefaultRelevance = 0.8

	// DefaultLimit bounds the memory search result count.
	DefaultLimit = 3

	// DefaultMaxAttempts bounds the retry loop around retrieval + chain + parse.
	DefaultMaxAttempts = 2
)

// ErrExhausted is returned when every attempt produced unparseable output.
// Its text is the caller-visible error message.
var ErrExhausted = errors.New("Failed to parse JSON data after retrying investments")

// Recaller is the semantic memory contract the pipeline depends on.
// *memory.Recall satisfies it.
type Recaller interface {
	Search(ctx context.Context, collection, query string, limit int, relevance float32) ([]memory.SearchResult, error)
}

// RunLogger records completed runs. *audit.Store satisfies it.
type RunLogger interface {
	Record(ctx context.Context, rec *core.RunRecord) error
}

// Pipeline orchestrates one advisory run per call. It is safe for
// concurrent use: each run gets its own context and the collaborators
// synchronize internally.
type Pipeline struct {
	chain       []core.Skill
	searcher    search.Searcher
	recall      Recaller
	counter     *TokenCounter
	audit       RunLogger
	collection  string
	maxAttempts int
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithSearch sets the web-search capability.
func WithSearch(s search.Searcher) Option {
	return func(p *Pipeline) {
		p.searcher = s
	}
}

// WithRecall sets the semantic memory.
func WithRecall(r Recaller) Option {
	return func(p *Pipeline) {
		p.recall = r
	}
}

// WithTokenCounter enables token accounting over the context and output.
func WithTokenCounter(c *TokenCounter) Option {
	return func(p *Pipeline) {
		p.counter = c
	}
}

// WithAudit sets the run logger.
func WithAudit(a RunLogger) Option {
	return func(p *Pipeline) {
		p.audit = a
	}
}

// WithMaxAttempts overrides the retry budget.
func WithMaxAttempts(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// New creates a pipeline over the given skill chain. The collection names
// the memory corpus the retrieval step searches.
func New(chain []core.Skill, collection string, opts ...Option) *Pipeline {
	p := &Pipeline{
		chain:       chain,
		collection:  collection,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Advise runs the full pipeline for one request and returns the parsed
// recommendation. On exhausted retries it returns ErrExhausted.
func (p *Pipeline) Advise(ctx context.Context, req *core.AdviceRequest) (json.RawMessage, error) {
	return p.AdviseObserved(ctx, req, nil)
}

// AdviseObserved is Advise with per-attempt progress reporting. The
// observer receives the zero-based attempt index and, for failed
// attempts, the error that abandoned them.
func (p *Pipeline) AdviseObserved(ctx context.Context, req *core.AdviceRequest, observer func(attempt int, err error)) (json.RawMessage, error) {
	start := time.Now()
	rec := &core.RunRecord{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Timestamp: start.Unix(),
	}

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		rec.Attempts = attempt + 1
		metrics.PipelineAttempts.Inc()

		doc, err := p.attempt(ctx, req, rec)
		if err == nil {
			if observer != nil {
				observer(attempt, nil)
			}
			rec.Success = true
			rec.DurationMs = time.Since(start).Milliseconds()
			p.record(ctx, rec)
			return doc, nil
		}

		// Upstream failures and parse failures are retried identically:
		// the whole downstream pipeline restarts, not just the parse.
		log.Printf("[PIPELINE] Attempt %d/%d for user %s failed: %v",
			attempt+1, p.maxAttempts, req.UserID, err)
		metrics.PipelineFailures.Inc()
		if observer != nil {
			observer(attempt, err)
		}
	}

	metrics.PipelineExhausted.Inc()
	rec.Success = false
	rec.Error = ErrExhausted.Error()
	rec.DurationMs = time.Since(start).Milliseconds()
	p.record(ctx, rec)
	return nil, ErrExhausted
}

// attempt runs one full cycle: fresh context, retrieval, chain, parse.
func (p *Pipeline) attempt(ctx context.Context, req *core.AdviceRequest, rec *core.RunRecord) (json.RawMessage, error) {
	vars := p.buildContext(req)

	if err := p.augment(ctx, vars); err != nil {
		return nil, err
	}

	raw, err := p.executeChain(ctx, vars, rec)
	if err != nil {
		return nil, err
	}

	stripped := strings.NewReplacer("\n", "", "\r", "").Replace(raw)
	var parsed interface{}
	if err := json.Unmarshal([]byte(stripped), &parsed); err != nil {
		return nil, fmt.Errorf("parse advisor output: %w", err)
	}
	return json.RawMessage(stripped), nil
}

// buildContext assembles the initial variable set from the request. Pure
// transformation; malformed input passes through untouched.
func (p *Pipeline) buildContext(req *core.AdviceRequest) *core.PipelineContext {
	vars := core.NewPipelineContext()
	vars.Set(VarUserID, req.UserID)

	stocks, err := json.Marshal(req.Stocks)
	if err != nil {
		stocks = []byte("[]")
	}
	vars.Set(VarStocks, string(stocks))

	vars.Set(VarVoice, req.UserInfo.FavoriteAdvisor)
	vars.Set(VarRisk, req.UserInfo.RiskLevel)
	vars.Set(VarTickers, strings.Join(req.Tickers(), ","))
	vars.Set(VarCollection, p.collection)
	vars.Set(VarRelevance, strconv.FormatFloat(DefaultRelevance, 'f', -1, 32))
	vars.Set(VarLimit, strconv.Itoa(DefaultLimit))
	return vars
}

// augment enriches the context with the web search result and runs the
// memory similarity search. Failures propagate to the retry controller;
// nothing is caught here.
func (p *Pipeline) augment(ctx context.Context, vars *core.PipelineContext) error {
	if p.searcher != nil {
		answer, err := p.searcher.Search(ctx, searchQuery)
		if err != nil {
			return fmt.Errorf("web search: %w", err)
		}
		vars.Set(VarBingResult, answer)
	} else {
		vars.Set(VarBingResult, "")
	}

	if p.recall != nil {
		collection := vars.GetDefault(VarCollection, p.collection)
		limit, err := strconv.Atoi(vars.GetDefault(VarLimit, strconv.Itoa(DefaultLimit)))
		if err != nil {
			limit = DefaultLimit
		}
		relevance, err := strconv.ParseFloat(vars.GetDefault(VarRelevance, "0.8"), 32)
		if err != nil {
			relevance = DefaultRelevance
		}

		results, err := p.recall.Search(ctx, collection, memoryQuery, limit, float32(relevance))
		if err != nil {
			return fmt.Errorf("memory search: %w", err)
		}

		// Retrieved facts are consumed once for diagnostics; they are not
		// merged into the context the skill chain reads.
		for i, res := range results {
			log.Printf("[PIPELINE] Memory hit %d (%.2f): %s", i+1, res.Relevance, res.Text)
		}
	}

	return nil
}

// executeChain runs the fixed skill chain in order against the shared
// context. Token counts are observability only and never gate outcome.
func (p *Pipeline) executeChain(ctx context.Context, vars *core.PipelineContext, rec *core.RunRecord) (string, error) {
	promptTokens := p.countTokens(vars.String())
	rec.PromptTokens += promptTokens
	metrics.TokensCounted.WithLabelValues("prompt").Add(float64(promptTokens))
	log.Printf("[CHAIN] Context holds %d variables, ~%d tokens", vars.Len(), promptTokens)

	var lastText string
	for _, skill := range p.chain {
		result, err := skill.Invoke(ctx, vars)
		if err != nil {
			return "", fmt.Errorf("skill %q: %w", skill.Name(), err)
		}
		if result == nil || !result.Success {
			errMsg := "no result"
			if result != nil {
				errMsg = result.Error
			}
			return "", fmt.Errorf("skill %q failed: %s", skill.Name(), errMsg)
		}
		lastText = result.Text
	}

	outputTokens := p.countTokens(lastText)
	rec.CompletionTokens += outputTokens
	metrics.TokensCounted.WithLabelValues("completion").Add(float64(outputTokens))
	log.Printf("[CHAIN] Chain complete, ~%d output tokens", outputTokens)

	return lastText, nil
}

func (p *Pipeline) countTokens(text string) int {
	if p.counter == nil {
		return 0
	}
	return p.counter.Count(text)
}

func (p *Pipeline) record(ctx context.Context, rec *core.RunRecord) {
	if p.audit == nil {
		return
	}
	if err := p.audit.Record(ctx, rec); err != nil {
		log.Printf("[PIPELINE] Failed to record run %s: %v", rec.ID, err)
	}
}
