package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/finquill/advisor/core"
	"github.com/finquill/advisor/memory"
	"github.com/finquill/advisor/pipeline"
)

type fakeSkill struct {
	name   string
	invoke func(ctx context.Context, vars *core.PipelineContext) (*core.SkillResult, error)
}

func (s *fakeSkill) Name() string { return s.name }

func (s *fakeSkill) Invoke(ctx context.Context, vars *core.PipelineContext) (*core.SkillResult, error) {
	return s.invoke(ctx, vars)
}

type fakeSearcher struct {
	calls int
	err   error
}

func (f *fakeSearcher) Search(ctx context.Context, query string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "inflation is around 3.2%", nil
}

type fakeRecaller struct {
	calls      int
	collection string
	limit      int
	relevance  float32
	results    []memory.SearchResult
}

func (f *fakeRecaller) Search(ctx context.Context, collection, query string, limit int, relevance float32) ([]memory.SearchResult, error) {
	f.calls++
	f.collection = collection
	f.limit = limit
	f.relevance = relevance
	return f.results, nil
}

func testRequest() *core.AdviceRequest {
	return &core.AdviceRequest{
		UserID: "50",
		Stocks: []core.StockHolding{{Symbol: "AAPL"}},
		UserInfo: core.UserInfo{
			RiskLevel:       "medium",
			FavoriteAdvisor: "Warren",
			FavoriteBook:    "The Intelligent Investor",
		},
	}
}

// staticSkill writes a fixed value and returns it.
func staticSkill(name, outputVar, text string) *fakeSkill {
	return &fakeSkill{
		name: name,
		invoke: func(ctx context.Context, vars *core.PipelineContext) (*core.SkillResult, error) {
			vars.Set(outputVar, text)
			return &core.SkillResult{Text: text, Success: true}, nil
		},
	}
}

func TestAdvise_FirstAttemptSuccess(t *testing.T) {
	searcher := &fakeSearcher{}
	recaller := &fakeRecaller{}
	chainRuns := 0
	chain := []core.Skill{
		&fakeSkill{
			name: "advise",
			invoke: func(ctx context.Context, vars *core.PipelineContext) (*core.SkillResult, error) {
				chainRuns++
				return &core.SkillResult{Text: `{"advice":"buy AAPL"}`, Success: true}, nil
			},
		},
	}

	p := pipeline.New(chain, "finance",
		pipeline.WithSearch(searcher),
		pipeline.WithRecall(recaller),
	)

	doc, err := p.Advise(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Advise failed: %v", err)
	}
	if string(doc) != `{"advice":"buy AAPL"}` {
		t.Errorf("unexpected result: %s", doc)
	}
	if searcher.calls != 1 {
		t.Errorf("expected exactly 1 search, got %d", searcher.calls)
	}
	if recaller.calls != 1 {
		t.Errorf("expected exactly 1 memory search, got %d", recaller.calls)
	}
	if chainRuns != 1 {
		t.Errorf("expected exactly 1 chain execution, got %d", chainRuns)
	}
}

func TestAdvise_SucceedsOnFinalAttempt(t *testing.T) {
	attempts := 0
	chain := []core.Skill{
		&fakeSkill{
			name: "advise",
			invoke: func(ctx context.Context, vars *core.PipelineContext) (*core.SkillResult, error) {
				attempts++
				if attempts < pipeline.DefaultMaxAttempts {
					return &core.SkillResult{Text: "not-json", Success: true}, nil
				}
				return &core.SkillResult{Text: `{"advice":"hold"}`, Success: true}, nil
			},
		},
	}

	searcher := &fakeSearcher{}
	p := pipeline.New(chain, "finance", pipeline.WithSearch(searcher))

	doc, err := p.Advise(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Advise failed: %v", err)
	}
	if string(doc) != `{"advice":"hold"}` {
		t.Errorf("unexpected result: %s", doc)
	}
	if attempts != pipeline.DefaultMaxAttempts {
		t.Errorf("expected %d attempts, got %d", pipeline.DefaultMaxAttempts, attempts)
	}
	// Retry restarts retrieval too, not just the parse.
	if searcher.calls != pipeline.DefaultMaxAttempts {
		t.Errorf("expected %d searches, got %d", pipeline.DefaultMaxAttempts, searcher.calls)
	}
}

func TestAdvise_ExhaustsRetries(t *testing.T) {
	attempts := 0
	chain := []core.Skill{
		&fakeSkill{
			name: "advise",
			invoke: func(ctx context.Context, vars *core.PipelineContext) (*core.SkillResult, error) {
				attempts++
				return &core.SkillResult{Text: "not-json", Success: true}, nil
			},
		},
	}

	p := pipeline.New(chain, "finance")

	_, err := p.Advise(context.Background(), testRequest())
	if !errors.Is(err, pipeline.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if err.Error() != "Failed to parse JSON data after retrying investments" {
		t.Errorf("unexpected error message: %q", err.Error())
	}
	if attempts != pipeline.DefaultMaxAttempts {
		t.Errorf("expected exactly %d attempts, got %d", pipeline.DefaultMaxAttempts, attempts)
	}
}

func TestAdvise_ProfileOutputsVisibleToAdvisor(t *testing.T) {
	chain := []core.Skill{
		staticSkill("get user age", "age", "34"),
		staticSkill("get annual household income", "income", "80000"),
		&fakeSkill{
			name: "investment advise",
			invoke: func(ctx context.Context, vars *core.PipelineContext) (*core.SkillResult, error) {
				age, ok := vars.Get("age")
				if !ok || age != "34" {
					return nil, fmt.Errorf("age not visible to advisor: %q", age)
				}
				income, ok := vars.Get("income")
				if !ok || income != "80000" {
					return nil, fmt.Errorf("income not visible to advisor: %q", income)
				}
				return &core.SkillResult{Text: `{"ok":true}`, Success: true}, nil
			},
		},
	}

	p := pipeline.New(chain, "finance")
	if _, err := p.Advise(context.Background(), testRequest()); err != nil {
		t.Fatalf("Advise failed: %v", err)
	}
}

func TestAdvise_FreshContextPerAttempt(t *testing.T) {
	attempts := 0
	chain := []core.Skill{
		&fakeSkill{
			name: "advise",
			invoke: func(ctx context.Context, vars *core.PipelineContext) (*core.SkillResult, error) {
				attempts++
				if _, leaked := vars.Get("scratch"); leaked {
					return nil, fmt.Errorf("variable leaked from a previous attempt")
				}
				vars.Set("scratch", "stale")
				if attempts == 1 {
					return &core.SkillResult{Text: "not-json", Success: true}, nil
				}
				return &core.SkillResult{Text: `{"ok":true}`, Success: true}, nil
			},
		},
	}

	p := pipeline.New(chain, "finance")
	if _, err := p.Advise(context.Background(), testRequest()); err != nil {
		t.Fatalf("Advise failed: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestAdvise_InitialContextVariables(t *testing.T) {
	var seen map[string]string
	chain := []core.Skill{
		&fakeSkill{
			name: "advise",
			invoke: func(ctx context.Context, vars *core.PipelineContext) (*core.SkillResult, error) {
				seen = vars.Map()
				return &core.SkillResult{Text: `{}`, Success: true}, nil
			},
		},
	}

	searcher := &fakeSearcher{}
	recaller := &fakeRecaller{}
	p := pipeline.New(chain, "finance",
		pipeline.WithSearch(searcher),
		pipeline.WithRecall(recaller),
	)

	if _, err := p.Advise(context.Background(), testRequest()); err != nil {
		t.Fatalf("Advise failed: %v", err)
	}

	checks := map[string]string{
		"userId":     "50",
		"voice":      "Warren",
		"risk":       "medium",
		"tickers":    "AAPL",
		"collection": "finance",
		"relevance":  "0.8",
		"limit":      "3",
		"bingResult": "inflation is around 3.2%",
	}
	for key, want := range checks {
		if seen[key] != want {
			t.Errorf("context %s: expected %q, got %q", key, want, seen[key])
		}
	}
	if seen["stocks"] != `[{"symbol":"AAPL"}]` {
		t.Errorf("unexpected stocks serialization: %q", seen["stocks"])
	}

	// Retrieval configuration comes from the context, not the recaller's own defaults.
	if recaller.collection != "finance" || recaller.limit != 3 || recaller.relevance != 0.8 {
		t.Errorf("unexpected retrieval config: collection=%q limit=%d relevance=%v",
			recaller.collection, recaller.limit, recaller.relevance)
	}
}

func TestAdvise_SearchFailureRetriedLikeParseFailure(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("search unavailable")}
	chainRuns := 0
	chain := []core.Skill{
		&fakeSkill{
			name: "advise",
			invoke: func(ctx context.Context, vars *core.PipelineContext) (*core.SkillResult, error) {
				chainRuns++
				return &core.SkillResult{Text: `{}`, Success: true}, nil
			},
		},
	}

	p := pipeline.New(chain, "finance", pipeline.WithSearch(searcher))

	_, err := p.Advise(context.Background(), testRequest())
	if !errors.Is(err, pipeline.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if searcher.calls != pipeline.DefaultMaxAttempts {
		t.Errorf("expected %d search attempts, got %d", pipeline.DefaultMaxAttempts, searcher.calls)
	}
	if chainRuns != 0 {
		t.Errorf("chain should not run when retrieval fails, ran %d times", chainRuns)
	}
}

func TestAdvise_SkillErrorAbortsChain(t *testing.T) {
	laterRuns := 0
	chain := []core.Skill{
		&fakeSkill{
			name: "get user age",
			invoke: func(ctx context.Context, vars *core.PipelineContext) (*core.SkillResult, error) {
				return nil, errors.New("model unavailable")
			},
		},
		&fakeSkill{
			name: "investment advise",
			invoke: func(ctx context.Context, vars *core.PipelineContext) (*core.SkillResult, error) {
				laterRuns++
				return &core.SkillResult{Text: `{}`, Success: true}, nil
			},
		},
	}

	p := pipeline.New(chain, "finance")
	if _, err := p.Advise(context.Background(), testRequest()); !errors.Is(err, pipeline.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if laterRuns != 0 {
		t.Errorf("later skill ran %d times after an earlier failure", laterRuns)
	}
}

func TestAdviseObserved_ReportsAttempts(t *testing.T) {
	attempts := 0
	chain := []core.Skill{
		&fakeSkill{
			name: "advise",
			invoke: func(ctx context.Context, vars *core.PipelineContext) (*core.SkillResult, error) {
				attempts++
				if attempts == 1 {
					return &core.SkillResult{Text: "not-json", Success: true}, nil
				}
				return &core.SkillResult{Text: `{}`, Success: true}, nil
			},
		},
	}

	p := pipeline.New(chain, "finance")

	var observed []int
	var observedErrs []error
	_, err := p.AdviseObserved(context.Background(), testRequest(), func(attempt int, err error) {
		observed = append(observed, attempt)
		observedErrs = append(observedErrs, err)
	})
	if err != nil {
		t.Fatalf("AdviseObserved failed: %v", err)
	}
	if len(observed) != 2 || observed[0] != 0 || observed[1] != 1 {
		t.Errorf("unexpected observed attempts: %v", observed)
	}
	if observedErrs[0] == nil {
		t.Error("first attempt should report its failure")
	}
	if observedErrs[1] != nil {
		t.Errorf("final attempt should report success, got %v", observedErrs[1])
	}
}

func TestAdvise_StripsNewlinesBeforeParse(t *testing.T) {
	chain := []core.Skill{
		&fakeSkill{
			name: "advise",
			invoke: func(ctx context.Context, vars *core.PipelineContext) (*core.SkillResult, error) {
				return &core.SkillResult{Text: "{\n\"advice\":\n\"hold\"\r\n}", Success: true}, nil
			},
		},
	}

	p := pipeline.New(chain, "finance")
	doc, err := p.Advise(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Advise failed: %v", err)
	}
	if string(doc) != `{"advice":"hold"}` {
		t.Errorf("expected newline-stripped document, got %q", doc)
	}
}
