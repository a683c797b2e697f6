// Advisor service: personalized investment recommendations through a
// retrieval-augmented skill chain.
package main

import (
	"context"
	"log"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/finquill/advisor/audit"
	"github.com/finquill/advisor/config"
	"github.com/finquill/advisor/memory"
	"github.com/finquill/advisor/memory/store/chromem"
	"github.com/finquill/advisor/pipeline"
	"github.com/finquill/advisor/search"
	"github.com/finquill/advisor/server"
	"github.com/finquill/advisor/skills"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	// Model client and skill chain
	client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicKey))
	completer := skills.NewAnthropicCompleter(&client, cfg.Model)
	chain, err := skills.InvestmentChain(completer)
	if err != nil {
		log.Fatalf("❌ Failed to build skill chain: %v", err)
	}
	log.Printf("✅ Skill chain configured (%d skills, model %s)", len(chain), cfg.Model)

	// Web search with read-through cache
	tavily := search.NewTavily(search.TavilyConfig{APIKey: cfg.TavilyKey})
	searcher, err := search.NewCached(tavily, time.Duration(cfg.SearchCacheTTL)*time.Second)
	if err != nil {
		log.Fatalf("❌ Failed to build search cache: %v", err)
	}
	log.Println("✅ Web search configured (Tavily)")

	// Semantic memory
	store, err := chromem.New()
	if err != nil {
		log.Fatalf("❌ Failed to create vector store: %v", err)
	}
	defer store.Close()

	embedder, closeEmbedder, err := newEmbedder()
	if err != nil {
		log.Fatalf("❌ Failed to create embedder: %v", err)
	}
	defer closeEmbedder()

	recall := memory.NewRecall(store, embedder)
	if cfg.SeedFile != "" {
		n, err := recall.SeedFromFile(context.Background(), cfg.Collection, cfg.SeedFile)
		if err != nil {
			log.Fatalf("❌ Failed to seed memory: %v", err)
		}
		log.Printf("✅ Memory seeded with %d facts", n)
	}
	log.Printf("✅ Memory configured (chromem-go, collection %s)", cfg.Collection)

	// Run audit log
	auditStore, err := audit.Open(cfg.AuditDBPath)
	if err != nil {
		log.Fatalf("❌ Failed to open audit store: %v", err)
	}
	defer auditStore.Close()

	// Token accounting is observability only; run without it if the
	// encoding cannot be loaded.
	opts := []pipeline.Option{
		pipeline.WithSearch(searcher),
		pipeline.WithRecall(recall),
		pipeline.WithAudit(auditStore),
	}
	counter, err := pipeline.NewTokenCounter()
	if err != nil {
		log.Printf("⚠️ Token counter unavailable: %v", err)
	} else {
		opts = append(opts, pipeline.WithTokenCounter(counter))
	}

	p := pipeline.New(chain, cfg.Collection, opts...)
	srv := server.New(p, time.Duration(cfg.RequestTimeout)*time.Second)

	log.Printf("🚀 Advisor endpoint: http://localhost:%s/advisor", cfg.Port)
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
