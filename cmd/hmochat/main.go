// Command hmochat is a CLI front end for the HMO benefits dialogue core:
// it wires configuration, an LLM/embeddings client, the HTML knowledge
// base, the query-embedding-cached retriever, and the two-phase
// orchestrator together, then drives a single interactive session over
// stdin/stdout. There is no HTTP gateway here (spec.md's Non-goals) —
// just the composition root a real gateway would sit behind.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hmo-benefits-core/internal/config"
	"hmo-benefits-core/internal/dialogue"
	"hmo-benefits-core/internal/kb"
	"hmo-benefits-core/internal/kb/pgcache"
	"hmo-benefits-core/internal/llmclient"
	"hmo-benefits-core/internal/profile"
	"hmo-benefits-core/internal/retriever"
)

func main() {
	ctx := context.Background()

	logger, err := config.InitLogger()
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup(logger)
	cfg := config.Load(logger)

	llm := llmclient.New(cfg.Endpoint, cfg.APIKey, cfg.ChatDeployment, cfg.EmbeddingsDeployment,
		cfg.MaxRetries, cfg.BackoffBaseS, cfg.RequestTimeoutS, logger)

	var pgMirror kb.PostgresMirror
	if cfg.PostgresCacheEnabled && cfg.PostgresDSN != "" {
		store, err := pgcache.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Warn("postgres secondary cache unavailable, continuing without it", zap.Error(err))
		} else {
			defer store.Close()
			pgMirror = store
		}
	}

	knowledgeBase, err := kb.New(ctx, llm, kb.Options{
		KBDir:                cfg.KBDir,
		CacheDir:             cfg.CacheDir,
		EmbeddingsDeployment: cfg.EmbeddingsDeployment,
		CacheSchemaVersion:   cfg.CacheSchemaVersion,
		EmbeddingBatchSize:   cfg.EmbeddingBatchSize,
		BlurbSplitCharMin:    cfg.BlurbSplitCharMin,
		HMOMismatchBias:      cfg.HMOMismatchBias,
		TierMatchBias:        cfg.TierMatchBias,
		Splitter:             kb.NewProseSentenceSplitter(logger),
		PGMirror:             pgMirror,
		Logger:               logger,
	})
	if err != nil {
		logger.Fatal("failed to build knowledge base", zap.Error(err))
	}
	logger.Info("knowledge base ready", zap.String("fingerprint", knowledgeBase.Fingerprint()), zap.Int("chunks", knowledgeBase.Size()))

	retr, err := retriever.New(knowledgeBase, llm, cfg.QueryEmbedCacheSize, logger)
	if err != nil {
		logger.Fatal("failed to build retriever", zap.Error(err))
	}

	orch := dialogue.New(dialogue.Config{
		MaxHistoryChars: cfg.MaxHistoryChars,
		MaxContextChars: cfg.MaxContextChars,
		TopK:            cfg.TopK,
	}, llm, retr, logger)

	logger.Info("starting hmochat in CLI mode")
	sessionID := uuid.NewString()
	sb := dialogue.SessionBundle{
		UserProfile: profile.UserProfile{},
		History:     dialogue.ConversationHistory{},
		Phase:       profile.PhaseInfoCollection,
		Locale:      profile.LocaleHE,
		RequestID:   sessionID,
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Printf("hmochat session %s. type 'exit' to quit.\n", sessionID)
	fmt.Print("> ")
	for scanner.Scan() {
		input := scanner.Text()
		if input == "exit" {
			break
		}
		if input == "" {
			fmt.Print("> ")
			continue
		}

		resp, err := orch.Handle(ctx, dialogue.ChatRequest{SessionBundle: sb, UserInput: input})
		if err != nil {
			logger.Error("orchestrator error", zap.Error(err))
			fmt.Println("an internal error occurred, please try again")
			fmt.Print("> ")
			continue
		}

		sb.UserProfile = resp.UserProfile
		sb.Phase = resp.SuggestedPhase
		sb.History = resp.History

		fmt.Println(resp.AssistantText)
		if len(resp.Citations) > 0 {
			fmt.Println("sources:")
			for _, c := range resp.Citations {
				fmt.Printf("  - %s\n", c)
			}
		}
		fmt.Print("> ")
	}

	if err := scanner.Err(); err != nil {
		logger.Error("error reading from stdin", zap.Error(err))
	}
}
