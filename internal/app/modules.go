package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/registry"
	"github.com/specialistvlad/nodegrid/modules/arith"
	"github.com/specialistvlad/nodegrid/modules/env"
	"github.com/specialistvlad/nodegrid/modules/httpreq"
	"github.com/specialistvlad/nodegrid/modules/llm"
	"github.com/specialistvlad/nodegrid/modules/logic"
	"github.com/specialistvlad/nodegrid/modules/socketio"
	"github.com/specialistvlad/nodegrid/modules/text"
	"github.com/specialistvlad/nodegrid/modules/vectordb"
)

// coreModules returns every module compiled into the nodegrid binary,
// wired to the clients and stores selected by the configuration.
func (a *App) coreModules(ctx context.Context) ([]registry.Module, error) {
	logger := ctxlog.FromContext(ctx)

	var llmClient llm.Client
	if a.config.OpenAIKey != "" {
		llmClient = llm.NewOpenAIClient(a.config.OpenAIKey, a.config.OpenAIBaseURL)
	} else {
		logger.Debug("OPENAI_API_KEY not set, LLM nodes will report an error.")
	}

	var store vectordb.Store
	switch a.config.VectorBackend {
	case "pgvector":
		pg, err := vectordb.NewPGStore(ctx, a.config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("vector store: %w", err)
		}
		store = pg
	default:
		store = vectordb.NewMemoryStore()
	}
	a.closers = append(a.closers, store.Close)
	logger.Debug("Vector store ready.", "backend", a.config.VectorBackend)

	return []registry.Module{
		&arith.Module{},
		&logic.Module{},
		&text.Module{},
		&env.Module{},
		&llm.Module{Client: llmClient},
		&vectordb.Module{Store: store},
		&httpreq.Module{Client: httpreq.NewClient(httpreq.DefaultTimeout)},
		&socketio.Module{},
	}, nil
}
