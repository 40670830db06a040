package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/nodegrid/internal/pgstate"
	"github.com/specialistvlad/nodegrid/internal/statefile"
)

// pathStore treats document names as file paths.
type pathStore struct{}

func (pathStore) Save(ctx context.Context, path string, doc *statefile.Document) error {
	return statefile.SaveFile(ctx, path, doc)
}

func (pathStore) Load(ctx context.Context, path string) (*statefile.Document, error) {
	return statefile.LoadFile(ctx, path)
}

// openStateStore returns the configured state backend, or nil when neither
// state-in nor state-out is set.
func (a *App) openStateStore(ctx context.Context) (statefile.Store, func(), error) {
	if a.config.StateIn == "" && a.config.StateOut == "" {
		return nil, func() {}, nil
	}
	if a.config.StateBackend != "postgres" {
		return pathStore{}, func() {}, nil
	}

	pg, err := pgstate.Connect(ctx, a.config.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("state store: %w", err)
	}
	if err := pg.CreateSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, fmt.Errorf("state store schema: %w", err)
	}
	return pg, pg.Close, nil
}
