package main

import (
	"log"
	"path/filepath"

	"github.com/placementarchive/expindex/internal/config"
	"github.com/placementarchive/expindex/internal/embedding"
	"github.com/placementarchive/expindex/internal/retrieval"
	"github.com/placementarchive/expindex/internal/store"
	"github.com/placementarchive/expindex/internal/textindex"
)

// deps holds everything a subcommand needs wired together
type deps struct {
	db     *store.DB
	exps   *store.ExperienceStore
	pool   *embedding.Pool
	text   *textindex.Index
	engine *retrieval.Engine
}

// openDeps wires the store, the embedding pool, the keyword index
// and the engine from config. Call close when done.
func openDeps(cfg *config.Config, withText bool) (*deps, error) {
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	svc, err := embedding.NewService(&cfg.Embedding)
	if err != nil {
		db.Close()
		return nil, err
	}
	pool := embedding.NewPool(svc, cfg.Embedding.Workers)

	var text *textindex.Index
	if withText {
		text, err = textindex.Open(filepath.Join(cfg.Index.Dir, "text"))
		if err != nil {
			pool.Close()
			db.Close()
			return nil, err
		}
	}

	engine, err := retrieval.NewEngine(cfg, store.NewExperienceStore(db), pool, text, log.Default())
	if err != nil {
		if text != nil {
			text.Close()
		}
		pool.Close()
		db.Close()
		return nil, err
	}

	return &deps{
		db:     db,
		exps:   store.NewExperienceStore(db),
		pool:   pool,
		text:   text,
		engine: engine,
	}, nil
}

func (d *deps) close() {
	if err := d.engine.Close(); err != nil {
		log.Printf("failed to persist index on shutdown: %v", err)
	}
	if d.text != nil {
		if err := d.text.Close(); err != nil {
			log.Printf("failed to close keyword index: %v", err)
		}
	}
	d.pool.Close()
	if err := d.db.Close(); err != nil {
		log.Printf("failed to close database: %v", err)
	}
}
