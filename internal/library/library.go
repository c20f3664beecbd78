// Package library imports owned games from storefronts into the store.
package library

import (
	"context"

	"github.com/desk-dashboard/internal/models"
	"github.com/desk-dashboard/internal/storage"
)

// Store is what importers need from the repository
type Store interface {
	storage.SettingGetter
	UpsertGame(ctx context.Context, game *models.Game) (bool, error)
}

// ImportResult summarises one import run
type ImportResult struct {
	Platform string
	Total    int // games reported by the storefront
	Imported int // newly created rows
	Updated  int
	Skipped  int // filtered out (engine assets and similar)
	Failed   int
	Errors   []error
}

// Record folds the outcome of one upsert into the result
func (r *ImportResult) Record(created bool, err error) {
	switch {
	case err != nil:
		r.Failed++
		r.Errors = append(r.Errors, err)
	case created:
		r.Imported++
	default:
		r.Updated++
	}
}
