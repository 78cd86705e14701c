package recipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"family-harmony/internal/sheetdb"
)

// ErrNotFound is returned when an id has no matching recipe.
var ErrNotFound = errors.New("recipe not found")

// ValuesAPI is the slice of the sheet client the repository needs.
type ValuesAPI interface {
	ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
	OverwriteRange(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error
	ClearRange(ctx context.Context, spreadsheetID, clearRange string) error
}

// Uploader stores a recipe image and returns its public view URL.
type Uploader interface {
	UploadImage(ctx context.Context, name, mimeType string, data io.Reader) (string, error)
}

// ImageUpload is an optional image accompanying a create or update.
type ImageUpload struct {
	Name     string
	MimeType string
	Data     io.Reader
}

// Repository holds the recipe book in memory and persists it to the
// Recipes tab. Every mutation rewrites the whole table (clear, then
// write): O(n) per write, but it keeps row order and the id column
// consistent without incremental bookkeeping. Mutations apply to the
// in-memory collection first; a failed write leaves local state as the
// source of truth and the next mutation rewrites everything anyway.
type Repository struct {
	values        ValuesAPI
	uploader      Uploader
	spreadsheetID string
	log           *zap.Logger

	mu      sync.Mutex
	recipes []Recipe

	now func() time.Time
}

// NewRepository creates a Repository. values and uploader may be nil
// in demo mode; persistence and uploads then become no-ops.
func NewRepository(values ValuesAPI, uploader Uploader, spreadsheetID string, log *zap.Logger) *Repository {
	return &Repository{
		values:        values,
		uploader:      uploader,
		spreadsheetID: spreadsheetID,
		log:           log,
		now:           time.Now,
	}
}

// Load reads the Recipes tab into memory.
func (r *Repository) Load(ctx context.Context) error {
	if r.values == nil {
		return nil
	}
	rows, err := r.values.ReadRange(ctx, r.spreadsheetID, sheetdb.RangeRecipes)
	if err != nil {
		return fmt.Errorf("failed to load recipes: %w", err)
	}

	recipes := make([]Recipe, 0, len(rows))
	for i, row := range rows {
		recipes = append(recipes, FromRow(row, i))
	}

	r.mu.Lock()
	r.recipes = recipes
	r.mu.Unlock()
	r.log.Info("recipes loaded", zap.Int("count", len(recipes)))
	return nil
}

// Seed replaces the in-memory collection without persisting. Used for
// demo mode.
func (r *Repository) Seed(recipes []Recipe) {
	r.mu.Lock()
	r.recipes = append([]Recipe(nil), recipes...)
	r.mu.Unlock()
}

// List returns a copy of the collection.
func (r *Repository) List() []Recipe {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recipe(nil), r.recipes...)
}

// Get returns a recipe by id.
func (r *Repository) Get(id string) (Recipe, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recipes {
		if rec.ID == id {
			return rec, true
		}
	}
	return Recipe{}, false
}

// Index returns the collection keyed by id.
func (r *Repository) Index() map[string]Recipe {
	r.mu.Lock()
	defer r.mu.Unlock()
	index := make(map[string]Recipe, len(r.recipes))
	for _, rec := range r.recipes {
		index[rec.ID] = rec
	}
	return index
}

// Create assigns a new id, uploads the image if present, appends the
// recipe and rewrites the table. Millisecond timestamps are unique
// enough at single-family scale.
func (r *Repository) Create(ctx context.Context, rec Recipe, image *ImageUpload) (Recipe, error) {
	if err := r.applyImage(ctx, &rec, image); err != nil {
		return Recipe{}, err
	}
	rec.ID = strconv.FormatInt(r.now().UnixMilli(), 10)

	r.mu.Lock()
	r.recipes = append(r.recipes, rec)
	r.mu.Unlock()

	if err := r.persist(ctx); err != nil {
		return rec, err
	}
	return rec, nil
}

// Update replaces the recipe with the matching id and rewrites the
// table.
func (r *Repository) Update(ctx context.Context, rec Recipe, image *ImageUpload) (Recipe, error) {
	if rec.ID == "" {
		return Recipe{}, fmt.Errorf("recipe id is required")
	}
	if err := r.applyImage(ctx, &rec, image); err != nil {
		return Recipe{}, err
	}

	r.mu.Lock()
	found := false
	for i := range r.recipes {
		if r.recipes[i].ID == rec.ID {
			r.recipes[i] = rec
			found = true
			break
		}
	}
	r.mu.Unlock()
	if !found {
		return Recipe{}, fmt.Errorf("recipe %s: %w", rec.ID, ErrNotFound)
	}

	if err := r.persist(ctx); err != nil {
		return rec, err
	}
	return rec, nil
}

// Delete removes a recipe by id and rewrites the table. The user
// confirmation happens in the UI before this is called.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	kept := r.recipes[:0]
	found := false
	for _, rec := range r.recipes {
		if rec.ID == id {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	r.recipes = kept
	r.mu.Unlock()

	if !found {
		return fmt.Errorf("recipe %s: %w", id, ErrNotFound)
	}
	return r.persist(ctx)
}

// applyImage uploads the image, if any, and substitutes the resulting
// public URL for the recipe's image field.
func (r *Repository) applyImage(ctx context.Context, rec *Recipe, image *ImageUpload) error {
	if image == nil || r.uploader == nil {
		return nil
	}
	url, err := r.uploader.UploadImage(ctx, image.Name, image.MimeType, image.Data)
	if err != nil {
		return fmt.Errorf("failed to upload recipe image: %w", err)
	}
	rec.ImageURL = url
	return nil
}

// persist rewrites the full Recipes range from memory.
func (r *Repository) persist(ctx context.Context) error {
	if r.values == nil {
		return nil
	}

	r.mu.Lock()
	values := make([][]interface{}, 0, len(r.recipes))
	for _, rec := range r.recipes {
		values = append(values, ToRow(rec))
	}
	r.mu.Unlock()

	if err := r.values.ClearRange(ctx, r.spreadsheetID, sheetdb.RangeRecipes); err != nil {
		return fmt.Errorf("failed to clear recipe table: %w", err)
	}
	if len(values) == 0 {
		return nil
	}
	if err := r.values.OverwriteRange(ctx, r.spreadsheetID, sheetdb.RangeRecipes, values); err != nil {
		return fmt.Errorf("failed to rewrite recipe table: %w", err)
	}
	return nil
}
