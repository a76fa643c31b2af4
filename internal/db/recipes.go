package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/socialchef/chef/internal/recipe"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrRecipeNotFound is returned by Get for unknown ids.
var ErrRecipeNotFound = errors.New("recipe not found")

// Recipe is a generated record together with the request that produced it.
type Recipe struct {
	ID        uuid.UUID      `json:"id"`
	Items     []string       `json:"items"`
	Chef      string         `json:"chef"`
	Record    *recipe.Record `json:"recipe"`
	CreatedAt time.Time      `json:"created_at"`
}

// RecipeStore persists generated recipes. A store without a database is disabled.
type RecipeStore struct {
	db DBTX
}

func NewRecipeStore(db DBTX) *RecipeStore {
	return &RecipeStore{db: db}
}

// Enabled reports whether the store writes to a database.
func (s *RecipeStore) Enabled() bool {
	return s != nil && s.db != nil
}

const insertRecipe = `-- name: CreateRecipe :exec
INSERT INTO recipes (id, items, chef, title, ingredients, directions, image_url, image, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// Save inserts r, assigning an id and timestamp when they are unset.
func (s *RecipeStore) Save(ctx context.Context, r *Recipe) error {
	if !s.Enabled() {
		return nil
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	items := r.Items
	if items == nil {
		items = []string{}
	}
	rec := r.Record
	if rec == nil {
		rec = recipe.NewRecord()
	}
	ingredients, err := json.Marshal(rec.Ingredients)
	if err != nil {
		return err
	}
	directions, err := json.Marshal(rec.Directions)
	if err != nil {
		return err
	}
	var imageURL *string
	var image []byte
	if rec.Image != nil {
		imageURL = &rec.Image.URL
		if image, err = json.Marshal(rec.Image); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(ctx, insertRecipe,
		r.ID, items, r.Chef, rec.Title, ingredients, directions, imageURL, image, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recipe %s: %w", r.ID, err)
	}
	return nil
}

const getRecipe = `-- name: GetRecipe :one
SELECT id, items, chef, title, ingredients, directions, image, created_at
FROM recipes
WHERE id = $1
`

// Get loads the recipe with id.
func (s *RecipeStore) Get(ctx context.Context, id uuid.UUID) (*Recipe, error) {
	if !s.Enabled() {
		return nil, ErrRecipeNotFound
	}

	var (
		r           Recipe
		rec         = recipe.NewRecord()
		ingredients []byte
		directions  []byte
		image       []byte
	)
	err := s.db.QueryRow(ctx, getRecipe, id).Scan(
		&r.ID, &r.Items, &r.Chef, &rec.Title, &ingredients, &directions, &image, &r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecipeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe %s: %w", id, err)
	}

	if err := unmarshalList(ingredients, &rec.Ingredients); err != nil {
		return nil, err
	}
	if err := unmarshalList(directions, &rec.Directions); err != nil {
		return nil, err
	}
	if len(image) > 0 {
		rec.Image = &recipe.Image{}
		if err := json.Unmarshal(image, rec.Image); err != nil {
			return nil, fmt.Errorf("failed to decode recipe image: %w", err)
		}
	}
	r.Record = rec
	return &r, nil
}

func unmarshalList(data []byte, dst *[]string) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode recipe list: %w", err)
	}
	if *dst == nil {
		*dst = []string{}
	}
	return nil
}
