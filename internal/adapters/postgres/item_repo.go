package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
)

// ItemRepo implements ports.ItemStore on a PostGIS items table. The center
// column holds the geospatial.Center of each geometry and backs bounds queries.
type ItemRepo struct {
	db *DB
}

// NewItemRepo creates a new ItemRepo.
func NewItemRepo(db *DB) *ItemRepo {
	return &ItemRepo{db: db}
}

const itemColumns = `id, title, item_type, ST_AsGeoJSON(geom), COALESCE(address, '')`

const upsertItemSQL = `
	INSERT INTO items (id, title, item_type, geom, center, address, updated_at)
	VALUES ($1, $2, $3, ST_SetSRID(ST_GeomFromGeoJSON($4), 4326),
	        ST_SetSRID(ST_MakePoint($5, $6), 4326), NULLIF($7, ''), now())
	ON CONFLICT (id) DO UPDATE
	SET title = EXCLUDED.title, item_type = EXCLUDED.item_type,
	    geom = EXCLUDED.geom, center = EXCLUDED.center,
	    address = EXCLUDED.address, updated_at = now()
`

// List returns all items ordered by title.
func (r *ItemRepo) List(ctx context.Context) ([]domain.Item, error) {
	return r.query(ctx, `SELECT `+itemColumns+` FROM items ORDER BY title`)
}

// ListByType returns items of a single type.
func (r *ItemRepo) ListByType(ctx context.Context, itemType domain.ItemType) ([]domain.Item, error) {
	return r.query(ctx, `SELECT `+itemColumns+` FROM items WHERE item_type = $1 ORDER BY title`, string(itemType))
}

// GetByID returns a single item or domain.ErrNotFound.
func (r *ItemRepo) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts an item.
func (r *ItemRepo) Create(ctx context.Context, item *domain.Item) error {
	args, err := upsertArgs(item)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO items (id, title, item_type, geom, center, address)
		VALUES ($1, $2, $3, ST_SetSRID(ST_GeomFromGeoJSON($4), 4326),
		        ST_SetSRID(ST_MakePoint($5, $6), 4326), NULLIF($7, ''))
	`, args...)
	return err
}

// Update overwrites an existing item, returning domain.ErrNotFound if absent.
func (r *ItemRepo) Update(ctx context.Context, item *domain.Item) error {
	args, err := upsertArgs(item)
	if err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE items
		SET title = $2, item_type = $3,
		    geom = ST_SetSRID(ST_GeomFromGeoJSON($4), 4326),
		    center = ST_SetSRID(ST_MakePoint($5, $6), 4326),
		    address = NULLIF($7, ''), updated_at = now()
		WHERE id = $1
	`, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", item.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes an item, returning domain.ErrNotFound if absent.
func (r *ItemRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// FindInBounds returns items whose center lies inside bbox, edges included.
func (r *ItemRepo) FindInBounds(ctx context.Context, bbox geospatial.BoundingBox) ([]domain.Item, error) {
	return r.query(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE ST_Intersects(center, ST_MakeEnvelope($1, $2, $3, $4, 4326))
		ORDER BY title
	`, bbox.MinLng(), bbox.MinLat(), bbox.MaxLng(), bbox.MaxLat())
}

// UpsertBatch inserts or updates many items using pgx.Batch.
func (r *ItemRepo) UpsertBatch(ctx context.Context, items []domain.Item) error {
	batch := &pgx.Batch{}
	for i := range items {
		args, err := upsertArgs(&items[i])
		if err != nil {
			return err
		}
		batch.Queue(upsertItemSQL, args...)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range items {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

func (r *ItemRepo) query(ctx context.Context, sql string, args ...any) ([]domain.Item, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(row pgx.Row) (domain.Item, error) {
	var (
		item     domain.Item
		itemType string
		geom     []byte
	)
	if err := row.Scan(&item.ID, &item.Title, &itemType, &geom, &item.Address); err != nil {
		return item, err
	}
	item.ItemType = domain.ItemType(itemType)
	g, err := geospatial.UnmarshalGeometry(geom)
	if err != nil {
		return item, fmt.Errorf("item %s geometry: %w", item.ID, err)
	}
	item.Geometry = g
	return item, nil
}

func upsertArgs(item *domain.Item) ([]any, error) {
	center, err := item.Center()
	if err != nil {
		return nil, err
	}
	geom, err := json.Marshal(item.Geometry)
	if err != nil {
		return nil, fmt.Errorf("encode geometry: %w", err)
	}
	return []any{
		item.ID, item.Title, string(item.ItemType), string(geom),
		center.Lng(), center.Lat(), item.Address,
	}, nil
}
