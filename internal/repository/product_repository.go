package repository

import (
	"context"
	"errors"

	"insightlens/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ProductRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProductRepository(db *pgxpool.Pool, logger *zap.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	query := squirrel.Insert("products").
		Columns("id", "name", "category").
		Values(p.ID, p.Name, p.Category).
		Suffix("ON CONFLICT (id) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ProductRepository) CreateBatch(ctx context.Context, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}

	builder := squirrel.Insert("products").
		Columns("id", "name", "category").
		Suffix("ON CONFLICT (id) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)

	for _, p := range products {
		builder = builder.Values(p.ID, p.Name, p.Category)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// GetByID returns (nil, nil) when the product does not exist so callers can
// distinguish not-found from storage failure.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	query := squirrel.Select("id", "name", "category").
		From("products").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var p models.Product
	err = r.db.QueryRow(ctx, sql, args...).Scan(&p.ID, &p.Name, &p.Category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &p, nil
}

func (r *ProductRepository) ListCategories(ctx context.Context) ([]string, error) {
	query := squirrel.Select("DISTINCT category").
		From("products").
		OrderBy("category").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}
