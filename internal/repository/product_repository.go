package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const productColumns = `id, name, category, original_price, discount_percent, final_price,
	sizes, colors, stock, photo_url, description, on_sale, created_at`

var columns = map[catalog.Field]string{
	catalog.FieldID:         "id",
	catalog.FieldCategory:   "category",
	catalog.FieldColors:     "colors",
	catalog.FieldSizes:      "sizes",
	catalog.FieldFinalPrice: "final_price",
	catalog.FieldOnSale:     "on_sale",
	catalog.FieldCreatedAt:  "created_at",
}

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(dbPath string) (*ProductRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// every connection to ":memory:" is its own database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	return &ProductRepository{db: db}, nil
}

func (r *ProductRepository) RunMigrations() error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// Find executes a catalog query. No matching rows is an empty slice.
func (r *ProductRepository) Find(ctx context.Context, q catalog.Query) ([]domain.Product, error) {
	query, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Insert stores a product row. Sizes and colours are de-duplicated in order.
func (r *ProductRepository) Insert(ctx context.Context, p *domain.Product) error {
	sizes, err := json.Marshal(domain.UniqueLabels(p.Sizes))
	if err != nil {
		return fmt.Errorf("failed to encode sizes: %w", err)
	}
	colors, err := json.Marshal(domain.UniqueLabels(p.Colors))
	if err != nil {
		return fmt.Errorf("failed to encode colors: %w", err)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO products (` + productColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		string(p.Category),
		p.OriginalPrice.InexactFloat64(),
		p.DiscountPercent,
		p.FinalPrice.InexactFloat64(),
		string(sizes),
		string(colors),
		p.Stock,
		p.PhotoURL,
		p.Description,
		p.OnSale,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*domain.Product, error) {
	var (
		p                   domain.Product
		category            string
		original, final     float64
		sizesJSON, colorsJS string
	)
	err := s.Scan(
		&p.ID,
		&p.Name,
		&category,
		&original,
		&p.DiscountPercent,
		&final,
		&sizesJSON,
		&colorsJS,
		&p.Stock,
		&p.PhotoURL,
		&p.Description,
		&p.OnSale,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	p.Category = domain.Category(category)
	p.OriginalPrice = decimal.NewFromFloat(original)
	p.FinalPrice = decimal.NewFromFloat(final)
	if err := json.Unmarshal([]byte(sizesJSON), &p.Sizes); err != nil {
		return nil, fmt.Errorf("failed to decode sizes of %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(colorsJS), &p.Colors); err != nil {
		return nil, fmt.Errorf("failed to decode colors of %s: %w", p.ID, err)
	}
	return &p, nil
}

func buildSelect(q catalog.Query) (string, []any, error) {
	var (
		sb    strings.Builder
		where []string
		args  []any
	)
	sb.WriteString(`SELECT ` + productColumns + ` FROM products`)

	for _, pred := range q.Predicates {
		col, ok := columns[pred.Field]
		if !ok {
			return "", nil, fmt.Errorf("unsupported field %q", pred.Field)
		}
		value := sqlValue(pred.Value)

		switch pred.Op {
		case catalog.OpEq:
			where = append(where, col+" = ?")
		case catalog.OpNeq:
			where = append(where, col+" <> ?")
		case catalog.OpGte:
			where = append(where, col+" >= ?")
		case catalog.OpLte:
			where = append(where, col+" <= ?")
		case catalog.OpContains:
			if pred.Field != catalog.FieldColors && pred.Field != catalog.FieldSizes {
				return "", nil, fmt.Errorf("contains is not supported on %q", pred.Field)
			}
			where = append(where, fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(products.%s) WHERE json_each.value = ?)", col))
		default:
			return "", nil, fmt.Errorf("unsupported operator %q", pred.Op)
		}
		args = append(args, value)
	}

	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	orderCol, ok := columns[q.Order.Field]
	if !ok {
		orderCol = "created_at"
	}
	dir := "ASC"
	if q.Order.Descending {
		dir = "DESC"
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s, id ASC", orderCol, dir)

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}
	return sb.String(), args, nil
}

func sqlValue(v any) any {
	switch t := v.(type) {
	case decimal.Decimal:
		return t.InexactFloat64()
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return v
	}
}
