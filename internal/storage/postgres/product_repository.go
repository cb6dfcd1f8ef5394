package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adepetun22/shopapp/internal/domain"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

const productColumns = `
	id, name, description, price, original_price, category, subcategory, brand,
	images, colors, features, stock, rating_average, rating_count,
	is_featured, is_on_sale, created_at, updated_at`

func (r *productRepository) Create(product domain.Product) error {
	ctx, cancel := opContext()
	defer cancel()

	images, colors, features, err := marshalProductJSON(product)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`,
		product.ID, product.Name, product.Description, product.Price, product.OriginalPrice,
		product.Category, product.Subcategory, product.Brand,
		images, colors, features, product.Stock,
		product.Rating.Average, product.Rating.Count,
		product.IsFeatured, product.IsOnSale, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *productRepository) Get(id string) (domain.Product, error) {
	ctx, cancel := opContext()
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

// List строит условие WHERE из непустых полей фильтра; поиск выполняется
// ILIKE по имени и описанию, как это делал исходный API.
func (r *productRepository) List(filter domain.ProductFilter) ([]domain.Product, int, error) {
	ctx, cancel := opContext()
	defer cancel()

	where, args := buildProductWhere(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultPageLimit
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	query := `SELECT ` + productColumns + ` FROM products` + where +
		orderClause(filter.Sort) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, limit)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, total, nil
}

func (r *productRepository) Update(product domain.Product) error {
	ctx, cancel := opContext()
	defer cancel()

	images, colors, features, err := marshalProductJSON(product)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1, description = $2, price = $3, original_price = $4,
		    category = $5, subcategory = $6, brand = $7,
		    images = $8, colors = $9, features = $10, stock = $11,
		    rating_average = $12, rating_count = $13,
		    is_featured = $14, is_on_sale = $15, updated_at = $16
		WHERE id = $17
	`,
		product.Name, product.Description, product.Price, product.OriginalPrice,
		product.Category, product.Subcategory, product.Brand,
		images, colors, features, product.Stock,
		product.Rating.Average, product.Rating.Count,
		product.IsFeatured, product.IsOnSale, product.UpdatedAt, product.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return requireAffected(res, domain.ErrProductNotFound)
}

func (r *productRepository) Delete(id string) error {
	ctx, cancel := opContext()
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return requireAffected(res, domain.ErrProductNotFound)
}

func (r *productRepository) Categories() ([]string, error) {
	return r.distinct(`SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category`)
}

func (r *productRepository) Brands() ([]string, error) {
	return r.distinct(`SELECT DISTINCT brand FROM products WHERE brand <> '' ORDER BY brand`)
}

func (r *productRepository) distinct(query string) ([]string, error) {
	ctx, cancel := opContext()
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct query: %w", err)
	}
	defer rows.Close()

	result := make([]string, 0)
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan distinct value: %w", err)
		}
		result = append(result, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distinct rows: %w", err)
	}
	return result, nil
}

// DecrementStock выполняет условный UPDATE: сток уменьшается только если
// остатка хватает. Проверка и запись атомарны на стороне базы, поэтому
// конкурентные checkout не могут продать один остаток дважды.
func (r *productRepository) DecrementStock(id string, qty int) error {
	if qty <= 0 {
		return domain.ErrQuantityInvalid
	}

	ctx, cancel := opContext()
	defer cancel()

	var name string
	err := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2
		RETURNING name
	`, id, qty, time.Now().UTC()).Scan(&name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("decrement stock: %w", err)
	}

	// UPDATE не зацепил строку: либо продукта нет, либо стока не хватило.
	err = r.db.QueryRowContext(ctx, `SELECT name FROM products WHERE id = $1`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("check product exists: %w", err)
	}
	return domain.NewInsufficientStock(name)
}

func (r *productRepository) IncrementStock(id string, qty int) error {
	if qty <= 0 {
		return domain.ErrQuantityInvalid
	}

	ctx, cancel := opContext()
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = $3
		WHERE id = $1
	`, id, qty, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	return requireAffected(res, domain.ErrProductNotFound)
}

func (r *productRepository) SetRating(id string, rating domain.Rating) error {
	ctx, cancel := opContext()
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET rating_average = $2, rating_count = $3, updated_at = $4
		WHERE id = $1
	`, id, rating.Average, rating.Count, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set product rating: %w", err)
	}
	return requireAffected(res, domain.ErrProductNotFound)
}

func buildProductWhere(f domain.ProductFilter) (string, []any) {
	conds := make([]string, 0, 6)
	args := make([]any, 0, 6)

	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Brand != "" {
		add("brand = $%d", f.Brand)
	}
	if f.MinPrice > 0 {
		add("price >= $%d", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		add("price <= $%d", f.MaxPrice)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if f.Featured {
		conds = append(conds, "is_featured")
	}
	if f.OnSale {
		conds = append(conds, "is_on_sale")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(sort domain.ProductSort) string {
	switch sort {
	case domain.SortPriceAsc:
		return " ORDER BY price ASC, id DESC"
	case domain.SortPriceDesc:
		return " ORDER BY price DESC, id DESC"
	case domain.SortRating:
		return " ORDER BY rating_average DESC, id DESC"
	default:
		return " ORDER BY created_at DESC, id DESC"
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		product                 domain.Product
		images, colors, feature []byte
	)
	if err := row.Scan(
		&product.ID, &product.Name, &product.Description, &product.Price, &product.OriginalPrice,
		&product.Category, &product.Subcategory, &product.Brand,
		&images, &colors, &feature, &product.Stock,
		&product.Rating.Average, &product.Rating.Count,
		&product.IsFeatured, &product.IsOnSale, &product.CreatedAt, &product.UpdatedAt,
	); err != nil {
		return domain.Product{}, err
	}

	if err := json.Unmarshal(images, &product.Images); err != nil {
		return domain.Product{}, fmt.Errorf("decode product images: %w", err)
	}
	if err := json.Unmarshal(colors, &product.Colors); err != nil {
		return domain.Product{}, fmt.Errorf("decode product colors: %w", err)
	}
	if err := json.Unmarshal(feature, &product.Features); err != nil {
		return domain.Product{}, fmt.Errorf("decode product features: %w", err)
	}
	return product, nil
}

func marshalProductJSON(product domain.Product) (images, colors, features []byte, err error) {
	if product.Images == nil {
		product.Images = []domain.ProductImage{}
	}
	if product.Colors == nil {
		product.Colors = []domain.ProductColor{}
	}
	if product.Features == nil {
		product.Features = []string{}
	}

	if images, err = json.Marshal(product.Images); err != nil {
		return nil, nil, nil, fmt.Errorf("encode product images: %w", err)
	}
	if colors, err = json.Marshal(product.Colors); err != nil {
		return nil, nil, nil, fmt.Errorf("encode product colors: %w", err)
	}
	if features, err = json.Marshal(product.Features); err != nil {
		return nil, nil, nil, fmt.Errorf("encode product features: %w", err)
	}
	return images, colors, features, nil
}

func requireAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
