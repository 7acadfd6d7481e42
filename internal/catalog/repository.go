package catalog

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository struct {
	db *pgxpool.Pool

	mu        sync.Mutex
	lockConns map[string]*pgxpool.Conn
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db, lockConns: make(map[string]*pgxpool.Conn)}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// GetOrCreateStore возвращает магазин по имени, создавая его при первом
// обращении. URL существующей записи не трогаем.
func (r *Repository) GetOrCreateStore(ctx context.Context, spec StoreSpec) (Store, error) {
	var s Store
	err := r.db.QueryRow(ctx,
		`SELECT id, name, url FROM stores WHERE name = $1`,
		spec.Name).Scan(&s.ID, &s.Name, &s.URL)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Store{}, fmt.Errorf("looking up store %q: %w", spec.Name, err)
	}

	err = r.db.QueryRow(ctx,
		`INSERT INTO stores (name, url) VALUES ($1, $2) RETURNING id, name, url`,
		spec.Name, spec.URL).Scan(&s.ID, &s.Name, &s.URL)
	if err != nil {
		return Store{}, fmt.Errorf("creating store %q: %w", spec.Name, err)
	}
	return s, nil
}

// FindStore ищет магазин без создания; ok=false если записи нет.
func (r *Repository) FindStore(ctx context.Context, name string) (Store, bool, error) {
	var s Store
	err := r.db.QueryRow(ctx,
		`SELECT id, name, url FROM stores WHERE name = $1`, name).
		Scan(&s.ID, &s.Name, &s.URL)
	if errors.Is(err, pgx.ErrNoRows) {
		return Store{}, false, nil
	}
	if err != nil {
		return Store{}, false, err
	}
	return s, true, nil
}

func (r *Repository) FindProductByNameAndStore(ctx context.Context, name string, storeID int) (Product, bool, error) {
	const q = `
SELECT id, name, (price::text), currency, url, description, is_enriched, store_id, created_at
FROM products
WHERE name = $1 AND store_id = $2
LIMIT 1;
`
	p, err := scanProduct(r.db.QueryRow(ctx, q, name, storeID), false)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, err
	}
	return p, true, nil
}

func (r *Repository) InsertProduct(ctx context.Context, p *Product) (int, error) {
	sql, args, err := psql.Insert("products").
		SetMap(map[string]interface{}{
			"name":     p.Name,
			"price":    squirrel.Expr("?::numeric", p.Price.String()),
			"currency": p.Currency,
			"url":      p.URL,
			"store_id": p.StoreID,
		}).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building insert: %w", err)
	}
	var id int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&id, &p.CreatedAt); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repository) UpdateProductPrice(ctx context.Context, id int, price decimal.Decimal) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET price = $2::numeric WHERE id = $1`,
		id, price.String())
	if err != nil {
		return fmt.Errorf("updating price for product %d: %w", id, err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("price update for product %d affected %d rows", id, tag.RowsAffected())
	}
	return nil
}

// UpdateProductDescription записывает описание и поднимает флаг is_enriched.
// Флаг монотонный: уже обогащённые строки не трогаем.
func (r *Repository) UpdateProductDescription(ctx context.Context, id int, description string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE products SET description = $2, is_enriched = TRUE
		 WHERE id = $1 AND is_enriched = FALSE`,
		id, description)
	if err != nil {
		return fmt.Errorf("updating description for product %d: %w", id, err)
	}
	return nil
}

// ListProductsNeedingEnrichment выбирает кандидатов на обогащение: без
// описания, с не поднятым флагом и с URL настоящей карточки товара.
func (r *Repository) ListProductsNeedingEnrichment(ctx context.Context, storeID int, urlMarker string) ([]Product, error) {
	q := psql.Select("id", "name", "(price::text)", "currency", "url",
		"description", "is_enriched", "store_id", "created_at").
		From("products").
		Where(squirrel.Eq{"store_id": storeID, "is_enriched": false}).
		Where("description IS NULL")
	if urlMarker != "" {
		q = q.Where("url LIKE ?", "%"+urlMarker+"%")
	}
	sql, args, err := q.OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building enrichment query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows, false)
}

// ListAllProducts возвращает весь каталог вместе с именем магазина.
func (r *Repository) ListAllProducts(ctx context.Context) ([]Product, error) {
	const q = `
SELECT p.id, p.name, (p.price::text), p.currency, p.url, p.description,
       p.is_enriched, p.store_id, p.created_at, s.name
FROM products p
JOIN stores s ON s.id = p.store_id
ORDER BY p.id;
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows, true)
}

func (r *Repository) WishlistsContaining(ctx context.Context, productID int) ([]Wishlist, error) {
	const q = `
SELECT w.id, w.user_id
FROM wishlists w
JOIN wishlists_products wp ON wp.wishlist_id = w.id
WHERE wp.product_id = $1;
`
	rows, err := r.db.Query(ctx, q, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Wishlist
	for rows.Next() {
		var w Wishlist
		if err := rows.Scan(&w.ID, &w.UserID); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// WishlistOwner возвращает id владельца; ok=false если пользователя нет.
func (r *Repository) WishlistOwner(ctx context.Context, wishlistID int) (int, bool, error) {
	var userID int
	err := r.db.QueryRow(ctx,
		`SELECT u.id FROM users u JOIN wishlists w ON w.user_id = u.id WHERE w.id = $1`,
		wishlistID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

func (r *Repository) CreateNotification(ctx context.Context, n Notification) (Notification, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO notifications (user_id, product_id, message)
		 VALUES ($1, $2, $3) RETURNING id, sent_at`,
		n.UserID, n.ProductID, n.Message).Scan(&n.ID, &n.SentAt)
	if err != nil {
		return Notification{}, fmt.Errorf("creating notification: %w", err)
	}
	return n, nil
}

// SeedCurrencies однократно добавляет справочник валют.
func (r *Repository) SeedCurrencies(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO currency (name, symbol) VALUES
    ('KZT', '₸'),
    ('USD', '$')
ON CONFLICT (name) DO NOTHING;
`)
	return err
}

// UpdateSearchVector пересчитывает search_vector для товаров магазина.
func (r *Repository) UpdateSearchVector(ctx context.Context, storeID int, analyzer string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE products
		 SET search_vector = to_tsvector($2::regconfig, coalesce(description, ''))
		 WHERE store_id = $1`,
		storeID, analyzer)
	if err != nil {
		return fmt.Errorf("rebuilding search vectors for store %d: %w", storeID, err)
	}
	return nil
}

// TryAdvisoryLock берёт advisory lock по ключу магазина; false значит
// блокировку держит другой процесс. Advisory lock принадлежит сессии,
// поэтому соединение закрепляется за ключом и не возвращается в пул до
// AdvisoryUnlock — разблокировка с другого соединения не снимает ничего.
func (r *Repository) TryAdvisoryLock(ctx context.Context, key string) (bool, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return false, err
	}

	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, advisoryKey(key)).Scan(&ok); err != nil {
		conn.Release()
		return false, err
	}
	if !ok {
		conn.Release()
		return false, nil
	}

	r.mu.Lock()
	r.lockConns[key] = conn
	r.mu.Unlock()
	return true, nil
}

// AdvisoryUnlock снимает блокировку на том же соединении, что её взяло, и
// возвращает соединение в пул.
func (r *Repository) AdvisoryUnlock(ctx context.Context, key string) error {
	r.mu.Lock()
	conn, ok := r.lockConns[key]
	delete(r.lockConns, key)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("no advisory lock held for %q", key)
	}
	defer conn.Release()

	var released bool
	if err := conn.QueryRow(ctx, `SELECT pg_advisory_unlock($1)`, advisoryKey(key)).Scan(&released); err != nil {
		return err
	}
	if !released {
		return fmt.Errorf("advisory lock %q was not held by its session", key)
	}
	return nil
}

func advisoryKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, withStore bool) (Product, error) {
	var (
		p        Product
		priceRaw string
	)
	dest := []any{&p.ID, &p.Name, &priceRaw, &p.Currency, &p.URL,
		&p.Description, &p.IsEnriched, &p.StoreID, &p.CreatedAt}
	if withStore {
		dest = append(dest, &p.StoreName)
	}
	if err := row.Scan(dest...); err != nil {
		return Product{}, err
	}
	price, err := decimal.NewFromString(priceRaw)
	if err != nil {
		return Product{}, fmt.Errorf("parsing stored price %q: %w", priceRaw, err)
	}
	p.Price = price
	return p, nil
}

func collectProducts(rows pgx.Rows, withStore bool) ([]Product, error) {
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows, withStore)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
