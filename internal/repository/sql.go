package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"grocerygenius-api/internal/model"
	"grocerygenius-api/pkg/uid"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultBatchSize is the number of deals per INSERT statement.
const DefaultBatchSize = 100

// Dialect captures the SQL differences between the supported backends.
type Dialect struct {
	Name string

	// numbered placeholders ($1, $2) instead of ?
	numbered bool
	// upsertStore is the full upsert statement written with ? placeholders.
	upsertStore string
	// singleWriter serialises writes in-process (SQLite).
	singleWriter bool
	// lockStores row-locks the affected stores before a replace.
	lockStores bool
}

var (
	SQLite = Dialect{
		Name: "sqlite",
		upsertStore: `INSERT INTO stores (id, name, slug, logo_url, website, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(slug) DO UPDATE SET
				name = excluded.name,
				logo_url = excluded.logo_url,
				website = excluded.website`,
		singleWriter: true,
	}
	Postgres = Dialect{
		Name:     "postgres",
		numbered: true,
		upsertStore: `INSERT INTO stores (id, name, slug, logo_url, website, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (slug) DO UPDATE SET
				name = EXCLUDED.name,
				logo_url = EXCLUDED.logo_url,
				website = EXCLUDED.website`,
		lockStores: true,
	}
	MySQL = Dialect{
		Name: "mysql",
		upsertStore: `INSERT INTO stores (id, name, slug, logo_url, website, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				name = VALUES(name),
				logo_url = VALUES(logo_url),
				website = VALUES(website)`,
		lockStores: true,
	}
)

// rebind rewrites ? placeholders for dialects that number them.
func (d Dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// SQLRepository implements Repository on database/sql.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.RWMutex
	now     func() time.Time
	log     *logrus.Entry
}

func newSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{
		db:      db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
		log:     logrus.WithField("component", "repository").WithField("dialect", dialect.Name),
	}
}

// DB exposes the underlying handle.
func (r *SQLRepository) DB() *sql.DB {
	return r.db
}

// Dialect reports which backend the repository talks to.
func (r *SQLRepository) Dialect() string {
	return r.dialect.Name
}

func (r *SQLRepository) lockWrite() func() {
	if !r.dialect.singleWriter {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

func (r *SQLRepository) lockRead() func() {
	if !r.dialect.singleWriter {
		return func() {}
	}
	r.mu.RLock()
	return r.mu.RUnlock
}

const storeColumns = `id, name, slug, logo_url, website, created_at`

// ListStores returns every store ordered by slug.
func (r *SQLRepository) ListStores(ctx context.Context) ([]model.Store, error) {
	defer r.lockRead()()

	rows, err := r.db.QueryContext(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer rows.Close()

	stores := []model.Store{}
	for rows.Next() {
		var s model.Store
		var logo, website sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &logo, &website, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		s.LogoURL = nullable(logo)
		s.Website = nullable(website)
		stores = append(stores, s)
	}
	return stores, rows.Err()
}

// GetStoreBySlug returns nil, nil when no store has the slug.
func (r *SQLRepository) GetStoreBySlug(ctx context.Context, slug string) (*model.Store, error) {
	defer r.lockRead()()
	return r.getStoreBySlug(ctx, slug)
}

func (r *SQLRepository) getStoreBySlug(ctx context.Context, slug string) (*model.Store, error) {
	query := r.dialect.rebind(`SELECT ` + storeColumns + ` FROM stores WHERE slug = ?`)

	var s model.Store
	var logo, website sql.NullString
	err := r.db.QueryRowContext(ctx, query, slug).Scan(&s.ID, &s.Name, &s.Slug, &logo, &website, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get store %s: %w", slug, err)
	}
	s.LogoURL = nullable(logo)
	s.Website = nullable(website)
	return &s, nil
}

// UpsertStore inserts or refreshes a store keyed by slug.
func (r *SQLRepository) UpsertStore(ctx context.Context, store model.Store) (*model.Store, error) {
	if strings.TrimSpace(store.Slug) == "" {
		return nil, fmt.Errorf("store slug is required")
	}
	if store.ID == "" {
		store.ID = uid.ForStore(store.Slug)
	}
	if store.CreatedAt.IsZero() {
		store.CreatedAt = r.now()
	}

	unlock := r.lockWrite()
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(r.dialect.upsertStore),
		store.ID, store.Name, store.Slug, value(store.LogoURL), value(store.Website), store.CreatedAt)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to upsert store %s: %w", store.Slug, err)
	}

	return r.GetStoreBySlug(ctx, store.Slug)
}

const dealColumns = `id, store_id, item_name, price, price_numeric, unit_price, category,
	valid_from, valid_to, source_flyer_id, raw_data, created_at`

const dealColumnCount = 12

// ReplaceDeals swaps the deal set of storeIDs for deals in one transaction.
// Readers see either the previous or the new set, never a mix.
func (r *SQLRepository) ReplaceDeals(ctx context.Context, storeIDs []string, deals []model.Deal, batchSize int) (int, error) {
	if len(storeIDs) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	defer r.lockWrite()()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	args := make([]any, len(storeIDs))
	for i, id := range storeIDs {
		args[i] = id
	}
	if r.dialect.lockStores {
		if err := lockStoreRows(ctx, tx, r.dialect, args); err != nil {
			return 0, err
		}
	}

	del := `DELETE FROM deals WHERE store_id IN (` + placeholders(len(storeIDs)) + `)`
	res, err := tx.ExecContext(ctx, r.dialect.rebind(del), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old deals: %w", err)
	}
	deleted, _ := res.RowsAffected()

	now := r.now()
	inserted := 0
	for start := 0; start < len(deals); start += batchSize {
		end := min(start+batchSize, len(deals))
		if err := r.insertChunk(ctx, tx, deals[start:end], now); err != nil {
			return 0, fmt.Errorf("failed to insert deals %d-%d: %w", start, end-1, err)
		}
		inserted += end - start
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"stores":   len(storeIDs),
		"deleted":  deleted,
		"inserted": inserted,
	}).Info("Replaced deals")
	return inserted, nil
}

// lockStoreRows holds the store rows until commit so replaces of
// overlapping store sets run one after another.
func lockStoreRows(ctx context.Context, tx *sql.Tx, d Dialect, ids []any) error {
	query := `SELECT id FROM stores WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, d.rebind(query), ids...)
	if err != nil {
		return fmt.Errorf("failed to lock stores: %w", err)
	}
	defer rows.Close()
	var id string
	for rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to lock stores: %w", err)
		}
	}
	return rows.Err()
}

func (r *SQLRepository) insertChunk(ctx context.Context, tx *sql.Tx, chunk []model.Deal, now time.Time) error {
	row := "(" + placeholders(dealColumnCount) + ")"
	values := make([]string, len(chunk))
	args := make([]any, 0, len(chunk)*dealColumnCount)

	for i, d := range chunk {
		values[i] = row

		id := d.ID
		if id == "" {
			id = uid.New()
		}
		createdAt := d.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		raw, err := encodeRawData(d.RawData)
		if err != nil {
			return err
		}

		args = append(args,
			id, d.StoreID, d.ItemName, value(d.Price), d.PriceNumeric, value(d.UnitPrice), d.Category,
			value(d.ValidFrom), value(d.ValidTo), value(d.SourceFlyerID), raw, createdAt,
		)
	}

	query := `INSERT INTO deals (` + dealColumns + `) VALUES ` + strings.Join(values, ", ")
	_, err := tx.ExecContext(ctx, r.dialect.rebind(query), args...)
	return err
}

// QueryDeals returns current deals joined with their store.
func (r *SQLRepository) QueryDeals(ctx context.Context, f DealFilter) ([]model.DealWithStore, error) {
	var (
		where = []string{"d.valid_to IS NOT NULL", "d.valid_to >= ?"}
		args  = []any{f.ValidOn}
	)
	if f.StoreID != "" {
		where = append(where, "d.store_id = ?")
		args = append(args, f.StoreID)
	}
	if len(f.StoreIDs) > 0 {
		where = append(where, "d.store_id IN ("+placeholders(len(f.StoreIDs))+")")
		for _, id := range f.StoreIDs {
			args = append(args, id)
		}
	}
	if f.Category != "" {
		where = append(where, "d.category = ?")
		args = append(args, f.Category)
	}
	if f.Search != "" {
		where = append(where, "LOWER(d.item_name) LIKE ? ESCAPE '!'")
		args = append(args, "%"+escapeLike(strings.ToLower(f.Search))+"%")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	query := `SELECT d.id, d.store_id, d.item_name, d.price, d.price_numeric, d.unit_price, d.category,
			d.valid_from, d.valid_to, d.source_flyer_id, d.raw_data, d.created_at,
			s.id, s.name, s.slug, s.logo_url, s.website, s.created_at
		FROM deals d
		JOIN stores s ON s.id = d.store_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY (CASE WHEN d.price_numeric IS NULL THEN 1 ELSE 0 END), d.price_numeric ASC, d.item_name ASC
		LIMIT ?`

	defer r.lockRead()()

	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer rows.Close()

	out := []model.DealWithStore{}
	for rows.Next() {
		var (
			d                                 model.DealWithStore
			s                                 model.Store
			price, unit, from, to, flyer, raw sql.NullString
			logo, website                     sql.NullString
			numeric                           decimal.NullDecimal
		)
		err := rows.Scan(
			&d.ID, &d.StoreID, &d.ItemName, &price, &numeric, &unit, &d.Category,
			&from, &to, &flyer, &raw, &d.CreatedAt,
			&s.ID, &s.Name, &s.Slug, &logo, &website, &s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}

		d.Price = nullable(price)
		d.PriceNumeric = numeric
		d.UnitPrice = nullable(unit)
		d.ValidFrom = dateOnly(from)
		d.ValidTo = dateOnly(to)
		d.SourceFlyerID = nullable(flyer)
		if d.RawData, err = decodeRawData(raw); err != nil {
			return nil, fmt.Errorf("failed to decode raw_data of deal %s: %w", d.ID, err)
		}
		s.LogoURL = nullable(logo)
		s.Website = nullable(website)
		d.Store = &s

		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteExpired removes deals whose valid_to is before the given date.
func (r *SQLRepository) DeleteExpired(ctx context.Context, before string) (int64, error) {
	defer r.lockWrite()()

	res, err := r.db.ExecContext(ctx,
		r.dialect.rebind(`DELETE FROM deals WHERE valid_to IS NOT NULL AND valid_to < ?`), before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired deals: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		r.log.WithFields(logrus.Fields{"deleted": deleted, "before": before}).Info("Purged expired deals")
	}
	return deleted, nil
}

// CountByStore returns the number of stored deals per store.
func (r *SQLRepository) CountByStore(ctx context.Context) ([]model.StoreDealCount, error) {
	defer r.lockRead()()

	rows, err := r.db.QueryContext(ctx, `
		SELECT s.slug, s.name, COUNT(d.id)
		FROM stores s
		LEFT JOIN deals d ON d.store_id = s.id
		GROUP BY s.slug, s.name
		ORDER BY s.slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to count deals: %w", err)
	}
	defer rows.Close()

	counts := []model.StoreDealCount{}
	for rows.Next() {
		var c model.StoreDealCount
		if err := rows.Scan(&c.Slug, &c.Name, &c.Deals); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Ping checks the database connection.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func value(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// dateOnly trims a DATE column to YYYY-MM-DD; drivers that return
// time.Time are converted to RFC 3339 by database/sql first.
func dateOnly(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	s := ns.String
	if len(s) > 10 {
		s = s[:10]
	}
	return &s
}

func encodeRawData(raw *model.RawData) (any, error) {
	if raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode raw_data: %w", err)
	}
	return string(data), nil
}

func decodeRawData(ns sql.NullString) (*model.RawData, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var raw model.RawData
	if err := json.Unmarshal([]byte(ns.String), &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

var _ Repository = (*SQLRepository)(nil)
