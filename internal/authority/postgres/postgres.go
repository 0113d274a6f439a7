// Package postgres backs the authority store with PostgreSQL through the pgx
// stdlib driver. Invoices are stored as jsonb documents keyed by id since
// they are immutable after creation; products and categories get real
// columns because they are queried and upserted individually.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"dukanpos/backend/internal/authority"
	"dukanpos/backend/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS pos_config (
	id            TEXT PRIMARY KEY,
	store_name    TEXT NOT NULL,
	currency      TEXT NOT NULL,
	exchange_rate DOUBLE PRECISION NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	price       DOUBLE PRECISION NOT NULL,
	stock       INTEGER NOT NULL,
	barcode     TEXT NOT NULL DEFAULT '',
	category_id TEXT NOT NULL DEFAULT '',
	image       TEXT NOT NULL DEFAULT '',
	deleted     BOOLEAN NOT NULL DEFAULT false,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS categories (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	color       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS sales (
	id         TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS purchases (
	id         TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS accounts (
	username   TEXT PRIMARY KEY,
	password   TEXT NOT NULL,
	role       TEXT NOT NULL,
	created_by TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS licenses (
	license_key      TEXT PRIMARY KEY,
	status           TEXT NOT NULL DEFAULT 'active',
	max_devices      INTEGER NOT NULL DEFAULT 9,
	devices          JSONB NOT NULL DEFAULT '[]',
	signature_secret TEXT NOT NULL DEFAULT '',
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetConfig(ctx context.Context) (*domain.AppConfig, error) {
	var config domain.AppConfig
	err := s.db.QueryRowContext(ctx, `
		SELECT store_name, currency, exchange_rate
		FROM pos_config
		WHERE id = 'singleton'
	`).Scan(&config.StoreName, &config.Currency, &config.ExchangeRate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authority.ErrNotFound
		}
		return nil, err
	}
	return &config, nil
}

func (s *Store) UpsertConfig(ctx context.Context, config domain.AppConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pos_config (id, store_name, currency, exchange_rate, updated_at)
		VALUES ('singleton', $1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET store_name = EXCLUDED.store_name,
		    currency = EXCLUDED.currency,
		    exchange_rate = EXCLUDED.exchange_rate,
		    updated_at = now()
	`, config.StoreName, config.Currency, config.ExchangeRate)
	return err
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, stock, barcode, category_id, image, deleted
		FROM products
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Barcode, &p.CategoryID, &p.Image, &p.Deleted); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) UpsertProduct(ctx context.Context, product domain.Product) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, stock, barcode, category_id, image, deleted, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    price = EXCLUDED.price,
		    stock = EXCLUDED.stock,
		    barcode = EXCLUDED.barcode,
		    category_id = EXCLUDED.category_id,
		    image = EXCLUDED.image,
		    deleted = EXCLUDED.deleted,
		    updated_at = now()
	`, product.ID, product.Name, product.Price, product.Stock, product.Barcode, product.CategoryID, product.Image, product.Deleted)
	return err
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, color, description
		FROM categories
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 32)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Description); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return categories, nil
}

func (s *Store) UpsertCategory(ctx context.Context, category domain.Category) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, color, description, updated_at)
		VALUES ($1,$2,$3,$4,now())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    color = EXCLUDED.color,
		    description = EXCLUDED.description,
		    updated_at = now()
	`, category.ID, category.Name, category.Color, category.Description)
	return err
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	return err
}

func (s *Store) ListSales(ctx context.Context) ([]domain.SaleInvoice, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM sales ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.SaleInvoice, 0, 128)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var invoice domain.SaleInvoice
		if err := json.Unmarshal(payload, &invoice); err != nil {
			return nil, err
		}
		sales = append(sales, invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sales, nil
}

func (s *Store) UpsertSale(ctx context.Context, invoice domain.SaleInvoice) error {
	payload, err := json.Marshal(invoice)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sales (id, payload)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload
	`, invoice.ID, payload)
	return err
}

func (s *Store) ListPurchases(ctx context.Context) ([]domain.PurchaseInvoice, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM purchases ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]domain.PurchaseInvoice, 0, 64)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var invoice domain.PurchaseInvoice
		if err := json.Unmarshal(payload, &invoice); err != nil {
			return nil, err
		}
		purchases = append(purchases, invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return purchases, nil
}

func (s *Store) UpsertPurchase(ctx context.Context, invoice domain.PurchaseInvoice) error {
	payload, err := json.Marshal(invoice)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO purchases (id, payload)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload
	`, invoice.ID, payload)
	return err
}

func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, created_by
		FROM accounts
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0, 16)
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.Username, &a.Password, &a.Role, &a.CreatedBy); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return accounts, nil
}

func (s *Store) UpsertAccount(ctx context.Context, account domain.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (username, password, role, created_by, updated_at)
		VALUES ($1,$2,$3,$4,now())
		ON CONFLICT (username) DO UPDATE
		SET password = EXCLUDED.password,
		    role = EXCLUDED.role,
		    created_by = EXCLUDED.created_by,
		    updated_at = now()
	`, account.Username, account.Password, account.Role, account.CreatedBy)
	return err
}

func (s *Store) DeleteAccount(ctx context.Context, username string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE lower(username) = lower($1)`, username)
	return err
}

func (s *Store) GetLicense(ctx context.Context, key string) (*domain.License, error) {
	var license domain.License
	var devices []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT license_key, status, max_devices, devices, signature_secret
		FROM licenses
		WHERE license_key = $1
	`, key).Scan(&license.LicenseKey, &license.Status, &license.MaxDevices, &devices, &license.SignatureSecret)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authority.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(devices, &license.Devices); err != nil {
		return nil, err
	}
	return &license, nil
}

func (s *Store) SaveLicense(ctx context.Context, license domain.License) error {
	devices, err := json.Marshal(license.Devices)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO licenses (license_key, status, max_devices, devices, signature_secret, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
		ON CONFLICT (license_key) DO UPDATE
		SET status = EXCLUDED.status,
		    max_devices = EXCLUDED.max_devices,
		    devices = EXCLUDED.devices,
		    signature_secret = EXCLUDED.signature_secret,
		    updated_at = now()
	`, license.LicenseKey, license.Status, license.MaxDevices, devices, license.SignatureSecret)
	return err
}

var _ authority.Store = (*Store)(nil)
