package database

import (
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"orderflow/config"
)

// Connect opens the order store. The handle is passed explicitly to whoever
// needs it; no package-level globals.
func Connect(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate creates the order tables and the event outbox.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id CHAR(36) PRIMARY KEY,
			customer_id CHAR(36) NOT NULL,
			address_line VARCHAR(255) NOT NULL DEFAULT '',
			city VARCHAR(100) NOT NULL,
			country VARCHAR(100) NOT NULL,
			city_code INT NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL,
			created_at DATETIME(6) NOT NULL,
			INDEX idx_orders_customer (customer_id),
			INDEX idx_orders_created (created_at)
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			order_id CHAR(36) NOT NULL,
			product_id CHAR(36) NOT NULL,
			product_name VARCHAR(255) NOT NULL,
			image_url VARCHAR(512) NOT NULL DEFAULT '',
			quantity INT NOT NULL,
			price DECIMAL(12,2) NOT NULL,
			INDEX idx_order_items_order (order_id)
		)`,
		`CREATE TABLE IF NOT EXISTS outbox (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			order_id CHAR(36) NOT NULL,
			payload JSON NOT NULL,
			created_at DATETIME(6) NOT NULL,
			published_at DATETIME(6) NULL,
			INDEX idx_outbox_pending (published_at, id)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
