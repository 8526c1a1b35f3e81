package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LoadProducts ingests a sku,name,price,stock CSV into the products table,
// ignoring SKUs that already exist. It returns the number of rows inserted.
func LoadProducts(db *sqlx.DB, csvPath string, log *zap.Logger) (int, error) {
	return load(db, csvPath, log, "products",
		`INSERT OR IGNORE INTO products (sku, name, price, stock) VALUES (?, ?, ?, ?)`,
		func(record []string) ([]any, error) {
			if len(record) < 4 {
				return nil, errors.New("expected sku,name,price,stock")
			}
			sku := strings.TrimSpace(record[0])
			name := strings.TrimSpace(record[1])
			if sku == "" || name == "" {
				return nil, errors.New("sku and name are required")
			}
			price, err := decimal.NewFromString(strings.TrimSpace(record[2]))
			if err != nil || price.IsNegative() {
				return nil, fmt.Errorf("invalid price %q", record[2])
			}
			stock, err := strconv.ParseInt(strings.TrimSpace(record[3]), 10, 64)
			if err != nil || stock < 0 {
				return nil, fmt.Errorf("invalid stock %q", record[3])
			}
			return []any{sku, name, price.String(), stock}, nil
		})
}

// LoadCustomers ingests a name,phone,email CSV into the customers table.
// Rows matching an existing name and phone are skipped.
func LoadCustomers(db *sqlx.DB, csvPath string, log *zap.Logger) (int, error) {
	return load(db, csvPath, log, "customers",
		`INSERT INTO customers (name, phone, email) SELECT ?, ?, ? WHERE NOT EXISTS (SELECT 1 FROM customers WHERE name = ? AND phone = ?)`,
		func(record []string) ([]any, error) {
			if len(record) < 1 || strings.TrimSpace(record[0]) == "" {
				return nil, errors.New("name is required")
			}
			name := strings.TrimSpace(record[0])
			var phone, email string
			if len(record) > 1 {
				phone = strings.TrimSpace(record[1])
			}
			if len(record) > 2 {
				email = strings.ToLower(strings.TrimSpace(record[2]))
			}
			return []any{name, phone, email, name, phone}, nil
		})
}

// load reads csvPath, skipping its header, and runs insert for every row
// parse accepts. Malformed rows are logged and skipped; a missing file is
// not an error.
func load(db *sqlx.DB, csvPath string, log *zap.Logger, what, insert string, parse func([]string) ([]any, error)) (int, error) {
	if csvPath == "" {
		return 0, nil
	}
	file, err := os.Open(csvPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Info("seed file not found, skipping", zap.String("table", what), zap.String("path", csvPath))
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open %s seed: %w", what, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	// Skip header
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("read %s header: %w", what, err)
	}

	tx, err := db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("begin %s seed: %w", what, err)
	}
	stmt, err := tx.Preparex(insert)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prepare %s insert: %w", what, err)
	}
	defer stmt.Close()

	rows := 0
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			log.Warn("unable to read seed row", zap.String("table", what), zap.Int("line", line), zap.Error(err))
			continue
		}
		args, err := parse(record)
		if err != nil {
			log.Warn("skipping seed row", zap.String("table", what), zap.Int("line", line), zap.Error(err))
			continue
		}
		res, err := stmt.Exec(args...)
		if err != nil {
			log.Warn("unable to insert seed row", zap.String("table", what), zap.Int("line", line), zap.Error(err))
			continue
		}
		if n, _ := res.RowsAffected(); n > 0 {
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit %s seed: %w", what, err)
	}
	log.Info("seeded catalog", zap.String("table", what), zap.Int("rows", rows))
	return rows, nil
}
