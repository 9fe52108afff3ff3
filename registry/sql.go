package registry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"innscanner/logger"
)

// SQLSource реестр в таблице PostgreSQL с теми же русскими именами колонок
type SQLSource struct {
	DB    *sql.DB
	Table string
}

// OpenSQL подключается к PostgreSQL и проверяет соединение
func OpenSQL(ctx context.Context, dsn, table string) (*SQLSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	return &SQLSource{DB: db, Table: table}, nil
}

func (s *SQLSource) String() string { return "postgres:" + s.Table }

// Close закрывает соединение
func (s *SQLSource) Close() error { return s.DB.Close() }

func (s *SQLSource) query() string {
	cols := make([]string, len(Columns))
	for i, col := range Columns {
		cols[i] = pq.QuoteIdentifier(col) + "::text"
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoteTable(s.Table))
}

// quoteTable поддерживает имя со схемой: schema.table
func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// Load читает все строки реестра
func (s *SQLSource) Load(ctx context.Context) (*Table, error) {
	rows, err := s.DB.QueryContext(ctx, s.query())
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "42703" {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, pqErr.Message)
		}
		return nil, fmt.Errorf("ошибка чтения реестра из БД: %w", err)
	}
	defer rows.Close()

	table := &Table{Source: s.String(), Rows: []Contract{}}
	raw := make([]sql.NullString, len(Columns))
	dest := make([]any, len(Columns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("ошибка чтения строки реестра: %w", err)
		}
		values := make(map[string]string, len(Columns))
		for i, col := range Columns {
			values[col] = raw[i].String
		}
		table.Rows = append(table.Rows, newContract(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения реестра из БД: %w", err)
	}

	logger.FromContext(ctx).Info("Реестр загружен", "source", s.String(), "rows", table.Len())
	return table, nil
}
