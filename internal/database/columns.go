package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/customers"
	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/links"
)

var fixedColumns = map[string][]string{
	links.Table:     links.Columns,
	customers.Table: customers.Columns,
}

// ColumnNames lists the columns of table in declaration order. The embedded backend
// reads them from the live schema; the networked backend uses the known layout.
func (a *Adapter) ColumnNames(ctx context.Context, table string) ([]string, error) {
	if a.backend == BackendPostgres {
		columns, ok := fixedColumns[table]
		if !ok {
			return nil, fmt.Errorf("unknown table %q", table)
		}
		return append([]string(nil), columns...), nil
	}

	db, err := a.Connect(ctx)
	if err != nil {
		return nil, err
	}
	columnTypes, err := db.Migrator().ColumnTypes(table)
	if err != nil {
		return nil, fmt.Errorf("introspect %s: %w", table, err)
	}
	names := make([]string, 0, len(columnTypes))
	for _, columnType := range columnTypes {
		names = append(names, columnType.Name())
	}
	return names, nil
}

// ToBool normalises a boolean column value read through a generic row map.
// SQLite hands back 0/1 integers while PostgreSQL returns native booleans.
func ToBool(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case int64:
		return typed != 0
	case int32:
		return typed != 0
	case int:
		return typed != 0
	case float64:
		return typed != 0
	case []byte:
		return parseBoolText(string(typed))
	case string:
		return parseBoolText(typed)
	default:
		return false
	}
}

// ToInt64 normalises an integer column value read through a generic row map.
func ToInt64(value any) (int64, bool) {
	switch typed := value.(type) {
	case int64:
		return typed, true
	case int32:
		return int64(typed), true
	case int:
		return int64(typed), true
	case float64:
		return int64(typed), true
	case []byte:
		parsed, err := strconv.ParseInt(strings.TrimSpace(string(typed)), 10, 64)
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func parseBoolText(value string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && parsed
}
