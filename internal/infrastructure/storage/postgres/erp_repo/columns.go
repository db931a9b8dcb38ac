package erp_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"erpstock/internal/infrastructure/storage/postgres"
)

// ColumnInfo is one row of information_schema.columns.
type ColumnInfo struct {
	Table      string `db:"table_name"`
	Name       string `db:"column_name"`
	DataType   string `db:"data_type"`
	IsNullable string `db:"is_nullable"`
	Position   int    `db:"ordinal_position"`
}

func describeQuery(schema string, tables []string) squirrel.SelectBuilder {
	q := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select("table_name", "column_name", "data_type", "is_nullable", "ordinal_position").
		From("information_schema.columns").
		Where(squirrel.Eq{"table_name": tables})

	if schema == "" {
		q = q.Where("table_schema = current_schema()")
	} else {
		q = q.Where(squirrel.Eq{"table_schema": schema})
	}
	return q.OrderBy("table_name", "ordinal_position")
}

// DescribeTables lists the columns of the given tables. An empty schema
// means the first schema on the search_path.
func DescribeTables(ctx context.Context, q postgres.Querier, schema string, tables []string) ([]ColumnInfo, error) {
	sql, args, err := describeQuery(schema, tables).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build describe query: %w", err)
	}

	var cols []ColumnInfo
	if err := pgxscan.Select(ctx, q, &cols, sql, args...); err != nil {
		return nil, fmt.Errorf("describe tables: %w", err)
	}
	return cols, nil
}

// Tables returns the table names of the layout in query order.
func (l Layout) Tables() []string {
	return []string{l.StockTable, l.ItemTable}
}
