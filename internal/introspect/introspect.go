// Package introspect discovers a composer schema from a live PostgreSQL
// database via information_schema. It extracts tables, columns, primary
// keys, and foreign keys, producing the read-only schema description the
// composition engine works against.
package introspect

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pgcomposer/internal/schema"
)

// Queryer provides query access for schema introspection.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Database introspects every user table reachable through
// information_schema, skipping the catalog schemas.
func Database(ctx context.Context, db Queryer) (*schema.Schema, error) {
	ctx, span := startSpan(ctx, "introspect.build_schema")
	defer span.End()

	out := &schema.Schema{}

	ids, err := getTables(ctx, db)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	for _, id := range ids {
		columns, err := getColumns(ctx, db, id)
		if err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to get columns for %s: %w", id, err)
		}

		primaryKeys, err := getPrimaryKeys(ctx, db, id)
		if err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to get primary keys for %s: %w", id, err)
		}
		for i := range columns {
			for _, pk := range primaryKeys {
				if columns[i].Name == pk {
					columns[i].IsPrimaryKey = true
					break
				}
			}
		}

		foreignKeys, err := getForeignKeys(ctx, db, id)
		if err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to get foreign keys for %s: %w", id, err)
		}
		for i := range columns {
			if target, ok := foreignKeys[columns[i].Name]; ok {
				columns[i].IsForeignKey = true
				columns[i].References = target.String()
			}
		}

		out.Tables = append(out.Tables, schema.Table{ID: id, Columns: columns})
	}

	if err := out.Validate(); err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("introspected schema is inconsistent: %w", err)
	}
	return out, nil
}

func getTables(ctx context.Context, db Queryer) ([]schema.TableID, error) {
	ctx, span := startSpan(ctx, "introspect.get_tables")
	defer span.End()

	query := `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
			AND table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []schema.TableID
	for rows.Next() {
		var schemaName, tableName string
		if err := rows.Scan(&schemaName, &tableName); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		ids = append(ids, schema.NewTableID(schemaName, tableName))
	}
	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return ids, nil
}

func getColumns(ctx context.Context, db Queryer, id schema.TableID) ([]schema.Column, error) {
	ctx, span := startSpan(ctx, "introspect.get_columns",
		attribute.String("db.table", id.String()),
	)
	defer span.End()

	query := `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := db.QueryContext(ctx, query, id.Schema, id.Name)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		if err := rows.Scan(&col.Name, &col.DataType); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return columns, nil
}

func getPrimaryKeys(ctx context.Context, db Queryer, id schema.TableID) ([]string, error) {
	ctx, span := startSpan(ctx, "introspect.get_primary_keys",
		attribute.String("db.table", id.String()),
	)
	defer span.End()

	query := `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`

	rows, err := db.QueryContext(ctx, query, id.Schema, id.Name)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var primaryKeys []string
	for rows.Next() {
		var columnName string
		if err := rows.Scan(&columnName); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		primaryKeys = append(primaryKeys, columnName)
	}
	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return primaryKeys, nil
}

// getForeignKeys maps FK column names to their referenced column. The
// reference is stored in the canonical three-part form so downstream
// inference never needs the legacy table.column fallback.
func getForeignKeys(ctx context.Context, db Queryer, id schema.TableID) (map[string]schema.ColumnRef, error) {
	ctx, span := startSpan(ctx, "introspect.get_foreign_keys",
		attribute.String("db.table", id.String()),
	)
	defer span.End()

	query := `
		SELECT kcu.column_name, ccu.table_schema, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`

	rows, err := db.QueryContext(ctx, query, id.Schema, id.Name)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	refs := make(map[string]schema.ColumnRef)
	for rows.Next() {
		var columnName, refSchema, refTable, refColumn string
		if err := rows.Scan(&columnName, &refSchema, &refTable, &refColumn); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		refs[columnName] = schema.NewColumnRef(schema.NewTableID(refSchema, refTable), refColumn)
	}
	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return refs, nil
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer("pgcomposer/introspect")
	ctx, span := tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
