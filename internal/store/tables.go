package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/events"
	"github.com/lherron/syncp/internal/id"
)

// Only full-table scans are supported: SELECT * FROM synN
var selectAllPattern = regexp.MustCompile(`(?i)^\s*select\s+\*\s+from\s+(syn\d+)\s*;?\s*$`)

func (s *Store) loadTable(ctx context.Context, q querier, tableID string) (int64, *domain.Table, error) {
	n, err := rowID(tableID)
	if err != nil {
		return 0, nil, err
	}
	r, err := loadEntity(ctx, q, n)
	if err != nil {
		return 0, nil, err
	}
	e, err := r.toEntity()
	if err != nil {
		return 0, nil, err
	}
	t, ok := e.(*domain.Table)
	if !ok {
		return 0, nil, domain.NewValueError("%s is a %s, not a table", tableID, e.Type())
	}
	return n, t, nil
}

// QueryRows runs a query against a table. Headers are the table column ids.
func (s *Store) QueryRows(ctx context.Context, tableID, query string) (*domain.RowSet, error) {
	m := selectAllPattern.FindStringSubmatch(query)
	if m == nil {
		return nil, domain.NewValueError("unsupported table query: %q", query)
	}
	queried, _, err := id.Normalize(m[1])
	if err != nil {
		return nil, domain.NewValueError("%v", err)
	}
	if tableID == "" {
		tableID = queried
	}
	if want, _, _ := id.Normalize(tableID); want != queried {
		return nil, domain.NewValueError("query targets %s, not %s", queried, tableID)
	}

	n, table, err := s.loadTable(ctx, s.db.DB, tableID)
	if err != nil {
		return nil, err
	}
	allowed, err := canDownload(ctx, s.db.DB, n, s.principal)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, &domain.ForbiddenError{Message: fmt.Sprintf("%s may not read %s", s.principal, table.ID)}
	}

	rows, err := s.db.QueryContext(ctx, "SELECT vals FROM table_rows WHERE table_id = ? ORDER BY row_id", n)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table.ID, err)
	}
	defer rows.Close()

	rs := &domain.RowSet{TableID: table.ID, Headers: append([]string(nil), table.ColumnIDs...)}
	for rows.Next() {
		var vals string
		if err := rows.Scan(&vals); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var row domain.Row
		if err := json.Unmarshal([]byte(vals), &row.Values); err != nil {
			return nil, fmt.Errorf("failed to decode row of %s: %w", table.ID, err)
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs, rows.Err()
}

// AppendRows appends rows to a table and returns how many were stored.
// Values are reordered from the row set headers to the table's column order;
// nil headers mean the table's own order.
func (s *Store) AppendRows(ctx context.Context, tableID string, rowset *domain.RowSet) (int, error) {
	if rowset == nil || len(rowset.Rows) == 0 {
		return 0, nil
	}

	var appended int
	err := s.withTx(ctx, func(tx *sql.Tx, ew *events.Writer) error {
		n, table, err := s.loadTable(ctx, tx, tableID)
		if err != nil {
			return err
		}

		order, err := columnOrder(table.ColumnIDs, rowset.Headers)
		if err != nil {
			return err
		}

		var next int64
		if err := tx.QueryRowContext(ctx, "SELECT IFNULL(MAX(row_id), 0) FROM table_rows WHERE table_id = ?", n).Scan(&next); err != nil {
			return fmt.Errorf("failed to read row ids of %s: %w", table.ID, err)
		}

		for i, row := range rowset.Rows {
			if len(row.Values) != len(order) {
				return domain.NewValueError("row %d has %d values, %s has %d columns", i, len(row.Values), table.ID, len(order))
			}
			vals := make([]string, len(order))
			for src, dst := range order {
				vals[dst] = row.Values[src]
			}
			data, err := json.Marshal(vals)
			if err != nil {
				return fmt.Errorf("failed to encode row: %w", err)
			}
			next++
			if _, err := tx.ExecContext(ctx, "INSERT INTO table_rows (table_id, row_id, vals) VALUES (?, ?, ?)", n, next, string(data)); err != nil {
				return fmt.Errorf("failed to append row to %s: %w", table.ID, err)
			}
			appended++
		}

		return ew.Log(tx, s.principal, "table", table.ID, events.RowsAppended, map[string]int{"rows": appended})
	})
	if err != nil {
		return 0, err
	}
	return appended, nil
}

// columnOrder maps each header position to its table column position.
func columnOrder(columns, headers []string) ([]int, error) {
	order := make([]int, len(columns))
	if headers == nil {
		for i := range order {
			order[i] = i
		}
		return order, nil
	}
	if len(headers) != len(columns) {
		return nil, domain.NewValueError("row set has %d headers, table has %d columns", len(headers), len(columns))
	}
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		pos[c] = i
	}
	for i, h := range headers {
		p, ok := pos[h]
		if !ok {
			return nil, domain.NewValueError("unknown column %q", h)
		}
		order[i] = p
	}
	return order, nil
}
