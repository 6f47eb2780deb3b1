package store

import "context"

// Many maps every row of a query through scan
func Many[T any](ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}, scan func(Row) (T, error), sql string, args ...any) ([]T, error) {
	rs, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	var out []T
	for rs.Next() {
		item, err := scan(rs)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rs.Err()
}
