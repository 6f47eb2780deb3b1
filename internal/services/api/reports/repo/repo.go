// Package repo reads catalog records from postgres, clickhouse or a fixture file
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"reportdash/internal/core/catalog"
	"reportdash/internal/modkit/repokit"
	perr "reportdash/internal/platform/errors"
	"reportdash/internal/platform/store"
)

// Table is where every backend keeps record payloads
const Table = "catalog_records"

// Repo is the minimal persistence surface for reports
type Repo interface {
	// Records returns every stored row of the named objects, in load order
	Records(ctx context.Context, objects []string) ([]Row, error)
}

// Row is one stored record; Payload is the record's fields as a JSON object
type Row struct {
	Object  string
	ID      string
	Payload string
}

type (
	// PG is a binder that can bind the repo to a Queryer or TxRunner
	PG struct{}
	// queries implements the Repo interface over postgres
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the repo to a Queryer or TxRunner
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) Records(ctx context.Context, objects []string) ([]Row, error) {
	const sql = `
select object, id, payload::text
from catalog_records
where object = any($1)
order by object asc, seq asc
`
	rows, err := r.q.Query(ctx, sql, objects)
	if err != nil {
		return nil, perr.FromPostgres(err, "reports: query catalog records")
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var rr Row
		if err := rows.Scan(&rr.Object, &rr.ID, &rr.Payload); err != nil {
			return nil, perr.FromPostgres(err, "reports: scan catalog record")
		}
		out = append(out, rr)
	}
	return out, perr.FromPostgres(rows.Err(), "reports: read catalog records")
}

// NewCH returns a binder whose repo reads from clickhouse; clickhouse reads do
// not join the postgres tx so the bound Queryer is unused
func NewCH(ch store.Clickhouse) repokit.Binder[Repo] {
	return repokit.BindFunc[Repo](func(repokit.Queryer) Repo { return &chQueries{ch: ch} })
}

type chQueries struct{ ch store.Clickhouse }

func (r *chQueries) Records(ctx context.Context, objects []string) ([]Row, error) {
	const sql = `
SELECT object, id, payload
FROM catalog_records FINAL
WHERE has(?, object)
ORDER BY object ASC, seq ASC
`
	out, err := store.Many(ctx, r.ch, func(row store.Row) (Row, error) {
		var rr Row
		err := row.Scan(&rr.Object, &rr.ID, &rr.Payload)
		return rr, err
	}, sql, objects)
	if err != nil {
		return nil, chErr(ctx, err, "reports: read catalog records")
	}
	return out, nil
}

func chErr(ctx context.Context, err error, msg string) error {
	if ctx.Err() == context.DeadlineExceeded {
		return perr.Wrap(err, perr.ErrorCodeTimeout, msg)
	}
	if strings.Contains(err.Error(), "UNKNOWN_TABLE") {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, msg+": catalog table missing")
	}
	return perr.Wrap(err, perr.ErrorCodeDB, msg)
}

// Assemble groups stored rows into raw catalog data. The id column wins over
// an id inside the payload.
func Assemble(rows []Row) (catalog.Raw, error) {
	raw := catalog.Raw{}
	for i, r := range rows {
		d := json.NewDecoder(strings.NewReader(r.Payload))
		d.UseNumber()
		fields := map[string]any{}
		if err := d.Decode(&fields); err != nil {
			return nil, perr.WithField(
				perr.Wrapf(err, perr.ErrorCodeDB, "reports: record %s/%s has a malformed payload", r.Object, r.ID),
				fmt.Sprintf("rows[%d].payload", i),
			)
		}
		if r.ID != "" {
			fields[catalog.IDField] = r.ID
		}
		raw[r.Object] = append(raw[r.Object], fields)
	}
	return raw, nil
}
