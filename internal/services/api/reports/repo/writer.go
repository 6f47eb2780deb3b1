package repo

import (
	"context"
	"encoding/json"
	"sort"

	"reportdash/internal/core/catalog"
	"reportdash/internal/modkit/repokit"
	perr "reportdash/internal/platform/errors"
	"reportdash/internal/platform/store"
)

// PGSchema creates the postgres catalog table
const PGSchema = `
create table if not exists catalog_records (
	object  text   not null,
	id      text   not null,
	seq     bigserial,
	payload jsonb  not null,
	primary key (object, id)
);
create index if not exists catalog_records_object_seq on catalog_records (object, seq);
`

// CHSchema creates the clickhouse catalog table; ReplacingMergeTree keeps the highest seq per id
const CHSchema = `
CREATE TABLE IF NOT EXISTS catalog_records (
	object  LowCardinality(String),
	id      String,
	seq     UInt64,
	payload String
) ENGINE = ReplacingMergeTree(seq)
ORDER BY (object, id)
`

// Doc is one record ready to store
type Doc struct {
	Object  string
	ID      string
	Payload []byte
}

// Docs flattens a loaded catalog into storable documents, objects in name order
func Docs(c *catalog.Catalog) ([]Doc, error) {
	var out []Doc
	for _, object := range c.Objects() {
		t, _ := c.Table(object)
		for _, rec := range t.Records() {
			fields := map[string]any{}
			for _, f := range t.Def().Fields {
				if v := rec.Get(f.Name); !v.IsNull() {
					fields[f.Name] = v.Any()
				}
			}
			b, err := json.Marshal(fields)
			if err != nil {
				return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "reports: encode %s/%s", object, rec.ID())
			}
			out = append(out, Doc{Object: object, ID: rec.ID(), Payload: b})
		}
	}
	return out, nil
}

// WritePG creates the table if needed and upserts docs in one tx. Concurrent
// loads queue on a transaction-scoped advisory lock.
func WritePG(ctx context.Context, db repokit.TxRunner, docs []Doc) error {
	return db.Tx(ctx, func(q repokit.Queryer) error {
		if _, err := q.Exec(ctx, `select pg_advisory_xact_lock(hashtext('catalog_records'))`); err != nil {
			return perr.FromPostgres(err, "reports: lock catalog table")
		}
		if _, err := q.Exec(ctx, PGSchema); err != nil {
			return perr.FromPostgres(err, "reports: create catalog table")
		}
		const sql = `
insert into catalog_records (object, id, payload)
values ($1, $2, $3::jsonb)
on conflict (object, id) do update set payload = excluded.payload
`
		for _, d := range docs {
			if _, err := q.Exec(ctx, sql, d.Object, d.ID, string(d.Payload)); err != nil {
				return perr.FromPostgres(err, "reports: upsert catalog record")
			}
		}
		return nil
	})
}

// WriteCH creates the table if needed and appends docs in one batch; seq
// starts at base so later loads replace earlier ones
func WriteCH(ctx context.Context, ch store.Clickhouse, docs []Doc, base uint64) error {
	if err := ch.Exec(ctx, CHSchema); err != nil {
		return chErr(ctx, err, "reports: create catalog table")
	}
	rows := make([][]any, 0, len(docs))
	for i, d := range docs {
		rows = append(rows, []any{d.Object, d.ID, base + uint64(i), string(d.Payload)})
	}
	if err := ch.Insert(ctx, Table, rows); err != nil {
		return chErr(ctx, err, "reports: insert catalog records")
	}
	return nil
}

// Objects lists the distinct objects in docs, sorted
func Objects(docs []Doc) []string {
	seen := map[string]struct{}{}
	for _, d := range docs {
		seen[d.Object] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for o := range seen {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}
