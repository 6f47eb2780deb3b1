package repo

import (
	"context"
	"sync"

	"reportdash/internal/core/catalog"
	"reportdash/internal/modkit/repokit"
	perr "reportdash/internal/platform/errors"
	"reportdash/internal/services/api/reports/domain"
)

// NewSource builds catalogs from a bound Repo. Reads run in one read-only
// repeatable-read tx so every object comes from the same snapshot.
func NewSource(db repokit.TxRunner, binder repokit.Binder[Repo]) domain.CatalogSource {
	if db == nil {
		panic("reports.Source requires a non nil TxRunner")
	}
	if binder == nil {
		panic("reports.Source requires a non nil Repo binder")
	}
	return &repoSource{db: repokit.WithBeginHooks(db, repokit.ReadOnlySnapshot), binder: binder}
}

type repoSource struct {
	db     repokit.TxRunner
	binder repokit.Binder[Repo]
}

func (s *repoSource) Load(ctx context.Context, sc *catalog.Schema, objects []string) (*catalog.Catalog, error) {
	rows, err := s.read(ctx, objects)
	// one retry for serialization failures and dropped connections
	if err != nil && perr.IsRetryable(err) {
		rows, err = s.read(ctx, objects)
	}
	if err != nil {
		return nil, err
	}
	raw, err := Assemble(rows)
	if err != nil {
		return nil, err
	}
	return load(sc, raw)
}

func (s *repoSource) read(ctx context.Context, objects []string) ([]Row, error) {
	var rows []Row
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		rows, err = repokit.MustBind(s.binder, q).Records(ctx, objects)
		return err
	})
	return rows, err
}

// NewCHSource builds catalogs straight from clickhouse, which has no tx to join
func NewCHSource(binder repokit.Binder[Repo]) domain.CatalogSource {
	return &directSource{repo: binder.Bind(nil)}
}

type directSource struct{ repo Repo }

func (s *directSource) Load(ctx context.Context, sc *catalog.Schema, objects []string) (*catalog.Catalog, error) {
	rows, err := s.repo.Records(ctx, objects)
	if err != nil {
		return nil, err
	}
	raw, err := Assemble(rows)
	if err != nil {
		return nil, err
	}
	return load(sc, raw)
}

// NewFileSource serves one fixture file, parsed on first use and shared after.
// The catalog is read-only so handing the same one to every request is safe.
func NewFileSource(path string) domain.CatalogSource { return &fileSource{path: path} }

type fileSource struct {
	path string

	once sync.Once
	cat  *catalog.Catalog
	err  error
}

func (s *fileSource) Load(ctx context.Context, sc *catalog.Schema, _ []string) (*catalog.Catalog, error) {
	s.once.Do(func() {
		s.cat, s.err = catalog.LoadFile(sc, s.path)
		s.err = storedErr(s.err)
	})
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.cat, nil
}

func load(sc *catalog.Schema, raw catalog.Raw) (*catalog.Catalog, error) {
	c, err := catalog.Load(sc, raw)
	if err != nil {
		return nil, storedErr(err)
	}
	return c, nil
}

// storedErr re-codes coercion failures on stored records. They describe
// bad data at rest, not a bad request, so they must not surface as 422.
func storedErr(err error) error {
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		return err
	}
	e, _ := perr.As(err)
	return perr.WithField(perr.Wrap(err, perr.ErrorCodeDB, "reports: stored record is invalid"), e.Field())
}
