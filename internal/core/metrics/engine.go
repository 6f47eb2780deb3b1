package metrics

import (
	"context"
	"errors"

	"reportdash/internal/core/catalog"
	"reportdash/internal/core/filter"
	perr "reportdash/internal/platform/errors"

	"golang.org/x/sync/errgroup"
)

// Engine computes requests over one catalog snapshot. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	cat *catalog.Catalog
}

// New returns an engine over cat
func New(cat *catalog.Catalog) *Engine { return &Engine{cat: cat} }

// Validate checks req against the engine's schema
func (e *Engine) Validate(req Request) error { return Validate(e.cat.Schema(), req) }

// Compute validates req, evaluates the blocks it needs in parallel and
// combines them. Configuration errors are returned before any aggregation.
func (e *Engine) Compute(ctx context.Context, req Request) (*Output, error) {
	p, err := compile(e.cat.Schema(), req)
	if err != nil {
		return nil, err
	}
	out := &Output{}
	if out.Result, out.Blocks, err = e.run(ctx, p, nil); err != nil {
		return nil, err
	}
	for _, g := range p.groups {
		res, blocks, err := e.run(ctx, p, g.preds)
		if err != nil {
			return nil, err
		}
		out.Groups = append(out.Groups, GroupResult{Value: g.value, Label: g.label, Result: res, Blocks: blocks})
	}
	return out, nil
}

// EvaluateBlock computes one block on its own, without a formula around it
func (e *Engine) EvaluateBlock(ctx context.Context, b MetricBlock, rng Range, mode Mode) (MetricResult, error) {
	p, err := compile(e.cat.Schema(), Request{
		Formula: &MetricFormula{Blocks: []MetricBlock{b}},
		Range:   rng,
		Mode:    mode,
	})
	if err != nil {
		return MetricResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return MetricResult{}, canceled(err)
	}
	return p.blocks[b.ID].evaluate(e.cat, p.mode, p.bucketer), nil
}

// run evaluates the plan's blocks, optionally restricted by per-object
// group predicates, and produces the formula result plus exposed blocks
func (e *Engine) run(ctx context.Context, p *plan, group map[string]*filter.Predicate) (MetricResult, []BlockResult, error) {
	results := make([]MetricResult, len(p.eval))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range p.eval {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return canceled(err)
			}
			b := p.blocks[id]
			results[i] = b.evaluate(e.cat, p.mode, p.bucketer, p.shared[b.def.Name], group[b.def.Name])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return MetricResult{}, nil, err
	}
	byID := make(map[string]MetricResult, len(p.eval))
	for i, id := range p.eval {
		byID[id] = results[i]
	}

	var res MetricResult
	if p.calc == nil {
		res = byID[p.first]
	} else {
		var err error
		res, err = combine(*p.calc, byID[p.calc.LeftOperand], byID[p.calc.RightOperand], p.mode)
		if err != nil {
			return MetricResult{}, nil, err
		}
	}

	var exposed []BlockResult
	for _, id := range p.expose {
		exposed = append(exposed, BlockResult{BlockID: id, BlockName: p.blocks[id].name, MetricResult: byID[id]})
	}
	return res, exposed, nil
}

func canceled(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return perr.Wrap(err, perr.ErrorCodeTimeout, "computation timed out")
	}
	return perr.Wrap(err, perr.ErrorCodeUnavailable, "computation canceled")
}
