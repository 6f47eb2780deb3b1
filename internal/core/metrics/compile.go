package metrics

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"reportdash/internal/core/bucket"
	"reportdash/internal/core/catalog"
	"reportdash/internal/core/filter"
	perr "reportdash/internal/platform/errors"
)

// block is a validated MetricBlock ready to evaluate
type block struct {
	id     string
	name   string
	def    *catalog.ObjectDef
	agg    aggregator
	period PeriodType
	where  *filter.Predicate
	unit   UnitType
	kind   Kind
}

func (b *block) label() string {
	if b.name != "" {
		return b.name
	}
	return b.id
}

type groupPlan struct {
	value any
	label string
	// preds holds the equality predicate per object; objects that cannot
	// reach the group field are absent and stay unsplit
	preds map[string]*filter.Predicate
}

// plan is a fully validated request. Building one is the only step that can
// fail with a configuration error.
type plan struct {
	mode     Mode
	bucketer *bucket.Bucketer
	blocks   map[string]*block
	first    string
	eval     []string
	calc     *CalculationStep
	expose   []string
	shared   map[string]*filter.Predicate
	groups   []groupPlan
	objects  []string
}

// Validate checks req against s without evaluating anything
func Validate(s *catalog.Schema, req Request) error {
	_, err := compile(s, req)
	return err
}

// RequiredObjects lists the objects a computation reads, including
// relation targets its filters hop into
func RequiredObjects(s *catalog.Schema, req Request) ([]string, error) {
	p, err := compile(s, req)
	if err != nil {
		return nil, err
	}
	return p.objects, nil
}

func compile(s *catalog.Schema, req Request) (*plan, error) {
	f, root, err := req.formula()
	if err != nil {
		return nil, err
	}
	p := &plan{blocks: make(map[string]*block, len(f.Blocks))}

	switch req.Mode {
	case "", Scalar:
		p.mode = Scalar
	case Series:
		p.mode = Series
	default:
		return nil, perr.WithField(perr.InvalidArgf("unknown mode %q", req.Mode), "mode")
	}

	if p.bucketer, err = compileRange(req.Range, p.mode); err != nil {
		return nil, err
	}

	if len(f.Blocks) == 0 {
		return nil, perr.WithField(perr.InvalidArgf("formula needs at least one block"), root+".blocks")
	}
	for i, mb := range f.Blocks {
		path := root
		if root != "metric" {
			path = fmt.Sprintf("%s.blocks[%d]", root, i)
		}
		b, err := compileBlock(s, mb, path)
		if err != nil {
			return nil, err
		}
		if _, dup := p.blocks[b.id]; dup {
			return nil, perr.WithField(perr.InvalidArgf("duplicate block id %q", b.id), path+".id")
		}
		p.blocks[b.id] = b
	}
	p.first = f.Blocks[0].ID

	if c := f.Calculation; c != nil {
		if err := checkCalculation(p, *c, root+".calculation"); err != nil {
			return nil, err
		}
		p.calc = c
	}
	for i, id := range f.ExposeBlocks {
		if _, ok := p.blocks[id]; !ok {
			return nil, perr.WithField(perr.InvalidArgf("exposed block %q is not in the formula", id), fmt.Sprintf("%s.exposeBlocks[%d]", root, i))
		}
	}
	p.expose = f.ExposeBlocks

	if p.calc != nil {
		p.eval = appendUnique(p.eval, p.calc.LeftOperand, p.calc.RightOperand)
	} else {
		p.eval = appendUnique(p.eval, p.first)
	}
	p.eval = appendUnique(p.eval, p.expose...)

	objs := p.evalObjects()
	if req.Filters != nil {
		p.shared = make(map[string]*filter.Predicate, len(objs))
		for _, o := range objs {
			pred, err := filter.Compile(s, o, *req.Filters, filter.SkipUnrelated())
			if err != nil {
				return nil, under(err, "filters")
			}
			p.shared[o] = pred
		}
		if err := checkReach(s, req.Filters.Conditions, objs); err != nil {
			return nil, err
		}
	}
	if req.GroupBy != nil {
		if p.groups, err = compileGroups(s, *req.GroupBy, objs); err != nil {
			return nil, err
		}
	}
	p.objects = requiredObjects(s, f, req, p, objs)
	return p, nil
}

func (r Request) formula() (MetricFormula, string, error) {
	switch {
	case r.Formula != nil && r.Metric != nil:
		return MetricFormula{}, "", perr.WithField(perr.InvalidArgf("formula and metric are mutually exclusive"), "metric")
	case r.Formula != nil:
		return *r.Formula, "formula", nil
	case r.Metric != nil:
		return r.Metric.ToFormula(), "metric", nil
	}
	return MetricFormula{}, "", perr.WithField(perr.InvalidArgf("a formula or a metric is required"), "formula")
}

func compileRange(r Range, mode Mode) (*bucket.Bucketer, error) {
	if r.Start.IsZero() {
		return nil, perr.WithField(perr.InvalidArgf("range start is required"), "range.start")
	}
	if r.End.IsZero() {
		return nil, perr.WithField(perr.InvalidArgf("range end is required"), "range.end")
	}
	g := r.Granularity
	if g == "" {
		if mode == Series {
			return nil, perr.WithField(perr.InvalidArgf("series mode needs a granularity"), "range.granularity")
		}
		g = bucket.Day
	}
	newBucketer := bucket.New
	if mode != Series {
		newBucketer = bucket.Span
	}
	bk, err := newBucketer(r.Start, r.End, g)
	if err != nil {
		return nil, under(err, "range")
	}
	return bk, nil
}

func compileBlock(s *catalog.Schema, mb MetricBlock, path string) (*block, error) {
	if mb.ID == "" {
		return nil, perr.WithField(perr.InvalidArgf("block id is required"), path+".id")
	}
	b := &block{id: mb.ID, name: mb.Name, period: mb.Type}

	switch mb.Type {
	case SumOverPeriod, AverageOverPeriod:
		b.kind = KindFlow
	case Latest, First:
		b.kind = KindSnapshot
	default:
		return nil, perr.WithField(perr.InvalidArgf("unknown block type %q", mb.Type), path+".type")
	}

	object := mb.Object
	if mb.Source != nil {
		if object != "" && object != mb.Source.Object {
			return nil, perr.WithField(perr.InvalidArgf("block object %q differs from source object %q", object, mb.Source.Object), path+".object")
		}
		object = mb.Source.Object
	}
	if object == "" && len(mb.Filters) > 0 {
		object = mb.Filters[0].Field.Object
	}
	if object == "" {
		return nil, perr.WithField(perr.InvalidArgf("block %q needs an object, a source or a filter to select records", mb.ID), path+".object")
	}
	def, ok := s.Object(object)
	if !ok {
		return nil, perr.WithField(perr.InvalidArgf("unknown object %q", object), path+".object")
	}
	b.def = def

	var src catalog.Field
	if mb.Source != nil {
		f, err := s.Field(*mb.Source)
		if err != nil {
			return nil, perr.WithField(err, path+".source")
		}
		src = f
	}

	switch mb.Op {
	case OpCount:
		b.agg = countAgg{}
	case OpDistinctCount:
		b.agg = distinctAgg{field: src.Name}
	case OpSum, OpAvg, OpMedian, OpMode:
		if mb.Source == nil {
			return nil, perr.WithField(perr.InvalidArgf("op %s requires a source field", mb.Op), path+".source")
		}
		if !src.Type.Numeric() {
			return nil, perr.WithField(perr.InvalidArgf("op %s needs a number or currency field, %s is %s", mb.Op, mb.Source, src.Type), path+".source")
		}
		b.agg = numericAgg{op: mb.Op, field: src.Name, currency: src.Type == catalog.TypeCurrency}
	default:
		return nil, perr.WithField(perr.InvalidArgf("unknown op %q", mb.Op), path+".op")
	}

	where, err := filter.Compile(s, object, filter.Group{Logic: filter.And, Conditions: mb.Filters})
	if err != nil {
		return nil, under(err, path+".filters")
	}
	b.where = where

	switch mb.UnitType {
	case "":
		b.unit = defaultUnit(mb.Op, src.Type)
	case UnitCurrency, UnitCount, UnitRate, UnitDate:
		b.unit = mb.UnitType
	default:
		return nil, perr.WithField(perr.InvalidArgf("unknown unit type %q", mb.UnitType), path+".unitType")
	}
	return b, nil
}

func checkCalculation(p *plan, c CalculationStep, path string) error {
	switch c.Operator {
	case Add, Subtract, Multiply, Divide:
	default:
		return perr.WithField(perr.InvalidArgf("unknown operator %q", c.Operator), path+".operator")
	}
	if _, ok := p.blocks[c.LeftOperand]; !ok {
		return perr.WithField(perr.InvalidArgf("left operand %q is not a block in the formula", c.LeftOperand), path+".leftOperand")
	}
	if _, ok := p.blocks[c.RightOperand]; !ok {
		return perr.WithField(perr.InvalidArgf("right operand %q is not a block in the formula", c.RightOperand), path+".rightOperand")
	}
	switch c.ResultUnitType {
	case "", UnitCurrency, UnitCount, UnitRate, UnitDate:
	default:
		return perr.WithField(perr.InvalidArgf("unknown unit type %q", c.ResultUnitType), path+".resultUnitType")
	}
	return nil
}

// checkReach rejects list-level conditions that no evaluated object can
// apply, directly or through a relation
func checkReach(s *catalog.Schema, conds []filter.Condition, objs []string) error {
	for i, c := range conds {
		if !slices.ContainsFunc(objs, func(o string) bool { return reaches(s, o, c.Field.Object) }) {
			return perr.WithField(perr.InvalidArgf("no evaluated block can reach %s", c.Field),
				fmt.Sprintf("filters.conditions[%d].field", i))
		}
	}
	return nil
}

func reaches(s *catalog.Schema, from, to string) bool {
	if from == to {
		return true
	}
	def, ok := s.Object(from)
	if !ok {
		return false
	}
	_, ok = def.RelationTo(to)
	return ok
}

func compileGroups(s *catalog.Schema, gb GroupBy, objs []string) ([]groupPlan, error) {
	switch {
	case len(gb.Values) == 0:
		return nil, perr.WithField(perr.InvalidArgf("group by needs at least one value"), "groupBy.values")
	case len(gb.Values) > MaxGroupValues:
		return nil, perr.WithField(perr.InvalidArgf("group by accepts at most %d values, got %d", MaxGroupValues, len(gb.Values)), "groupBy.values")
	}
	f, err := s.Field(gb.Field)
	if err != nil {
		return nil, perr.WithField(err, "groupBy.field")
	}
	out := make([]groupPlan, 0, len(gb.Values))
	seen := make(map[string]int, len(gb.Values))
	for i, v := range gb.Values {
		key := groupKey(f.Type, v)
		if j, dup := seen[key]; dup {
			return nil, perr.WithField(perr.InvalidArgf("group by value %v repeats values[%d]", v, j), fmt.Sprintf("groupBy.values[%d]", i))
		}
		seen[key] = i
		g := groupPlan{value: v, label: groupLabel(f.Type, v), preds: map[string]*filter.Predicate{}}
		cond := filter.Group{Conditions: []filter.Condition{{Field: gb.Field, Operator: filter.Equals, Value: v}}}
		for _, o := range objs {
			pred, err := filter.Compile(s, o, cond, filter.SkipUnrelated())
			if err != nil {
				return nil, perr.WithField(err, fmt.Sprintf("groupBy.values[%d]", i))
			}
			if pred != nil {
				g.preds[o] = pred
			}
		}
		if len(g.preds) == 0 {
			return nil, perr.WithField(perr.InvalidArgf("no evaluated block can reach %s", gb.Field), "groupBy.field")
		}
		out = append(out, g)
	}
	return out, nil
}

func groupKey(t catalog.FieldType, v any) string {
	if cv, err := catalog.Coerce(t, v); err == nil && !cv.IsNull() {
		return cv.Key()
	}
	return fmt.Sprintf("%T:%v", v, v)
}

func groupLabel(t catalog.FieldType, v any) string {
	if cv, err := catalog.Coerce(t, v); err == nil && !cv.IsNull() {
		return cv.Text()
	}
	return fmt.Sprint(v)
}

func (p *plan) evalObjects() []string {
	seen := map[string]bool{}
	var out []string
	for _, id := range p.eval {
		o := p.blocks[id].def.Name
		if !seen[o] {
			seen[o] = true
			out = append(out, o)
		}
	}
	return out
}

func requiredObjects(s *catalog.Schema, f MetricFormula, req Request, p *plan, objs []string) []string {
	set := map[string]bool{}
	reach := func(from, to string) {
		if from == to {
			return
		}
		if def, ok := s.Object(from); ok {
			if _, ok := def.RelationTo(to); ok {
				set[to] = true
			}
		}
	}
	for _, o := range objs {
		set[o] = true
		if req.Filters != nil {
			for _, c := range req.Filters.Conditions {
				reach(o, c.Field.Object)
			}
		}
		if req.GroupBy != nil {
			reach(o, req.GroupBy.Field.Object)
		}
	}
	for _, mb := range f.Blocks {
		b, ok := p.blocks[mb.ID]
		if !ok || !slices.Contains(p.eval, mb.ID) {
			continue
		}
		for _, c := range mb.Filters {
			reach(b.def.Name, c.Field.Object)
		}
	}
	out := make([]string, 0, len(set))
	for o := range set {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

func defaultUnit(op Op, t catalog.FieldType) UnitType {
	if (op == OpSum || op == OpAvg || op == OpMedian || op == OpMode) && t == catalog.TypeCurrency {
		return UnitCurrency
	}
	return UnitCount
}

// under re-roots an error's field path beneath prefix
func under(err error, prefix string) error {
	f := perr.FieldOf(err)
	switch {
	case f == "":
		return perr.WithField(err, prefix)
	case strings.HasSuffix(prefix, ".filters") && strings.HasPrefix(f, "conditions"):
		// block filters are a bare condition list
		return perr.WithField(err, prefix+strings.TrimPrefix(f, "conditions"))
	}
	return perr.WithField(err, prefix+"."+f)
}

func appendUnique(xs []string, ids ...string) []string {
	for _, id := range ids {
		if !slices.Contains(xs, id) {
			xs = append(xs, id)
		}
	}
	return xs
}
