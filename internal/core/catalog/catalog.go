package catalog

import (
	"sort"
	"time"
)

// Record is one row of an object. Fields hold only declared names.
type Record struct {
	object string
	id     string
	fields map[string]Value
}

// NewRecord builds a record directly from typed values
func NewRecord(object, id string, fields map[string]Value) *Record {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return &Record{object: object, id: id, fields: cp}
}

// Object names the record's object
func (r *Record) Object() string { return r.object }

// ID is the record's unique id within its object
func (r *Record) ID() string { return r.id }

// Get returns a field value; missing fields are null
func (r *Record) Get(name string) Value {
	if name == IDField {
		return String(r.id)
	}
	return r.fields[name]
}

// Time returns the value of the object's time field
func (r *Record) Time(def *ObjectDef) (time.Time, bool) {
	return r.Get(def.TimeField).Time()
}

// Table is the ordered record list for one object
type Table struct {
	def     *ObjectDef
	records []*Record
	byID    map[string]*Record
}

// Def is the table's object declaration
func (t *Table) Def() *ObjectDef { return t.def }

// Records returns the rows in load order. Callers must not mutate the slice.
func (t *Table) Records() []*Record { return t.records }

// Len is the row count
func (t *Table) Len() int { return len(t.records) }

// ByID finds a row by id
func (t *Table) ByID(id string) (*Record, bool) {
	r, ok := t.byID[id]
	return r, ok
}

// Catalog is an immutable snapshot of tables keyed by object name.
// It is safe for concurrent reads.
type Catalog struct {
	schema *Schema
	tables map[string]*Table
}

// Schema returns the declarations the catalog was loaded against
func (c *Catalog) Schema() *Schema { return c.schema }

// Table returns the table for a declared object. Declared objects with no
// loaded rows return an empty table.
func (c *Catalog) Table(object string) (*Table, bool) {
	if t, ok := c.tables[object]; ok {
		return t, true
	}
	def, ok := c.schema.Object(object)
	if !ok {
		return nil, false
	}
	return &Table{def: def, byID: map[string]*Record{}}, true
}

// Lookup resolves a related record by object and id
func (c *Catalog) Lookup(object, id string) (*Record, bool) {
	t, ok := c.tables[object]
	if !ok {
		return nil, false
	}
	return t.ByID(id)
}

// Counts returns the row count per loaded object
func (c *Catalog) Counts() map[string]int {
	out := make(map[string]int, len(c.tables))
	for name, t := range c.tables {
		out[name] = t.Len()
	}
	return out
}

// Objects returns loaded object names sorted
func (c *Catalog) Objects() []string {
	out := make([]string, 0, len(c.tables))
	for name := range c.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
