package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/dataset"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/persistence/models"
)

const (
	// insertChunkSize is the number of rows per INSERT statement.
	insertChunkSize = 400
	// maxBindVars stays below the bind variable limits of all dialects.
	maxBindVars = 30000
	// idChunkSize bounds IN lists.
	idChunkSize = 500
)

// ObjectStore persists the objects of a linked schema in its class tables.
type ObjectStore struct {
	db      *gorm.DB
	dialect Dialect
	schema  *schema.Schema
}

var (
	_ dataset.Repository       = (*ObjectStore)(nil)
	_ dataset.SourceRepository = (*ObjectStore)(nil)
)

// NewObjectStore creates a store on db.
func NewObjectStore(db *gorm.DB, dialect Dialect, s *schema.Schema) *ObjectStore {
	return &ObjectStore{db: db, dialect: dialect, schema: s}
}

// WithTx returns a store that runs its statements in tx.
func (r *ObjectStore) WithTx(tx *gorm.DB) *ObjectStore {
	return &ObjectStore{db: tx, dialect: r.dialect, schema: r.schema}
}

type tableRows struct {
	columns []string
	rows    [][]any
}

// Insert validates and stores objects. Every class of an object's chain gets
// one row; many-to-many links go to the association tables.
func (r *ObjectStore) Insert(ctx context.Context, objects []*dataset.Object) error {
	tables := make(map[string]*tableRows)
	add := func(table string, columns []string, row []any) {
		t, ok := tables[table]
		if !ok {
			t = &tableRows{columns: columns}
			tables[table] = t
		}
		t.rows = append(t.rows, row)
	}

	for _, obj := range objects {
		cls, err := obj.Validate(r.schema)
		if err != nil {
			return err
		}
		for _, c := range cls.Chain() {
			add(TableName(c), ClassColumns(c), classRow(c, cls, obj))
		}
		for _, p := range cls.AllProps() {
			if !p.Association() {
				continue
			}
			table, local, remote := AssociationTable(p)
			for _, target := range obj.Links[p.Key()] {
				add(table, []string{local, remote}, []any{obj.ID, target})
			}
		}
	}

	db := r.db.WithContext(ctx)
	order := r.tableOrder(tables)
	for _, table := range order {
		t := tables[table]
		if err := r.insertRows(db, table, t); err != nil {
			return err
		}
	}
	return nil
}

func classRow(c, concrete *schema.Class, obj *dataset.Object) []any {
	row := []any{obj.ID}
	if c.Parent == nil {
		var source any
		if obj.SourceID != 0 {
			source = obj.SourceID
		}
		row = append(row, concrete.FullName(), source)
	}
	for _, p := range storedProps(c) {
		var v any
		switch p.Kind() {
		case schema.KindReference:
			if id, ok := obj.Refs[p.Key()]; ok {
				v = id
			}
		case schema.KindEnumeration:
			if label, ok := obj.Enums[p.Key()]; ok {
				v = label
			}
		default:
			if value, ok := obj.Values[p.Key()]; ok {
				v = value
			}
		}
		row = append(row, v)
	}
	return row
}

// tableOrder puts class tables in hierarchy order, association tables last.
func (r *ObjectStore) tableOrder(tables map[string]*tableRows) []string {
	var order []string
	seen := make(map[string]struct{})
	for _, c := range r.schema.Classes() {
		name := TableName(c)
		if _, ok := tables[name]; ok {
			order = append(order, name)
			seen[name] = struct{}{}
		}
	}
	var rest []string
	for name := range tables {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func (r *ObjectStore) insertRows(db *gorm.DB, table string, t *tableRows) error {
	d := r.dialect
	chunk := insertChunkSize
	if n := maxBindVars / len(t.columns); n < chunk {
		chunk = n
	}
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ") + ")"
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", d.Quote(table), d.QuoteAll(t.columns))

	for start := 0; start < len(t.rows); start += chunk {
		end := min(start+chunk, len(t.rows))
		rows := t.rows[start:end]
		values := make([]string, len(rows))
		args := make([]any, 0, len(rows)*len(t.columns))
		for i, row := range rows {
			values[i] = placeholder
			args = append(args, row...)
		}
		if err := db.Exec(prefix+strings.Join(values, ", "), args...).Error; err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

// Delete removes an object. Rows of the class chain and outgoing links are
// removed by cascade from the root table.
func (r *ObjectStore) Delete(ctx context.Context, obj *dataset.Object) error {
	cls, err := r.schema.Class(obj.Class)
	if err != nil {
		return err
	}
	d := r.dialect
	res := r.db.WithContext(ctx).Exec(
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", d.Quote(TableName(cls.Root())), d.Quote(ColumnID)), obj.ID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete %s: %w", obj.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return shared.Wrap(shared.ErrNotFound, "object %s", obj.ID)
	}
	return nil
}

// Find lists objects of a class ordered by id. Objects of subclasses carry
// the columns of class only; use Get for all of their properties.
func (r *ObjectStore) Find(ctx context.Context, class *schema.Class, q dataset.Query) ([]*dataset.Object, error) {
	d := r.dialect
	var where string
	var args []any
	if q.Exact {
		where = fmt.Sprintf("t0.%s = ?", d.Quote(ColumnType))
		args = append(args, class.FullName())
	}
	return r.load(ctx, class, where, args, q.Limit, q.Offset)
}

// Get loads one object with all of its properties.
func (r *ObjectStore) Get(ctx context.Context, class *schema.Class, id string) (*dataset.Object, error) {
	d := r.dialect
	var typ string
	err := r.db.WithContext(ctx).Raw(
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", d.Quote(ColumnType), d.Quote(TableName(class.Root())), d.Quote(ColumnID)),
		id).Row().Scan(&typ)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.Wrap(shared.ErrNotFound, "%s %s", class.Name, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", id, err)
	}
	concrete, err := r.schema.Class(typ)
	if err != nil {
		return nil, fmt.Errorf("object %s has unknown type %s: %w", id, typ, err)
	}
	if !concrete.IsA(class) {
		return nil, shared.Wrap(shared.ErrNotFound, "%s %s", class.Name, id)
	}
	objects, err := r.load(ctx, concrete, fmt.Sprintf("t0.%s = ?", d.Quote(ColumnID)), []any{id}, 0, 0)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, shared.Wrap(shared.ErrNotFound, "%s %s", class.Name, id)
	}
	return objects[0], nil
}

type column struct {
	prop *schema.Property
	dest any
}

// load selects objects over the joined tables of the class chain.
func (r *ObjectStore) load(ctx context.Context, class *schema.Class, where string, args []any, limit, offset int) ([]*dataset.Object, error) {
	d := r.dialect
	chain := class.Chain()

	selects := []string{
		"t0." + d.Quote(ColumnID),
		"t0." + d.Quote(ColumnType),
		"t0." + d.Quote(ColumnSourceID),
	}
	var props []*schema.Property
	from := d.Quote(TableName(chain[0])) + " t0"
	for i, c := range chain {
		alias := fmt.Sprintf("t%d", i)
		if i > 0 {
			from += fmt.Sprintf(" JOIN %s %s ON %s.%s = t0.%s",
				d.Quote(TableName(c)), alias, alias, d.Quote(ColumnID), d.Quote(ColumnID))
		}
		for _, p := range storedProps(c) {
			selects = append(selects, alias+"."+d.Quote(p.Column()))
			props = append(props, p)
		}
	}

	query := "SELECT " + strings.Join(selects, ", ") + " FROM " + from
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY t0." + d.Quote(ColumnID)
	query += d.Page(limit, offset)

	rows, err := r.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", class.Name, err)
	}
	var objects []*dataset.Object
	err = func() error {
		defer rows.Close()
		for rows.Next() {
			var (
				id, typ string
				source  sql.NullInt64
			)
			cols := make([]column, len(props))
			dests := []any{&id, &typ, &source}
			for i, p := range props {
				cols[i] = column{prop: p, dest: scanDest(p)}
				dests = append(dests, cols[i].dest)
			}
			if err := rows.Scan(dests...); err != nil {
				return err
			}
			obj, err := r.object(id, typ, source, cols)
			if err != nil {
				return err
			}
			objects = append(objects, obj)
		}
		return rows.Err()
	}()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", class.Name, err)
	}

	if err := r.loadLinks(ctx, class, objects); err != nil {
		return nil, err
	}
	return objects, nil
}

func scanDest(p *schema.Property) any {
	if p.Kind() != schema.KindValue {
		return new(sql.NullString)
	}
	switch p.ColumnType() {
	case schema.ColumnFloat:
		return new(sql.NullFloat64)
	case schema.ColumnInteger:
		return new(sql.NullInt64)
	case schema.ColumnBoolean:
		return new(sql.NullBool)
	default:
		return new(sql.NullString)
	}
}

func (r *ObjectStore) object(id, typ string, source sql.NullInt64, cols []column) (*dataset.Object, error) {
	cls, err := r.schema.Class(typ)
	if err != nil {
		return nil, fmt.Errorf("object %s has unknown type %s: %w", id, typ, err)
	}
	obj := dataset.NewObject(cls.Key(), id)
	if source.Valid {
		obj.SourceID = uint(source.Int64)
	}
	for _, c := range cols {
		key := c.prop.Key()
		switch v := c.dest.(type) {
		case *sql.NullString:
			if !v.Valid {
				continue
			}
			switch c.prop.Kind() {
			case schema.KindReference:
				obj.SetRef(key, v.String)
			case schema.KindEnumeration:
				obj.SetEnum(key, v.String)
			default:
				obj.SetValue(key, v.String)
			}
		case *sql.NullFloat64:
			if v.Valid {
				obj.SetValue(key, v.Float64)
			}
		case *sql.NullInt64:
			if v.Valid {
				obj.SetValue(key, v.Int64)
			}
		case *sql.NullBool:
			if v.Valid {
				obj.SetValue(key, v.Bool)
			}
		}
	}
	return obj, nil
}

// loadLinks fills the many-to-many links of class's association properties.
func (r *ObjectStore) loadLinks(ctx context.Context, class *schema.Class, objects []*dataset.Object) error {
	if len(objects) == 0 {
		return nil
	}
	byID := make(map[string]*dataset.Object, len(objects))
	ids := make([]string, 0, len(objects))
	for _, o := range objects {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}
	for _, p := range class.AllProps() {
		if !p.Association() {
			continue
		}
		table, local, remote := AssociationTable(p)
		pairs, err := r.pairs(ctx, table, local, remote, ids)
		if err != nil {
			return err
		}
		for _, pair := range pairs {
			byID[pair[0]].AddLink(p.Key(), pair[1])
		}
	}
	return nil
}

// pairs reads (match, other) pairs of an association table whose match column is in ids.
func (r *ObjectStore) pairs(ctx context.Context, table, match, other string, ids []string) ([][2]string, error) {
	d := r.dialect
	var out [][2]string
	for start := 0; start < len(ids); start += idChunkSize {
		chunk := ids[start:min(start+idChunkSize, len(ids))]
		query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN ? ORDER BY %s, %s",
			d.Quote(match), d.Quote(other), d.Quote(table), d.Quote(match), d.Quote(match), d.Quote(other))
		rows, err := r.db.WithContext(ctx).Raw(query, chunk).Rows()
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", table, err)
		}
		err = func() error {
			defer rows.Close()
			for rows.Next() {
				var pair [2]string
				if err := rows.Scan(&pair[0], &pair[1]); err != nil {
					return err
				}
				out = append(out, pair)
			}
			return rows.Err()
		}()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", table, err)
		}
	}
	return out, nil
}

// Count counts the objects of a class and its subclasses.
func (r *ObjectStore) Count(ctx context.Context, class *schema.Class) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Raw("SELECT count(*) FROM " + r.dialect.Quote(TableName(class))).Row().Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", class.Name, err)
	}
	return n, nil
}

// IDs returns the identifiers of all objects of a class and its subclasses.
func (r *ObjectStore) IDs(ctx context.Context, class *schema.Class) (map[string]struct{}, error) {
	return r.column(ctx, TableName(class), ColumnID, "", nil)
}

func (r *ObjectStore) column(ctx context.Context, table, col, where string, args []any) (map[string]struct{}, error) {
	d := r.dialect
	query := fmt.Sprintf("SELECT %s FROM %s", d.Quote(col), d.Quote(table))
	if where != "" {
		query += " WHERE " + where
	}
	rows, err := r.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", table, err)
		}
		if v.Valid {
			out[v.String] = struct{}{}
		}
	}
	return out, rows.Err()
}

// Related follows a reference property from the object with the given id:
// single references, many-to-many links and the inverse side of either.
// Dangling targets are left out.
func (r *ObjectStore) Related(ctx context.Context, p *schema.Property, id string) ([]*dataset.Object, error) {
	if p.Kind() != schema.KindReference {
		return nil, shared.Wrap(shared.ErrInvalidInput, "%s.%s is not a reference", p.ClassName, p.Key())
	}
	d := r.dialect

	var targets []string
	switch {
	case p.Association():
		table, local, remote := AssociationTable(p)
		pairs, err := r.pairs(ctx, table, local, remote, []string{id})
		if err != nil {
			return nil, err
		}
		for _, pair := range pairs {
			targets = append(targets, pair[1])
		}
	case p.Used:
		found, err := r.column(ctx, TableName(p.Class), p.Column(), d.Quote(ColumnID)+" = ?", []any{id})
		if err != nil {
			return nil, err
		}
		targets = sortedKeys(found)
	case p.Inverse != nil && p.Inverse.Association():
		table, local, remote := AssociationTable(p.Inverse)
		pairs, err := r.pairs(ctx, table, remote, local, []string{id})
		if err != nil {
			return nil, err
		}
		for _, pair := range pairs {
			targets = append(targets, pair[1])
		}
	case p.Inverse != nil:
		inv := p.Inverse
		found, err := r.column(ctx, TableName(inv.Class), ColumnID, d.Quote(inv.Column())+" = ?", []any{id})
		if err != nil {
			return nil, err
		}
		targets = sortedKeys(found)
	default:
		return nil, shared.Wrap(shared.ErrInvalidState, "%s.%s is not stored", p.ClassName, p.Key())
	}

	out := make([]*dataset.Object, 0, len(targets))
	for _, target := range targets {
		obj, err := r.Get(ctx, p.Range, target)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SaveSources stores source records and assigns their ids.
func (r *ObjectStore) SaveSources(ctx context.Context, sources []*dataset.SourceInfo) error {
	db := r.db.WithContext(ctx)
	for _, info := range sources {
		var m models.SourceInfoModel
		if err := m.FromDomain(info); err != nil {
			return fmt.Errorf("failed to encode source %s: %w", info.Filename, err)
		}
		if err := db.Create(&m).Error; err != nil {
			return fmt.Errorf("failed to save source %s: %w", info.Filename, err)
		}
		info.ID = m.ID
	}
	return nil
}

// Sources lists the stored source records.
func (r *ObjectStore) Sources(ctx context.Context) ([]*dataset.SourceInfo, error) {
	var rows []models.SourceInfoModel
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read sources: %w", err)
	}
	out := make([]*dataset.SourceInfo, 0, len(rows))
	for i := range rows {
		info, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}
