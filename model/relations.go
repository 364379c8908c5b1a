package model

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/arbor-orm/arbor"
	"github.com/arbor-orm/arbor/dialect"
	"github.com/arbor-orm/arbor/query"
)

type relationKind int

const (
	kindHasOne relationKind = iota
	kindHasMany
	kindBelongsTo
	kindBelongsToMany
	kindMorphOne
	kindMorphMany
	kindMorphTo
	kindMorphToMany
	kindMorphedByMany
)

// Relation describes one declared relationship: its kind, the related
// type, and the key columns involved. Relations form a closed set
// registered during type initialization; there is no dynamic method
// discovery.
type Relation struct {
	kind            relationKind
	owner           *Type
	related         *Type
	foreignKey      string
	localKey        string
	ownerKey        string
	pivotTable      string
	foreignPivotKey string
	relatedPivotKey string
	morphName       string
	candidates      map[string]*Type
}

// Kind returns a readable name for the relation kind.
func (r *Relation) Kind() string {
	switch r.kind {
	case kindHasOne:
		return "hasOne"
	case kindHasMany:
		return "hasMany"
	case kindBelongsTo:
		return "belongsTo"
	case kindBelongsToMany:
		return "belongsToMany"
	case kindMorphOne:
		return "morphOne"
	case kindMorphMany:
		return "morphMany"
	case kindMorphTo:
		return "morphTo"
	case kindMorphToMany:
		return "morphToMany"
	case kindMorphedByMany:
		return "morphedByMany"
	}
	return "unknown"
}

func (r *Relation) single() bool {
	switch r.kind {
	case kindHasOne, kindBelongsTo, kindMorphOne, kindMorphTo:
		return true
	}
	return false
}

func (r *Relation) typeColumn() string { return r.morphName + "_type" }
func (r *Relation) idColumn() string   { return r.morphName + "_id" }

// HasOne declares a 1:1 relation: related.foreignKey = owner.localKey.
// foreignKey defaults to "<owner>_id", localKey to the owner's primary
// key.
func (t *Type) HasOne(name string, related *Type, keys ...string) *Type {
	t.relations[name] = &Relation{
		kind:       kindHasOne,
		owner:      t,
		related:    related,
		foreignKey: pick(keys, 0, inflect.Underscore(t.name)+"_id"),
		localKey:   pick(keys, 1, t.primaryKey),
	}
	return t
}

// HasMany declares a 1:N relation with HasOne's key semantics.
func (t *Type) HasMany(name string, related *Type, keys ...string) *Type {
	t.relations[name] = &Relation{
		kind:       kindHasMany,
		owner:      t,
		related:    related,
		foreignKey: pick(keys, 0, inflect.Underscore(t.name)+"_id"),
		localKey:   pick(keys, 1, t.primaryKey),
	}
	return t
}

// BelongsTo declares the N:1 inverse: owner.foreignKey =
// related.ownerKey. foreignKey defaults to "<related>_id", ownerKey to
// the related type's primary key.
func (t *Type) BelongsTo(name string, related *Type, keys ...string) *Type {
	t.relations[name] = &Relation{
		kind:       kindBelongsTo,
		owner:      t,
		related:    related,
		foreignKey: pick(keys, 0, inflect.Underscore(related.name)+"_id"),
		ownerKey:   pick(keys, 1, related.primaryKey),
	}
	return t
}

// BelongsToMany declares an N:N relation through a pivot table. The
// pivot name defaults to the two singular entity names, underscored and
// joined alphabetically ("post_tag"); the pivot keys default to
// "<owner>_id" and "<related>_id".
func (t *Type) BelongsToMany(name string, related *Type, keys ...string) *Type {
	t.relations[name] = &Relation{
		kind:            kindBelongsToMany,
		owner:           t,
		related:         related,
		pivotTable:      pick(keys, 0, defaultPivot(t, related)),
		foreignPivotKey: pick(keys, 1, inflect.Underscore(t.name)+"_id"),
		relatedPivotKey: pick(keys, 2, inflect.Underscore(related.name)+"_id"),
	}
	return t
}

// MorphOne declares a polymorphic 1:1: related rows carry the owner's
// type tag in "<morphName>_type" and its key in "<morphName>_id".
func (t *Type) MorphOne(name string, related *Type, morphName string, keys ...string) *Type {
	t.relations[name] = &Relation{
		kind:      kindMorphOne,
		owner:     t,
		related:   related,
		morphName: morphName,
		localKey:  pick(keys, 0, t.primaryKey),
	}
	return t
}

// MorphMany declares a polymorphic 1:N with MorphOne's key semantics.
func (t *Type) MorphMany(name string, related *Type, morphName string, keys ...string) *Type {
	t.relations[name] = &Relation{
		kind:      kindMorphMany,
		owner:     t,
		related:   related,
		morphName: morphName,
		localKey:  pick(keys, 0, t.primaryKey),
	}
	return t
}

// MorphTo declares the polymorphic N:1 inverse: the owner's
// "<morphName>_type" column names the related type and
// "<morphName>_id" holds its key. Candidate types are registered
// explicitly, keyed by their morph tag.
func (t *Type) MorphTo(name, morphName string, candidates ...*Type) *Type {
	byTag := make(map[string]*Type, len(candidates))
	for _, c := range candidates {
		byTag[c.morphClass] = c
	}
	t.relations[name] = &Relation{
		kind:       kindMorphTo,
		owner:      t,
		morphName:  morphName,
		candidates: byTag,
	}
	return t
}

// MorphToMany declares a polymorphic N:N: the pivot is keyed by
// "<morphName>_id" plus the "<morphName>_type" discriminator on the
// owner side and "<related>_id" on the related side. The pivot table
// defaults to the pluralized morph name ("taggables").
func (t *Type) MorphToMany(name string, related *Type, morphName string, keys ...string) *Type {
	t.relations[name] = &Relation{
		kind:            kindMorphToMany,
		owner:           t,
		related:         related,
		morphName:       morphName,
		pivotTable:      pick(keys, 0, inflect.Pluralize(morphName)),
		relatedPivotKey: pick(keys, 1, inflect.Underscore(related.name)+"_id"),
	}
	return t
}

// MorphedByMany declares the inverse of MorphToMany: the owner keys the
// pivot by "<owner>_id" and the related rows by "<morphName>_id" with
// the related type's tag as discriminator.
func (t *Type) MorphedByMany(name string, related *Type, morphName string, keys ...string) *Type {
	t.relations[name] = &Relation{
		kind:            kindMorphedByMany,
		owner:           t,
		related:         related,
		morphName:       morphName,
		pivotTable:      pick(keys, 0, inflect.Pluralize(morphName)),
		foreignPivotKey: pick(keys, 1, inflect.Underscore(t.name)+"_id"),
	}
	return t
}

// Relation returns the declared relation descriptor, or nil.
func (t *Type) Relation(name string) *Relation {
	return t.relations[name]
}

// Related resolves the named relation for this model, loading it on
// first access and memoizing the result. Single-valued relations yield
// a *Model (nil on a miss, never an error); collection-valued relations
// yield a Collection.
func (m *Model) Related(ctx context.Context, name string) (any, error) {
	if v, ok := m.relations[name]; ok {
		return v, nil
	}
	r := m.typ.relations[name]
	if r == nil {
		return nil, fmt.Errorf("model: %s has no relation %q", m.typ.name, name)
	}
	v, err := r.resolve(ctx, m.conn, m)
	if err != nil {
		return nil, err
	}
	m.relations[name] = v
	return v, nil
}

// RelatedOne resolves a single-valued relation. A miss returns
// (nil, nil).
func (m *Model) RelatedOne(ctx context.Context, name string) (*Model, error) {
	v, err := m.Related(ctx, name)
	if err != nil || v == nil {
		return nil, err
	}
	one, ok := v.(*Model)
	if !ok {
		return nil, fmt.Errorf("model: relation %q is not single-valued", name)
	}
	return one, nil
}

// RelatedMany resolves a collection-valued relation.
func (m *Model) RelatedMany(ctx context.Context, name string) (Collection, error) {
	v, err := m.Related(ctx, name)
	if err != nil || v == nil {
		return nil, err
	}
	many, ok := v.(Collection)
	if !ok {
		return nil, fmt.Errorf("model: relation %q is not collection-valued", name)
	}
	return many, nil
}

// resolve issues one query for a single owner.
func (r *Relation) resolve(ctx context.Context, conn query.Connection, m *Model) (any, error) {
	if r.kind == kindMorphTo {
		return r.resolveMorphTo(ctx, conn, m)
	}
	q := r.ownerQuery(conn, m)
	if r.single() {
		one, err := q.First(ctx)
		if arbor.IsNotFound(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return one, nil
	}
	return q.Get(ctx)
}

// ownerQuery builds the related query constrained to one owner.
func (r *Relation) ownerQuery(conn query.Connection, m *Model) *Query {
	q := r.related.Query(conn)
	switch r.kind {
	case kindHasOne, kindHasMany:
		q.Where(r.foreignKey, m.Get(r.localKey))
	case kindBelongsTo:
		q.Where(r.ownerKey, m.Get(r.foreignKey))
	case kindMorphOne, kindMorphMany:
		q.Where(r.typeColumn(), r.owner.morphClass)
		q.Where(r.idColumn(), m.Get(r.localKey))
	case kindBelongsToMany:
		r.joinPivot(q)
		q.builder.Where(r.pivotTable+"."+r.foreignPivotKey, m.Key())
	case kindMorphToMany:
		r.joinPivot(q)
		q.builder.Where(r.pivotTable+"."+r.idColumn(), m.Key())
		q.builder.Where(r.pivotTable+"."+r.typeColumn(), r.owner.morphClass)
	case kindMorphedByMany:
		r.joinPivot(q)
		q.builder.Where(r.pivotTable+"."+r.foreignPivotKey, m.Key())
		q.builder.Where(r.pivotTable+"."+r.typeColumn(), r.related.morphClass)
	}
	return q
}

// joinPivot joins the pivot table and selects the related columns plus
// the owner-side pivot key, aliased with a "pivot_" prefix for
// distribution after hydration.
func (r *Relation) joinPivot(q *Query) {
	related := r.related
	pivotRelated := r.relatedPivotKey
	if r.kind == kindMorphedByMany {
		pivotRelated = r.idColumn()
	}
	q.builder.Join(r.pivotTable, related.table+"."+related.primaryKey, "=", r.pivotTable+"."+pivotRelated)
	d := q.builder.Dialect()
	ownerSide := r.pivotOwnerKey()
	q.builder.Select(related.table + ".*")
	q.builder.SelectRaw(dialect.Quote(d, r.pivotTable+"."+ownerSide) + " AS " + dialect.Quote(d, "pivot_"+ownerSide))
}

// pivotOwnerKey returns the pivot column holding the owner's key.
func (r *Relation) pivotOwnerKey() string {
	switch r.kind {
	case kindMorphToMany:
		return r.idColumn()
	default:
		return r.foreignPivotKey
	}
}

func (r *Relation) resolveMorphTo(ctx context.Context, conn query.Connection, m *Model) (any, error) {
	tag := m.GetString(r.typeColumn())
	if tag == "" {
		return nil, nil
	}
	typ, ok := r.candidates[tag]
	if !ok {
		return nil, fmt.Errorf("model: no candidate type registered for morph tag %q", tag)
	}
	one, err := typ.Query(conn).Where(typ.primaryKey, m.Get(r.idColumn())).First(ctx)
	if arbor.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return one, nil
}

// eagerLoad batches the relation across all owners: collect the owner
// keys, issue one WHERE-IN query for the relateds, and distribute by
// key. MorphTo issues one query per distinct owner type instead.
func (r *Relation) eagerLoad(ctx context.Context, conn query.Connection, name string, owners Collection) error {
	if len(owners) == 0 {
		return nil
	}
	switch r.kind {
	case kindHasOne, kindHasMany, kindMorphOne, kindMorphMany:
		return r.eagerLoadHas(ctx, conn, name, owners)
	case kindBelongsTo:
		return r.eagerLoadBelongsTo(ctx, conn, name, owners)
	case kindMorphTo:
		return r.eagerLoadMorphTo(ctx, conn, name, owners)
	default:
		return r.eagerLoadPivot(ctx, conn, name, owners)
	}
}

func (r *Relation) eagerLoadHas(ctx context.Context, conn query.Connection, name string, owners Collection) error {
	keyCol := r.foreignKey
	if r.kind == kindMorphOne || r.kind == kindMorphMany {
		keyCol = r.idColumn()
	}
	keys := collectKeys(owners, func(m *Model) any { return m.Get(r.localKey) })
	q := r.related.Query(conn)
	if r.kind == kindMorphOne || r.kind == kindMorphMany {
		q.Where(r.typeColumn(), r.owner.morphClass)
	}
	q.WhereIn(keyCol, keys)
	results, err := q.Get(ctx)
	if err != nil {
		return err
	}
	grouped := groupBy(results, func(m *Model) string { return keyOf(m.Get(keyCol)) })
	single := r.single()
	for _, owner := range owners {
		assign(owner, name, grouped[keyOf(owner.Get(r.localKey))], single)
	}
	return nil
}

func (r *Relation) eagerLoadBelongsTo(ctx context.Context, conn query.Connection, name string, owners Collection) error {
	keys := collectKeys(owners, func(m *Model) any { return m.Get(r.foreignKey) })
	results, err := r.related.Query(conn).WhereIn(r.ownerKey, keys).Get(ctx)
	if err != nil {
		return err
	}
	grouped := groupBy(results, func(m *Model) string { return keyOf(m.Get(r.ownerKey)) })
	for _, owner := range owners {
		assign(owner, name, grouped[keyOf(owner.Get(r.foreignKey))], true)
	}
	return nil
}

func (r *Relation) eagerLoadMorphTo(ctx context.Context, conn query.Connection, name string, owners Collection) error {
	byTag := make(map[string]Collection)
	for _, owner := range owners {
		byTag[owner.GetString(r.typeColumn())] = append(byTag[owner.GetString(r.typeColumn())], owner)
	}
	for tag, group := range byTag {
		if tag == "" {
			for _, owner := range group {
				owner.SetRelation(name, nil)
			}
			continue
		}
		typ, ok := r.candidates[tag]
		if !ok {
			return fmt.Errorf("model: no candidate type registered for morph tag %q", tag)
		}
		ids := collectKeys(group, func(m *Model) any { return m.Get(r.idColumn()) })
		results, err := typ.Query(conn).WhereIn(typ.primaryKey, ids).Get(ctx)
		if err != nil {
			return err
		}
		grouped := groupBy(results, func(m *Model) string { return keyOf(m.Key()) })
		for _, owner := range group {
			assign(owner, name, grouped[keyOf(owner.Get(r.idColumn()))], true)
		}
	}
	return nil
}

func (r *Relation) eagerLoadPivot(ctx context.Context, conn query.Connection, name string, owners Collection) error {
	ownerSide := r.pivotOwnerKey()
	keys := collectKeys(owners, func(m *Model) any { return m.Key() })
	q := r.related.Query(conn)
	r.joinPivot(q)
	if r.kind == kindMorphToMany {
		q.builder.Where(r.pivotTable+"."+r.typeColumn(), r.owner.morphClass)
	}
	if r.kind == kindMorphedByMany {
		q.builder.Where(r.pivotTable+"."+r.typeColumn(), r.related.morphClass)
	}
	q.builder.WhereIn(r.pivotTable+"."+ownerSide, keys)
	results, err := q.Get(ctx)
	if err != nil {
		return err
	}
	grouped := groupBy(results, func(m *Model) string { return keyOf(m.Get("pivot_" + ownerSide)) })
	for _, owner := range owners {
		assign(owner, name, grouped[keyOf(owner.Key())], false)
	}
	return nil
}

// Attach inserts pivot rows linking this model to the given related
// keys. The relation must be pivot-backed.
func (m *Model) Attach(ctx context.Context, name string, ids ...any) error {
	r, err := m.pivotRelation(name)
	if err != nil {
		return err
	}
	rows := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		row := map[string]any{
			r.pivotOwnerKey():  m.Key(),
			r.pivotRelatedCol(): id,
		}
		if r.kind == kindMorphToMany {
			row[r.typeColumn()] = m.typ.morphClass
		}
		if r.kind == kindMorphedByMany {
			row[r.typeColumn()] = r.related.morphClass
		}
		rows = append(rows, row)
	}
	_, err = query.Table(m.conn, r.pivotTable).Insert(ctx, rows...)
	return err
}

// Detach removes pivot rows for the given related keys, or all of them
// when none are given.
func (m *Model) Detach(ctx context.Context, name string, ids ...any) error {
	r, err := m.pivotRelation(name)
	if err != nil {
		return err
	}
	b := query.Table(m.conn, r.pivotTable).Where(r.pivotOwnerKey(), m.Key())
	if r.kind == kindMorphToMany {
		b.Where(r.typeColumn(), m.typ.morphClass)
	}
	if r.kind == kindMorphedByMany {
		b.Where(r.typeColumn(), r.related.morphClass)
	}
	if len(ids) > 0 {
		b.WhereIn(r.pivotRelatedCol(), ids)
	}
	_, err = b.Delete(ctx)
	return err
}

// SyncRelated reconciles the pivot to exactly the given related keys:
// extra rows are detached, missing ones attached.
func (m *Model) SyncRelated(ctx context.Context, name string, ids []any) error {
	r, err := m.pivotRelation(name)
	if err != nil {
		return err
	}
	b := query.Table(m.conn, r.pivotTable).Where(r.pivotOwnerKey(), m.Key())
	current, err := b.Pluck(ctx, r.pivotRelatedCol())
	if err != nil {
		return err
	}
	want := make(map[string]any, len(ids))
	for _, id := range ids {
		want[keyOf(id)] = id
	}
	var detach []any
	have := make(map[string]bool, len(current))
	for _, id := range current {
		have[keyOf(id)] = true
		if _, ok := want[keyOf(id)]; !ok {
			detach = append(detach, id)
		}
	}
	var attach []any
	for _, id := range ids {
		if !have[keyOf(id)] {
			attach = append(attach, id)
		}
	}
	if len(detach) > 0 {
		if err := m.Detach(ctx, name, detach...); err != nil {
			return err
		}
	}
	if len(attach) > 0 {
		if err := m.Attach(ctx, name, attach...); err != nil {
			return err
		}
	}
	return nil
}

// Associate sets the owning side of a belongsTo relation and caches the
// related instance. The change persists on the next Save.
func (m *Model) Associate(name string, related *Model) error {
	r := m.typ.relations[name]
	if r == nil || r.kind != kindBelongsTo {
		return fmt.Errorf("model: %s has no belongsTo relation %q", m.typ.name, name)
	}
	m.Set(r.foreignKey, related.Get(r.ownerKey))
	m.SetRelation(name, related)
	return nil
}

// Dissociate clears the owning side of a belongsTo relation.
func (m *Model) Dissociate(name string) error {
	r := m.typ.relations[name]
	if r == nil || r.kind != kindBelongsTo {
		return fmt.Errorf("model: %s has no belongsTo relation %q", m.typ.name, name)
	}
	m.Set(r.foreignKey, nil)
	m.SetRelation(name, nil)
	return nil
}

func (m *Model) pivotRelation(name string) (*Relation, error) {
	r := m.typ.relations[name]
	if r == nil {
		return nil, fmt.Errorf("model: %s has no relation %q", m.typ.name, name)
	}
	switch r.kind {
	case kindBelongsToMany, kindMorphToMany, kindMorphedByMany:
		return r, nil
	}
	return nil, fmt.Errorf("model: relation %q (%s) is not pivot-backed", name, r.Kind())
}

// pivotRelatedCol returns the pivot column holding the related key.
func (r *Relation) pivotRelatedCol() string {
	if r.kind == kindMorphedByMany {
		return r.idColumn()
	}
	return r.relatedPivotKey
}

func pick(keys []string, i int, fallback string) string {
	if i < len(keys) && keys[i] != "" {
		return keys[i]
	}
	return fallback
}

func defaultPivot(a, b *Type) string {
	names := []string{inflect.Underscore(a.name), inflect.Underscore(b.name)}
	sort.Strings(names)
	return strings.Join(names, "_")
}

func collectKeys(owners Collection, get func(*Model) any) []any {
	seen := make(map[string]bool, len(owners))
	var keys []any
	for _, m := range owners {
		v := get(m)
		if v == nil {
			continue
		}
		if k := keyOf(v); !seen[k] {
			seen[k] = true
			keys = append(keys, v)
		}
	}
	return keys
}

func groupBy(models Collection, key func(*Model) string) map[string]Collection {
	grouped := make(map[string]Collection)
	for _, m := range models {
		grouped[key(m)] = append(grouped[key(m)], m)
	}
	return grouped
}

func assign(owner *Model, name string, group Collection, single bool) {
	if single {
		if len(group) > 0 {
			owner.SetRelation(name, group[0])
		} else {
			owner.SetRelation(name, nil)
		}
		return
	}
	if group == nil {
		group = Collection{}
	}
	owner.SetRelation(name, group)
}

func keyOf(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}
