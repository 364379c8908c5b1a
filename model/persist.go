package model

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/arbor-orm/arbor"
	"github.com/arbor-orm/arbor/query"
)

// Create builds a transient instance, mass-assigns attrs through the
// fillability policy and saves it in one step.
func (t *Type) Create(ctx context.Context, conn query.Connection, attrs map[string]any) (*Model, error) {
	m := t.New(conn)
	m.Fill(attrs)
	if err := m.Save(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Save persists the model: an INSERT for a transient instance, an UPDATE
// of only the dirty attributes for a persistent one. A clean persistent
// model issues no statement at all. Saving/Saved observers fire around
// either path; a pre-event error aborts before any statement.
func (m *Model) Save(ctx context.Context) error {
	if err := m.typ.fire(ctx, eventSaving, m); err != nil {
		return err
	}
	var err error
	if m.exists {
		err = m.performUpdate(ctx)
	} else {
		err = m.performInsert(ctx)
	}
	if err != nil {
		return err
	}
	return m.typ.fire(ctx, eventSaved, m)
}

func (m *Model) performInsert(ctx context.Context) error {
	t := m.typ
	if err := t.fire(ctx, eventCreating, m); err != nil {
		return err
	}
	if t.timestamps {
		now := nowStamp(t)
		if !m.Has(t.createdCol) || m.attributes[t.createdCol] == nil {
			m.attributes[t.createdCol] = now
		}
		if !m.Has(t.updatedCol) || m.attributes[t.updatedCol] == nil {
			m.attributes[t.updatedCol] = now
		}
	}
	if t.uuidKeys && m.Key() == nil {
		m.attributes[t.primaryKey] = uuid.NewString()
	}
	values, err := m.serializeAttributes(m.attributes)
	if err != nil {
		return err
	}
	b := query.Table(m.conn, t.table)
	if t.incrementing && m.Key() == nil {
		id, err := b.InsertGetID(ctx, values, t.primaryKey)
		if err != nil {
			return err
		}
		m.attributes[t.primaryKey] = id
	} else {
		if _, err := b.Insert(ctx, values); err != nil {
			return err
		}
	}
	m.exists = true
	m.SyncOriginal()
	return t.fire(ctx, eventCreated, m)
}

func (m *Model) performUpdate(ctx context.Context) error {
	t := m.typ
	dirty := m.Dirty()
	if len(dirty) == 0 {
		return nil
	}
	if err := t.fire(ctx, eventUpdating, m); err != nil {
		return err
	}
	if t.timestamps && !m.IsDirty(t.updatedCol) {
		m.attributes[t.updatedCol] = nowStamp(t)
		dirty[t.updatedCol] = m.attributes[t.updatedCol]
	}
	values, err := m.serializeAttributes(dirty)
	if err != nil {
		return err
	}
	_, err = query.Table(m.conn, t.table).
		Where(t.primaryKey, m.Key()).
		Update(ctx, values)
	if err != nil {
		return err
	}
	m.SyncOriginal()
	return t.fire(ctx, eventUpdated, m)
}

// Delete removes the model's row. With soft deletes enabled the deletion
// column is stamped and the instance stays live; otherwise the row is
// deleted and Exists becomes false. Deleting a transient model returns
// ErrNotFound.
func (m *Model) Delete(ctx context.Context) error {
	if !m.exists {
		return arbor.NewNotFoundError(m.typ.name, m.Key())
	}
	t := m.typ
	if err := t.fire(ctx, eventDeleting, m); err != nil {
		return err
	}
	if t.softDeletes {
		m.attributes[t.deletedCol] = nowStamp(t)
		if err := m.performUpdate(ctx); err != nil {
			return err
		}
	} else {
		_, err := query.Table(m.conn, t.table).
			Where(t.primaryKey, m.Key()).
			Delete(ctx)
		if err != nil {
			return err
		}
		m.exists = false
	}
	return t.fire(ctx, eventDeleted, m)
}

// ForceDelete removes the row even when soft deletes are enabled.
func (m *Model) ForceDelete(ctx context.Context) error {
	if !m.exists {
		return arbor.NewNotFoundError(m.typ.name, m.Key())
	}
	t := m.typ
	if err := t.fire(ctx, eventDeleting, m); err != nil {
		return err
	}
	_, err := query.Table(m.conn, t.table).
		Where(t.primaryKey, m.Key()).
		Delete(ctx)
	if err != nil {
		return err
	}
	m.exists = false
	return t.fire(ctx, eventDeleted, m)
}

// Restore clears the soft-delete stamp and fires the Restored event.
func (m *Model) Restore(ctx context.Context) error {
	t := m.typ
	if !t.softDeletes {
		return arbor.NewConfigurationError(t.name, "", "soft deletes are not enabled")
	}
	m.attributes[t.deletedCol] = nil
	if err := m.performUpdate(ctx); err != nil {
		return err
	}
	return t.fire(ctx, eventRestored, m)
}

// Trashed reports whether the model carries a soft-delete stamp.
func (m *Model) Trashed() bool {
	if !m.typ.softDeletes {
		return false
	}
	return m.attributes[m.typ.deletedCol] != nil
}

// Fresh reloads the model from the database as a new instance, bypassing
// the soft-delete filter so a trashed model can still observe itself.
func (m *Model) Fresh(ctx context.Context) (*Model, error) {
	if !m.exists {
		return nil, arbor.NewNotFoundError(m.typ.name, m.Key())
	}
	return m.typ.Query(m.conn).WithTrashed().Find(ctx, m.Key())
}

// Refresh reloads the attributes in place and drops cached relations.
func (m *Model) Refresh(ctx context.Context) error {
	fresh, err := m.Fresh(ctx)
	if err != nil {
		return err
	}
	m.attributes = fresh.attributes
	m.original = fresh.original
	m.relations = make(map[string]any)
	return nil
}

// serializeAttributes turns attribute values back into column values,
// applying the write-direction casts and formatting time values with the
// type's date layout.
func (m *Model) serializeAttributes(attrs map[string]any) (map[string]any, error) {
	values := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if c, ok := m.typ.casts[k]; ok {
			sv, err := serializeValue(c, v)
			if err != nil {
				return nil, err
			}
			v = sv
		}
		if t, ok := v.(time.Time); ok {
			v = t.Format(m.typ.dateFormat)
		}
		values[k] = v
	}
	return values, nil
}

// nowStamp returns the current UTC time rendered in the type's date
// layout, so stamps are stored and compared as strings consistently
// across drivers.
func nowStamp(t *Type) string {
	return time.Now().UTC().Format(t.dateFormat)
}
