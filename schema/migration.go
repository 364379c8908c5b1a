package schema

import (
	"context"
	"fmt"
)

// Migration is one named schema change: an Up step and its Down
// counterpart. The pair is an ordered unit; nothing here verifies that
// Down is a true inverse of Up, and tracking which migrations have
// applied belongs to an external runner.
type Migration struct {
	Name string
	Up   func(ctx context.Context, s *Builder) error
	Down func(ctx context.Context, s *Builder) error
}

// Apply runs the migration's Up step.
func (m Migration) Apply(ctx context.Context, s *Builder) error {
	if m.Up == nil {
		return fmt.Errorf("schema: migration %q has no up step", m.Name)
	}
	if err := m.Up(ctx, s); err != nil {
		return fmt.Errorf("schema: migrate %q: %w", m.Name, err)
	}
	return nil
}

// Revert runs the migration's Down step.
func (m Migration) Revert(ctx context.Context, s *Builder) error {
	if m.Down == nil {
		return fmt.Errorf("schema: migration %q has no down step", m.Name)
	}
	if err := m.Down(ctx, s); err != nil {
		return fmt.Errorf("schema: revert %q: %w", m.Name, err)
	}
	return nil
}
