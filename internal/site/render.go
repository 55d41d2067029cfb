package site

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownKind is returned by Render for a section outside the modelled set.
var ErrUnknownKind = errors.New("unknown section kind")

// ErrNotValidated is returned by Render for a ValidDocument that Validate did
// not produce.
var ErrNotValidated = errors.New("document has not been validated")

// Renderer is implemented by a site theme. There is one method per section
// kind; each receives a copy of exactly that variant.
type Renderer interface {
	Hero(ctx context.Context, h Hero) error
	Features(ctx context.Context, s FeaturesSection) error
	CodeCards(ctx context.Context, s CodeCardsSection) error
	DataTable(ctx context.Context, s DataTableSection) error
}

// Render walks v through r: the hero first, then every section in declared
// order. It stops at the first renderer error or cancelled context. A section
// whose kind has no Renderer method fails with ErrUnknownKind rather than
// being skipped.
func Render(ctx context.Context, v *ValidDocument, r Renderer) error {
	doc := v.Document()
	if doc == nil {
		return ErrNotValidated
	}
	if err := r.Hero(ctx, *doc.Hero); err != nil {
		return fmt.Errorf("render hero: %w", err)
	}
	for i, s := range doc.Sections {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		switch sec := s.(type) {
		case *FeaturesSection:
			err = r.Features(ctx, *sec)
		case *CodeCardsSection:
			err = r.CodeCards(ctx, *sec)
		case *DataTableSection:
			err = r.DataTable(ctx, *sec)
		default:
			return fmt.Errorf("render sections[%d]: %w %q", i, ErrUnknownKind, s.Kind())
		}
		if err != nil {
			return fmt.Errorf("render sections[%d] (%s %q): %w", i, s.Kind(), s.SectionID(), err)
		}
	}
	return nil
}
