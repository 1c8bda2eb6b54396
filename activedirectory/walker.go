package activedirectory

import (
	"context"

	"github.com/rs/zerolog"
)

// Walker produces a depth-first traversal of a directory subtree.
type Walker struct {
	dir            Directory
	containersOnly bool
	log            zerolog.Logger
}

func NewWalker(dir Directory, containersOnly bool, log zerolog.Logger) *Walker {
	return &Walker{
		dir:            dir,
		containersOnly: containersOnly,
		log:            log,
	}
}

// Walk visits every descendant of rootDN depth-first, calling visit for each.
// In containers-only mode, non-container children are neither visited nor
// descended into. A child listing that fails abandons that branch and
// continues with its siblings; partial trees are deliberate here and produce
// no error. Walk only returns an error when visit does or the context is
// cancelled.
func (w *Walker) Walk(ctx context.Context, rootDN string, visit func(Child) error) error {
	children, err := w.dir.ListChildren(ctx, rootDN)
	if err != nil {
		w.log.Debug().Str("dn", rootDN).Err(err).Msg("abandoning unlistable branch")
		return nil
	}

	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return err
		}

		if w.containersOnly && !IsContainerClass(child.ObjectClass) {
			continue
		}

		if err := visit(child); err != nil {
			return err
		}

		if err := w.Walk(ctx, child.DN, visit); err != nil {
			return err
		}
	}

	return nil
}
