package processor

import (
	"context"
	"errors"
	"fmt"

	"drivefetch/logging"
	"drivefetch/models"
)

type catalogClient interface {
	ListChildren(ctx context.Context, folderID string) ([]models.Entry, error)
}

// Resolver expands a remote folder into a fully resolved tree
type Resolver struct {
	catalog catalogClient
	log     *logging.Logger
}

// NewResolver creates a resolver reading listings from catalog
func NewResolver(catalog catalogClient, log *logging.Logger) *Resolver {
	if log == nil {
		log = logging.Nop()
	}
	return &Resolver{catalog: catalog, log: log}
}

// Resolve lists rootID recursively and assigns local paths below outputFolder.
// Any listing failure aborts the whole resolution and no tree is returned.
func (r *Resolver) Resolve(ctx context.Context, rootID, outputFolder string) (*models.Tree, error) {
	if outputFolder == "" {
		return nil, &ResolutionError{ID: rootID, Err: errors.New("output folder name is empty")}
	}

	listing, err := r.list(ctx, rootID)
	if err != nil {
		return nil, err
	}

	tree := models.NewTree()
	for _, entry := range listing {
		idx := tree.AddRoot(entry)
		if err := r.resolve(ctx, tree, idx, outputFolder); err != nil {
			return nil, err
		}
	}

	r.log.Debugf("Resolved %d item(s) below %q.", tree.Len(), outputFolder)
	return tree, nil
}

// resolve assigns the local path of idx and, for folders, resolves its children
func (r *Resolver) resolve(ctx context.Context, tree *models.Tree, idx int, localPath string) error {
	entry := tree.Get(idx)
	if err := tree.SetLocalPath(idx, localPath); err != nil {
		return &ResolutionError{ID: entry.ID, Err: err}
	}

	if !entry.IsContainer() {
		return nil
	}

	listing, err := r.list(ctx, entry.ID)
	if err != nil {
		return err
	}

	childPath := models.JoinPath(localPath, entry.Title)
	children := make([]int, 0, len(listing))
	for _, child := range listing {
		childIdx := tree.Add(child)
		children = append(children, childIdx)
		if err := r.resolve(ctx, tree, childIdx, childPath); err != nil {
			return err
		}
	}

	if err := tree.SetChildren(idx, children); err != nil {
		return &ResolutionError{ID: entry.ID, Err: err}
	}
	return nil
}

func (r *Resolver) list(ctx context.Context, folderID string) ([]models.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ResolutionError{ID: folderID, Err: err}
	}

	listing, err := r.catalog.ListChildren(ctx, folderID)
	if err != nil {
		return nil, &ResolutionError{ID: folderID, Err: fmt.Errorf("list children: %w", err)}
	}
	return listing, nil
}
