package reconcile

import (
	"context"
	"log/slog"

	"mercator-hq/saturn/pkg/store"
)

// RootKey is the hierarchy index key for the tree's root node.
const RootKey = "Root"

// Indexer builds read-only lookup indexes over remote state. Indexes are
// built once per run and never refreshed mid-run.
type Indexer struct {
	store  store.PolicyStore
	logger *slog.Logger
}

// NewIndexer creates an Indexer over st.
func NewIndexer(st store.PolicyStore, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		store:  st,
		logger: logger.With("component", "reconcile.indexer"),
	}
}

// IndexPolicies enumerates every remote policy of the managed kind and
// returns a name → policy index. Pagination is drained to completion
// before the index is returned. Name collisions resolve last-write-wins;
// they are the remote system's ambiguity, not an error here.
func (ix *Indexer) IndexPolicies(ctx context.Context) (map[string]store.RemotePolicy, error) {
	index := make(map[string]store.RemotePolicy)

	cursor := ""
	for {
		policies, next, err := ix.store.ListPolicies(ctx, cursor)
		if err != nil {
			return nil, err
		}
		for _, p := range policies {
			index[p.Name] = p
		}
		if next == "" {
			break
		}
		cursor = next
	}

	ix.logger.Debug("indexed remote policies", "count", len(index))
	return index, nil
}

// IndexHierarchy walks the full organizational tree from the root and
// returns a name → node-id index, with the root itself under RootKey.
// The traversal uses an explicit worklist, so hierarchy depth never
// translates into stack depth. Name collisions across branches resolve
// last-write-wins.
//
// A missing root is non-fatal: the (empty) index is returned together
// with a NoRootError, and callers treat the target pool as empty.
func (ix *Indexer) IndexHierarchy(ctx context.Context) (map[string]string, error) {
	index := make(map[string]string)

	var roots []store.HierarchyNode
	cursor := ""
	for {
		page, next, err := ix.store.ListRoots(ctx, cursor)
		if err != nil {
			return nil, err
		}
		roots = append(roots, page...)
		if next == "" {
			break
		}
		cursor = next
	}

	if len(roots) == 0 {
		return index, &NoRootError{}
	}

	root := roots[0]
	index[RootKey] = root.ID

	worklist := []string{root.ID}
	for len(worklist) > 0 {
		parentID := worklist[0]
		worklist = worklist[1:]

		cursor = ""
		for {
			children, next, err := ix.store.ListChildren(ctx, parentID, cursor)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				index[child.Name] = child.ID
				worklist = append(worklist, child.ID)
			}
			if next == "" {
				break
			}
			cursor = next
		}
	}

	ix.logger.Debug("indexed hierarchy", "nodes", len(index))
	return index, nil
}

// CurrentAttachments drains the attachment listing for policyID into a set.
func (ix *Indexer) CurrentAttachments(ctx context.Context, policyID string) (map[string]struct{}, error) {
	current := make(map[string]struct{})

	cursor := ""
	for {
		targets, next, err := ix.store.ListAttachments(ctx, policyID, cursor)
		if err != nil {
			return nil, err
		}
		for _, id := range targets {
			current[id] = struct{}{}
		}
		if next == "" {
			break
		}
		cursor = next
	}

	return current, nil
}
