package explore

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/arbolab/wdtree/internal/types"
)

// defaultPrefetchLimit bounds how many sibling lookups may be in flight when
// prefetch is enabled.
const defaultPrefetchLimit = 8

// Explorer drives the query service through a per-run Cache to expand the
// hierarchy depth first. It owns cycle avoidance, forbidden-node pruning, and
// path accumulation. An Explorer must not be shared across concurrent Expand
// calls; its cache and visited state are scoped to one run.
type Explorer struct {
	cache         *Cache
	prefetchLimit int
}

// Option configures an Explorer.
type Option func(*Explorer)

// WithPrefetch makes the explorer issue the child lookups of each node
// concurrently, bounded by limit, before the sequential recursion consumes
// them from the cache. Output is identical to the synchronous order.
func WithPrefetch(limit int) Option {
	return func(explorer *Explorer) {
		if limit > 0 {
			explorer.prefetchLimit = limit
		} else {
			explorer.prefetchLimit = defaultPrefetchLimit
		}
	}
}

// NewExplorer constructs an Explorer with a fresh cache over the service.
func NewExplorer(service Service, options ...Option) *Explorer {
	explorer := &Explorer{cache: NewCache(service)}
	for _, option := range options {
		option(explorer)
	}
	return explorer
}

// Cache exposes the per-run lookup cache, mainly so callers can inspect the
// remote call count.
func (explorer *Explorer) Cache() *Cache {
	return explorer.cache
}

// Expand materializes the tree rooted at rootID. Identifiers in forbidden are
// still fetched and recorded as leaves, but never expanded. A child identifier
// equal to an ancestor on the current path is a back edge and is skipped. The
// first fetch failure aborts the run; no partial tree is returned.
func (explorer *Explorer) Expand(ctx context.Context, rootID string, forbidden []string) (*types.TreeNode, error) {
	forbiddenSet := make(map[string]struct{}, len(forbidden))
	for _, forbiddenID := range forbidden {
		forbiddenSet[forbiddenID] = struct{}{}
	}
	visited := map[string]struct{}{rootID: {}}
	return explorer.expand(ctx, rootID, []string{rootID}, visited, forbiddenSet)
}

// expand performs one step of the depth-first descent. The visited set holds
// exactly the identifiers on the current root-to-node path; callers add a
// child before recursing and remove it when backtracking so the identifier
// stays eligible on sibling branches.
func (explorer *Explorer) expand(
	ctx context.Context,
	entityID string,
	path []string,
	visited map[string]struct{},
	forbidden map[string]struct{},
) (*types.TreeNode, error) {
	entity, fetchError := explorer.cache.Fetch(ctx, entityID)
	if fetchError != nil {
		return nil, fetchError
	}
	node := &types.TreeNode{
		ID:     entityID,
		Entity: entity,
		Paths:  [][]string{clonePath(path)},
	}
	if _, isForbidden := forbidden[entityID]; isForbidden {
		return node, nil
	}
	if explorer.prefetchLimit > 0 {
		if prefetchError := explorer.prefetchChildren(ctx, entity.Children, visited); prefetchError != nil {
			return nil, prefetchError
		}
	}
	for _, childID := range entity.Children {
		if _, onPath := visited[childID]; onPath {
			continue
		}
		visited[childID] = struct{}{}
		childPath := append(clonePath(path), childID)
		childNode, expandError := explorer.expand(ctx, childID, childPath, visited, forbidden)
		delete(visited, childID)
		if expandError != nil {
			return nil, expandError
		}
		node.Children = append(node.Children, childNode)
	}
	return node, nil
}

// prefetchChildren warms the cache for every child not already on the current
// path. The cache's singleflight group serializes insertion, so concurrent
// callers never duplicate a lookup.
func (explorer *Explorer) prefetchChildren(ctx context.Context, childIDs []string, visited map[string]struct{}) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(explorer.prefetchLimit)
	for _, childID := range childIDs {
		if _, onPath := visited[childID]; onPath {
			continue
		}
		fetchID := childID
		group.Go(func() error {
			_, fetchError := explorer.cache.Fetch(groupCtx, fetchID)
			return fetchError
		})
	}
	return group.Wait()
}

// Identifiers collects every distinct identifier in the tree in
// first-discovery (pre-order) order.
func Identifiers(root *types.TreeNode) []string {
	encountered := map[string]struct{}{}
	var ordered []string
	var walk func(node *types.TreeNode)
	walk = func(node *types.TreeNode) {
		if node == nil {
			return
		}
		if _, seen := encountered[node.ID]; !seen {
			encountered[node.ID] = struct{}{}
			ordered = append(ordered, node.ID)
		}
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(root)
	return ordered
}

func clonePath(path []string) []string {
	cloned := make([]string, len(path))
	copy(cloned, path)
	return cloned
}
