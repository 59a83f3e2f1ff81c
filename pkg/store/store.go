package store

import "context"

// PolicyKindResourceControl is the one policy kind saturn manages.
const PolicyKindResourceControl = "RESOURCE_CONTROL_POLICY"

// RemotePolicy is a resource-control policy as it exists in the
// management plane. ID is assigned by the remote system at creation and
// is stable thereafter; Name is the natural key used to match desired
// specs against remote resources.
type RemotePolicy struct {
	ID          string
	Name        string
	Description string
	Content     string
}

// HierarchyNode is one organizational grouping unit in the remote tree.
// The root node has an empty ParentID.
type HierarchyNode struct {
	ID       string
	Name     string
	ParentID string
}

// PolicyStore is the remote management-plane capability consumed by the
// reconciler.
//
// All listings are cursor-paginated: a call returns one page plus the
// cursor for the next, and an empty next cursor terminates. Callers
// drain pagination to completion before computing over the results.
type PolicyStore interface {
	// CheckSession verifies the remote session is usable. A failure here
	// aborts the whole run before any listing.
	CheckSession(ctx context.Context) error

	// ListPolicies enumerates policies of the managed kind.
	ListPolicies(ctx context.Context, cursor string) (policies []RemotePolicy, next string, err error)

	// CreatePolicy creates a policy and returns its remote-assigned id.
	CreatePolicy(ctx context.Context, name, description, content string) (id string, err error)

	// UpdatePolicy replaces a policy's name, description, and content.
	UpdatePolicy(ctx context.Context, id, name, description, content string) error

	// ListRoots enumerates the hierarchy's root nodes. In practice the
	// tree has a single root; the listing shape mirrors the remote API.
	ListRoots(ctx context.Context, cursor string) (roots []HierarchyNode, next string, err error)

	// ListChildren enumerates the direct child nodes of parentID.
	ListChildren(ctx context.Context, parentID, cursor string) (children []HierarchyNode, next string, err error)

	// ListAttachments enumerates the target ids a policy is attached to.
	// Targets are a flat namespace: hierarchy-node ids and account ids
	// are not structurally distinguished.
	ListAttachments(ctx context.Context, policyID, cursor string) (targetIDs []string, next string, err error)

	// Attach binds a policy to a target.
	Attach(ctx context.Context, policyID, targetID string) error

	// Detach unbinds a policy from a target.
	Detach(ctx context.Context, policyID, targetID string) error
}
