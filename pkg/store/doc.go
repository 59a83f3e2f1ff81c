// Package store defines the remote management-plane capability consumed
// by the reconciler, and its bindings.
//
// PolicyStore is the abstract capability: policy CRUD, hierarchy listing,
// and attachment management with cursor-paginated listings. Three
// implementations are provided: HTTPStore speaks to a real management
// plane over REST, MemoryStore is an in-process fake for tests and local
// experimentation, and RetryStore decorates any PolicyStore with bounded
// retry so the reconciler itself stays retry-agnostic.
package store
