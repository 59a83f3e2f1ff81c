package reconcile

// NoRootError indicates the remote hierarchy has no root node. It is
// non-fatal: the hierarchy index is treated as empty and every declared
// organizational-unit target resolves to nothing.
type NoRootError struct{}

// Error implements the error interface.
func (e *NoRootError) Error() string {
	return "hierarchy has no root node"
}
