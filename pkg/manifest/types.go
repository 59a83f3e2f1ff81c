package manifest

// DeploymentTargets declares where a policy should be attached.
// Organizational units are referenced by name and resolved against the
// remote hierarchy at reconcile time; accounts are literal identifiers
// used as-is.
type DeploymentTargets struct {
	OrganizationalUnits []string `yaml:"organizational_units"`
	Accounts            []string `yaml:"accounts"`
}

// PolicySpec is one desired policy as declared in the manifest.
// Name is the natural key used to match the spec against remote state.
type PolicySpec struct {
	Name              string            `yaml:"name"`
	Description       string            `yaml:"description"`
	ResourceFile      string            `yaml:"resource_file"`
	DeploymentTargets DeploymentTargets `yaml:"deployment_targets"`
}

// Manifest enumerates all desired policies for one reconciliation run.
// Policies are processed in declaration order.
type Manifest struct {
	Policies []PolicySpec `yaml:"policies"`
}
