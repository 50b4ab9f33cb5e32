package cache

// Keyer builds cache keys.
type Keyer interface {
	// SnapshotKey addresses the position snapshot of a project.
	SnapshotKey(project string) string
	// LayoutKey addresses a diagram computed from a tree and a snapshot.
	LayoutKey(treeHash string, opts LayoutKeyOpts) string
	// ArtifactKey addresses rendered output of a diagram.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts holds the options that change a computed layout.
type LayoutKeyOpts struct {
	Project      string  `json:"project"`
	SnapshotHash string  `json:"snapshot_hash,omitempty"`
	VizType      string  `json:"viz_type"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	MaxDepth     int     `json:"max_depth"`
	Detailed     bool    `json:"detailed,omitempty"`
}

// ArtifactKeyOpts holds the options that change rendered output.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Legend bool    `json:"legend"`
	Glow   bool    `json:"glow"`
	Scale  float64 `json:"scale,omitempty"`
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// SnapshotKey returns "snapshot:<project>". Project IDs are validated
// before they reach the cache, so they are used verbatim.
func (DefaultKeyer) SnapshotKey(project string) string {
	return "snapshot:" + project
}

// LayoutKey hashes the tree hash and options.
func (DefaultKeyer) LayoutKey(treeHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", treeHash, opts)
}

// ArtifactKey hashes the layout hash and options.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}

var _ Keyer = DefaultKeyer{}
