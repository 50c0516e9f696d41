package domain

// ReleasePlan selects the pipeline stages of one run.
type ReleasePlan struct {
	Obtain            bool
	Repack            bool
	ZstdLevel         int
	Build             bool
	Push              bool
	CreateManifest    bool
	UpdateRepoDigests bool
	// DigestFiles are report destinations. An entry without a known
	// extension prints the report to stdout.
	DigestFiles []string
	Digest      bool
}

// Any reports whether the plan selects at least one stage.
func (p ReleasePlan) Any() bool {
	return p.Obtain || p.Repack || p.Build || p.Push || p.CreateManifest || p.UpdateRepoDigests || p.Digest
}

// Release is a catalog entry as shown by "catalog list".
type Release struct {
	OS       string
	Version  string
	Codename string
	Series   string
	Date     string
	Method   string
	Archs    []string
	Tags     []string
}

// Release acquisition methods.
const (
	MethodLegacy      = "legacy"
	MethodDebootstrap = "debootstrap"
)
