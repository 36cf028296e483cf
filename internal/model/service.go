package model

// ReservedServiceName is the service name the platform keeps for itself.
// It is never emitted under the manifest's services.
const ReservedServiceName = "app"

// ComposeService is one Compose service after normalization.
type ComposeService struct {
	Name        string
	Image       string
	Build       *BuildConfig
	Command     string
	Entrypoint  string
	Environment []string // KEY=VALUE, keys unique
	EnvFiles    []string
	Volumes     []BindMount
	Ports       []PortMapping
	DependsOn   []string
	HealthCheck *HealthCheck
}

// Reserved reports whether the service uses the platform's reserved name.
func (s ComposeService) Reserved() bool {
	return s.Name == ReservedServiceName
}

// BuildConfig is the build section of a service.
type BuildConfig struct {
	Context    string
	Dockerfile string
}

// Mount modes.
const (
	ModeReadWrite = "rw"
	ModeReadOnly  = "ro"
)

// BindMount represents a volume binding. An empty Source is an anonymous
// volume.
type BindMount struct {
	Source string
	Target string
	Mode   string
}

// Anonymous reports whether the mount has no source.
func (b BindMount) Anonymous() bool {
	return b.Source == ""
}

// Health check defaults applied when the Compose file leaves a field out.
const (
	DefaultStartPeriod = "90s"
	DefaultInterval    = "30s"
	DefaultTimeout     = "10s"
	DefaultRetries     = 5
)

// HealthCheck represents a service health check.
type HealthCheck struct {
	Test        []string
	TestURL     string
	StartPeriod string
	Interval    string
	Timeout     string
	Retries     int
	Disable     bool
}

// DisabledHealthCheck returns a check that turns health reporting off.
func DisabledHealthCheck() *HealthCheck {
	return &HealthCheck{Disable: true}
}
