package model

// SDKVersion is written as lzc-sdk-version in every manifest.
const SDKVersion = "0.1"

// Manifest is the platform's application descriptor, serialized as
// manifest.yml. Field order here is the key order in the output.
type Manifest struct {
	SDKVersion           string                      `yaml:"lzc-sdk-version"`
	Name                 string                      `yaml:"name"`
	Package              string                      `yaml:"package"`
	Version              string                      `yaml:"version"`
	Description          string                      `yaml:"description,omitempty"`
	Homepage             string                      `yaml:"homepage,omitempty"`
	Author               string                      `yaml:"author,omitempty"`
	License              string                      `yaml:"license,omitempty"`
	MinOSVersion         string                      `yaml:"min_os_version,omitempty"`
	UnsupportedPlatforms []string                    `yaml:"unsupported_platforms,omitempty"`
	Locales              map[string]Locale           `yaml:"locales,omitempty"`
	Application          Application                 `yaml:"application"`
	Services             map[string]*ServiceManifest `yaml:"services"`
}

// Application is the manifest's application block.
type Application struct {
	Subdomain      string       `yaml:"subdomain"`
	BackgroundTask bool         `yaml:"background_task"`
	MultiInstance  bool         `yaml:"multi_instance"`
	GPUAccel       bool         `yaml:"gpu_accel"`
	KVMAccel       bool         `yaml:"kvm_accel"`
	USBAccel       bool         `yaml:"usb_accel"`
	PublicPath     []string     `yaml:"public_path,omitempty"`
	FileHandler    *FileHandler `yaml:"file_handler,omitempty"`
	Routes         []string     `yaml:"routes,omitempty"`
	Ingress        []Ingress    `yaml:"ingress,omitempty"`
}

// FileHandler is the manifest form of FileHandlerSpec.
type FileHandler struct {
	Mime    []string       `yaml:"mime"`
	Actions FileHandlerAct `yaml:"actions"`
}

// FileHandlerAct lists the routes used to act on a file.
type FileHandlerAct struct {
	Open string `yaml:"open"`
}

// Ingress exposes a raw TCP or UDP port of a service.
type Ingress struct {
	Protocol string `yaml:"protocol"`
	Port     int    `yaml:"port"`
	Service  string `yaml:"service"`
}

// ServiceManifest is one entry under services.
type ServiceManifest struct {
	Image       string               `yaml:"image"`
	Environment []string             `yaml:"environment,omitempty"`
	Command     string               `yaml:"command,omitempty"`
	Entrypoint  string               `yaml:"entrypoint,omitempty"`
	DependsOn   []string             `yaml:"depends_on,omitempty"`
	Binds       []string             `yaml:"binds,omitempty"`
	HealthCheck *HealthCheckManifest `yaml:"health_check"`
}

// HealthCheckManifest is the manifest form of HealthCheck.
type HealthCheckManifest struct {
	Test        []string `yaml:"test,omitempty"`
	TestURL     string   `yaml:"test_url,omitempty"`
	StartPeriod string   `yaml:"start_period,omitempty"`
	Interval    string   `yaml:"interval,omitempty"`
	Timeout     string   `yaml:"timeout,omitempty"`
	Retries     *int     `yaml:"retries,omitempty"` // nil only when disabled
	Disable     bool     `yaml:"disable,omitempty"`
}
