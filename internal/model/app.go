package model

// AppSpec is the user-supplied identity and feature set of the package.
type AppSpec struct {
	Name        string
	Package     string
	Version     string
	Description string
	Homepage    string
	Author      string
	License     string
	Subdomain   string // overrides the last package segment

	UnsupportedPlatforms  []string
	HasVersionRequirement bool
	MinOSVersion          string
	Locales               map[string]Locale

	Features    Features
	PublicPaths []string
	FileHandler FileHandlerSpec

	// AutoRoute adds a default HTTP route when no routes are configured.
	AutoRoute bool
}

// Features are the platform capabilities an app opts into.
type Features struct {
	BackgroundTask bool
	MultiInstance  bool
	PublicPath     bool
	GPUAccel       bool
	KVMAccel       bool
	USBAccel       bool
	FileHandler    bool
}

// FileHandlerSpec declares which files the app can open.
type FileHandlerSpec struct {
	Mime       []string
	OpenAction string // must contain FilePlaceholder
}

// FilePlaceholder is replaced by the platform with the path of the file
// being opened.
const FilePlaceholder = "%u"

// Platforms accepted in unsupported_platforms.
var Platforms = []string{"ios", "android", "linux", "windows", "macos", "tvos"}

// Locale holds translated app metadata.
type Locale struct {
	Name        string `yaml:"name,omitempty" mapstructure:"name"`
	Description string `yaml:"description,omitempty" mapstructure:"description"`
}
