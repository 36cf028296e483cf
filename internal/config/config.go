package config

import (
	"fmt"
	"time"

	"github.com/sikenali/DTOLPK/internal/decide"
	"github.com/sikenali/DTOLPK/internal/model"
	"github.com/spf13/viper"
)

// Name is the config file base name; FileName is what init writes.
const (
	Name     = "docker2lpk"
	FileName = Name + ".yml"
)

// DefaultVersion is used by non-interactive runs that set no version.
const DefaultVersion = "0.0.1"

type Config struct {
	App        AppConfig     `mapstructure:"app"`
	Compose    []string      `mapstructure:"compose"`
	Icon       string        `mapstructure:"icon"`
	Output     string        `mapstructure:"output"`
	ContentDir string        `mapstructure:"content_dir"`
	Routes     []model.Route `mapstructure:"routes"`
	Exclude    []string      `mapstructure:"exclude"`
	Volumes    VolumeConfig  `mapstructure:"volumes"`
	Images     ImageConfig   `mapstructure:"images"`
	NoCache    bool          `mapstructure:"no_cache"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Package     string `mapstructure:"package"`
	Version     string `mapstructure:"version"`
	Description string `mapstructure:"description"`
	Homepage    string `mapstructure:"homepage"`
	Author      string `mapstructure:"author"`
	License     string `mapstructure:"license"`
	Subdomain   string `mapstructure:"subdomain"`

	// BackgroundTask and MultiInstance have no default: non-interactive
	// runs must set them.
	BackgroundTask *bool `mapstructure:"background_task"`
	MultiInstance  *bool `mapstructure:"multi_instance"`

	PublicPaths []string          `mapstructure:"public_paths"`
	GPUAccel    bool              `mapstructure:"gpu_accel"`
	KVMAccel    bool              `mapstructure:"kvm_accel"`
	USBAccel    bool              `mapstructure:"usb_accel"`
	FileHandler FileHandlerConfig `mapstructure:"file_handler"`

	UnsupportedPlatforms []string                `mapstructure:"unsupported_platforms"`
	MinOSVersion         string                  `mapstructure:"min_os_version"`
	Locales              map[string]model.Locale `mapstructure:"locales"`

	AutoRoute bool `mapstructure:"auto_route"`
}

type FileHandlerConfig struct {
	Mime []string `mapstructure:"mime"`
	Open string   `mapstructure:"open"`
}

// VolumeConfig answers volume questions in non-interactive runs. Actions
// are content, classify, data, home or skip.
type VolumeConfig struct {
	Unmanaged  string           `mapstructure:"unmanaged"`
	Existing   string           `mapstructure:"existing"`
	Other      string           `mapstructure:"other"`
	HomeSubdir string           `mapstructure:"home_subdir"`
	Overrides  []VolumeOverride `mapstructure:"overrides"`
}

// VolumeOverride pins the action of one mount.
type VolumeOverride struct {
	Service string `mapstructure:"service"`
	Target  string `mapstructure:"target"`
	Action  string `mapstructure:"action"`
}

type ImageConfig struct {
	Source      string        `mapstructure:"source"` // image or build
	Build       bool          `mapstructure:"build"`
	PushTarget  string        `mapstructure:"push_target"` // none, custom or lazycat
	Registry    string        `mapstructure:"registry"`
	ReuseCached bool          `mapstructure:"reuse_cached"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ConfigError reports a missing or invalid setting.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Message)
}

// Load reads the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom unmarshals v over the defaults.
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	cfg.App.AutoRoute = true
	cfg.Images.Timeout = 10 * time.Minute

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// RequireFeatures checks the settings a non-interactive run cannot ask for.
func (c *Config) RequireFeatures() error {
	if c.App.BackgroundTask == nil {
		return &ConfigError{Key: "app.background_task", Message: "must be set for non-interactive runs (--background-task)"}
	}
	if c.App.MultiInstance == nil {
		return &ConfigError{Key: "app.multi_instance", Message: "must be set for non-interactive runs (--multi-instance)"}
	}
	return nil
}

// AppSpec converts the app section.
func (c *Config) AppSpec() model.AppSpec {
	a := c.App
	return model.AppSpec{
		Name:                  a.Name,
		Package:               a.Package,
		Version:               a.Version,
		Description:           a.Description,
		Homepage:              a.Homepage,
		Author:                a.Author,
		License:               a.License,
		Subdomain:             a.Subdomain,
		UnsupportedPlatforms:  a.UnsupportedPlatforms,
		HasVersionRequirement: a.MinOSVersion != "",
		MinOSVersion:          a.MinOSVersion,
		Locales:               a.Locales,
		Features: model.Features{
			BackgroundTask: deref(a.BackgroundTask),
			MultiInstance:  deref(a.MultiInstance),
			PublicPath:     len(a.PublicPaths) > 0,
			GPUAccel:       a.GPUAccel,
			KVMAccel:       a.KVMAccel,
			USBAccel:       a.USBAccel,
			FileHandler:    len(a.FileHandler.Mime) > 0,
		},
		PublicPaths: a.PublicPaths,
		FileHandler: model.FileHandlerSpec{Mime: a.FileHandler.Mime, OpenAction: a.FileHandler.Open},
		AutoRoute:   a.AutoRoute,
	}
}

// Policy converts the volume and image sections into the non-interactive
// decider.
func (c *Config) Policy() *decide.Policy {
	p := &decide.Policy{
		Volumes: decide.VolumePolicy{
			Unmanaged:  c.Volumes.Unmanaged,
			Existing:   c.Volumes.Existing,
			Other:      c.Volumes.Other,
			HomeSubdir: c.Volumes.HomeSubdir,
		},
		Images: decide.ImagePolicy{
			Source:      c.Images.Source,
			Build:       c.Images.Build,
			PushTarget:  c.Images.PushTarget,
			Registry:    c.Images.Registry,
			ReuseCached: c.Images.ReuseCached,
		},
	}
	if len(c.Volumes.Overrides) > 0 {
		p.Volumes.Overrides = make(map[string]string, len(c.Volumes.Overrides))
		for _, o := range c.Volumes.Overrides {
			p.Volumes.Overrides[o.Service+":"+o.Target] = o.Action
		}
	}
	return p
}

func deref(b *bool) bool {
	return b != nil && *b
}
