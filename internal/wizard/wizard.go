package wizard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/sikenali/DTOLPK/internal/decide"
	"github.com/sikenali/DTOLPK/internal/manifest"
)

// Run executes the init wizard and returns the user's answers.
func Run(detection DetectionResult) (*Answers, error) {
	answers := &Answers{
		Version:          "0.0.1",
		Output:           ".",
		ExistingVolumes:  decide.ActionContent,
		OtherVolumes:     decide.ActionClassify,
		UnmanagedVolumes: decide.ActionData,
		PushTarget:       decide.PushNone,
	}

	// Build detection summary
	var hints []string
	if len(detection.ComposeFiles) > 0 {
		hints = append(hints, fmt.Sprintf("Compose files found: %s", strings.Join(detection.ComposeFiles, ", ")))
	}
	if len(detection.Icons) > 0 {
		hints = append(hints, fmt.Sprintf("Icons found: %s", strings.Join(detection.Icons, ", ")))
	}
	if !detection.DockerAvailable {
		hints = append(hints, "docker not found: images can only be used as they are")
	}

	desc := "Describe the application that will be packaged."
	if len(hints) > 0 {
		desc += "\n\nAuto-detected:\n  " + strings.Join(hints, "\n  ")
	}

	// Step 1: identity
	identity := huh.NewGroup(
		huh.NewInput().
			Title("Application name").
			Description(desc).
			Value(&answers.Name).
			Validate(required("name")),
		huh.NewInput().
			Title("Package id").
			Description("Reverse-domain id, e.g. com.example.myapp").
			Value(&answers.Package).
			Validate(manifest.ValidatePackage),
		huh.NewInput().
			Title("Version").
			Value(&answers.Version).
			Validate(manifest.ValidateVersion),
		huh.NewInput().
			Title("Description (optional)").
			Value(&answers.Description),
		huh.NewInput().
			Title("Author (optional)").
			Value(&answers.Author),
	)

	// Step 2: features
	var publicPaths string
	features := huh.NewGroup(
		huh.NewConfirm().
			Title("Keep running in the background?").
			Value(&answers.BackgroundTask),
		huh.NewConfirm().
			Title("One instance per user?").
			Value(&answers.MultiInstance),
		huh.NewInput().
			Title("Public paths (optional)").
			Description("Comma separated paths reachable without login, e.g. /api,/hooks").
			Value(&publicPaths),
	)

	// Step 3: inputs
	var composeFile, icon string
	if len(detection.ComposeFiles) > 0 {
		composeFile = detection.ComposeFiles[0]
	}
	if len(detection.Icons) > 0 {
		icon = detection.Icons[0]
	}
	inputs := huh.NewGroup(
		huh.NewInput().
			Title("Compose file").
			Value(&composeFile).
			Validate(required("compose file")),
		huh.NewInput().
			Title("Icon").
			Value(&icon).
			Validate(required("icon")),
		huh.NewInput().
			Title("Output directory").
			Value(&answers.Output),
	)

	// Step 4: unattended answers
	pushOptions := []huh.Option[string]{huh.NewOption("Do not push, use images as they are", decide.PushNone)}
	if detection.DockerAvailable {
		pushOptions = append(pushOptions, huh.NewOption("Push to a custom registry", decide.PushCustom))
	}
	if detection.LzcCLIAvailable {
		pushOptions = append(pushOptions, huh.NewOption("Copy to the LazyCat registry", decide.PushLazyCat))
	}
	unattended := huh.NewGroup(
		huh.NewSelect[string]().
			Title("Directories next to the compose file").
			Options(volumeOptions(decide.ActionContent, decide.ActionClassify, decide.ActionHome, decide.ActionSkip)...).
			Value(&answers.ExistingVolumes),
		huh.NewSelect[string]().
			Title("Other host paths").
			Options(volumeOptions(decide.ActionClassify, decide.ActionData, decide.ActionHome, decide.ActionSkip)...).
			Value(&answers.OtherVolumes),
		huh.NewSelect[string]().
			Title("Named and anonymous volumes").
			Options(volumeOptions(decide.ActionData, decide.ActionHome, decide.ActionSkip)...).
			Value(&answers.UnmanagedVolumes),
		huh.NewSelect[string]().
			Title("Images in non-interactive runs").
			Options(pushOptions...).
			Value(&answers.PushTarget),
	)

	form := huh.NewForm(identity, features, inputs, unattended)
	if err := form.Run(); err != nil {
		return nil, err
	}

	if answers.PushTarget == decide.PushCustom {
		registry := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Registry address").
				Placeholder("registry.example.com/team").
				Value(&answers.Registry).
				Validate(required("registry")),
		))
		if err := registry.Run(); err != nil {
			return nil, err
		}
	}

	answers.Compose = []string{composeFile}
	answers.Icon = icon
	answers.PublicPaths = splitList(publicPaths)
	return answers, nil
}

var volumeLabels = map[string]string{
	decide.ActionContent:  "Package the directory content",
	decide.ActionClassify: "Map by name to the app's var directory",
	decide.ActionData:     "Use an empty directory in app data",
	decide.ActionHome:     "Use a folder in the user's documents",
	decide.ActionSkip:     "Skip the mount",
}

func volumeOptions(actions ...string) []huh.Option[string] {
	opts := make([]huh.Option[string], len(actions))
	for i, a := range actions {
		opts[i] = huh.NewOption(volumeLabels[a], a)
	}
	return opts
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(s []string, v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}
