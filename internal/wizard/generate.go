package wizard

import (
	"bytes"
	"strconv"
	"text/template"

	"github.com/sikenali/DTOLPK/internal/decide"
)

// Answers holds all user responses from the init wizard.
type Answers struct {
	// App identity
	Name        string
	Package     string
	Version     string
	Description string
	Homepage    string
	Author      string

	// Features
	BackgroundTask bool
	MultiInstance  bool
	PublicPaths    []string

	// Inputs and output
	Compose []string
	Icon    string
	Output  string

	// Non-interactive volume and image answers
	ExistingVolumes  string
	OtherVolumes     string
	UnmanagedVolumes string
	PushTarget       string
	Registry         string
}

const configTemplate = `# docker2lpk configuration
# Used by: docker2lpk convert [--non-interactive]

app:
  name: {{ q .Name }}
  package: {{ q .Package }}
  version: {{ q .Version }}
{{- if .Description }}
  description: {{ q .Description }}
{{- end }}
{{- if .Homepage }}
  homepage: {{ q .Homepage }}
{{- end }}
{{- if .Author }}
  author: {{ q .Author }}
{{- end }}
  background_task: {{ .BackgroundTask }}
  multi_instance: {{ .MultiInstance }}
{{- if .PublicPaths }}
  public_paths:
{{- range .PublicPaths }}
    - {{ q . }}
{{- end }}
{{- end }}

{{- if .Compose }}

compose:
{{- range .Compose }}
  - {{ q . }}
{{- end }}
{{- end }}
{{- if .Icon }}
icon: {{ q .Icon }}
{{- end }}
output: {{ q .Output }}

volumes:
  existing: {{ .ExistingVolumes }}
  other: {{ .OtherVolumes }}
  unmanaged: {{ .UnmanagedVolumes }}

images:
  push_target: {{ .PushTarget }}
{{- if .Registry }}
  registry: {{ q .Registry }}
{{- end }}
`

// GenerateConfig renders docker2lpk.yml from wizard answers.
func GenerateConfig(answers Answers) (string, error) {
	if answers.Version == "" {
		answers.Version = "0.0.1"
	}
	if answers.Output == "" {
		answers.Output = "."
	}
	if answers.ExistingVolumes == "" {
		answers.ExistingVolumes = decide.ActionContent
	}
	if answers.OtherVolumes == "" {
		answers.OtherVolumes = decide.ActionClassify
	}
	if answers.UnmanagedVolumes == "" {
		answers.UnmanagedVolumes = decide.ActionData
	}
	if answers.PushTarget == "" {
		answers.PushTarget = decide.PushNone
	}

	tmpl, err := template.New("config").Funcs(template.FuncMap{"q": strconv.Quote}).Parse(configTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, answers); err != nil {
		return "", err
	}

	return buf.String(), nil
}
