package reltag

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// DefaultExecutorImage is the Kaniko executor used when none is given.
const DefaultExecutorImage = "gcr.io/kaniko-project/executor:latest"

// KanikoBuild describes one container image build. The build itself runs
// in the cluster; this type only produces the executor arguments and the
// pod manifest the host submits.
type KanikoBuild struct {
	// Image is the destination repository, without a tag.
	Image string

	// Tag is the image tag, typically a calculated version string.
	Tag string

	// ContextURL is the build context, e.g. a git:// URL or a directory.
	ContextURL string

	// Dockerfile within the context (default "Dockerfile").
	Dockerfile string

	// Namespace the pod is created in (default "default").
	Namespace string

	// ServiceAccount for the pod, if any.
	ServiceAccount string

	// RegistrySecret names a dockerconfigjson secret mounted for pushes.
	RegistrySecret string

	// ExecutorImage overrides DefaultExecutorImage.
	ExecutorImage string

	// ExtraArgs are appended to the executor arguments verbatim.
	ExtraArgs []string
}

func (b KanikoBuild) validate() error {
	if b.Image == "" {
		return fmt.Errorf("image is required")
	}
	if b.Tag == "" {
		return fmt.Errorf("tag is required")
	}
	if b.ContextURL == "" {
		return fmt.Errorf("context URL is required")
	}
	return nil
}

func (b KanikoBuild) withDefaults() KanikoBuild {
	if b.Dockerfile == "" {
		b.Dockerfile = "Dockerfile"
	}
	if b.Namespace == "" {
		b.Namespace = "default"
	}
	if b.ExecutorImage == "" {
		b.ExecutorImage = DefaultExecutorImage
	}
	return b
}

// Destination is the fully qualified image reference to push.
func (b KanikoBuild) Destination() string {
	return b.Image + ":" + b.Tag
}

// Args builds the Kaniko executor argument list.
func (b KanikoBuild) Args() ([]string, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	b = b.withDefaults()

	args := []string{
		"--context=" + b.ContextURL,
		"--dockerfile=" + b.Dockerfile,
		"--destination=" + b.Destination(),
	}
	return append(args, b.ExtraArgs...), nil
}

var kanikoPodTemplate = template.Must(template.New("kaniko-pod").Parse(`apiVersion: v1
kind: Pod
metadata:
  generateName: kaniko-{{ .Name }}-
  namespace: {{ .Build.Namespace }}
  labels:
    app: kaniko
    image-tag: "{{ .Build.Tag }}"
spec:
  restartPolicy: Never
{{- if .Build.ServiceAccount }}
  serviceAccountName: {{ .Build.ServiceAccount }}
{{- end }}
  containers:
  - name: kaniko
    image: {{ .Build.ExecutorImage }}
    args:
{{- range .Args }}
    - "{{ . }}"
{{- end }}
{{- if .Build.RegistrySecret }}
    volumeMounts:
    - name: docker-config
      mountPath: /kaniko/.docker
  volumes:
  - name: docker-config
    secret:
      secretName: {{ .Build.RegistrySecret }}
      items:
      - key: .dockerconfigjson
        path: config.json
{{- end }}
`))

// RenderPod renders the pod manifest that runs this build. The result is
// round-tripped through the YAML parser so a template mistake surfaces
// here rather than at submission time.
func (b KanikoBuild) RenderPod() (string, error) {
	args, err := b.Args()
	if err != nil {
		return "", err
	}
	b = b.withDefaults()

	data := struct {
		Name  string
		Build KanikoBuild
		Args  []string
	}{
		Name:  sanitizeName(b.Image),
		Build: b,
		Args:  args,
	}

	var buf bytes.Buffer
	if err := kanikoPodTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering pod manifest: %w", err)
	}

	var check map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &check); err != nil {
		return "", fmt.Errorf("rendered manifest is not valid YAML: %w", err)
	}

	return buf.String(), nil
}

// sanitizeName reduces an image reference to a DNS-label friendly string
// usable in a pod name.
func sanitizeName(s string) string {
	var out strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out.WriteRune(r)
		default:
			out.WriteRune('-')
		}
	}
	return strings.Trim(out.String(), "-")
}
