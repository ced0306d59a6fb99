package config

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	gifcreator "github.com/Nanolucas/GifCreator"
	"github.com/Nanolucas/GifCreator/internal/fsutil"
	"github.com/Nanolucas/GifCreator/internal/source"
)

const (
	// DefaultDelay is the per-frame delay, in 1/100s, when neither the frame
	// nor the manifest sets one.
	DefaultDelay = 10

	maxFileSize = 1 * 1024 * 1024 // 1MB
	maxUint16   = 1<<16 - 1
)

// Manifest describes one animation: its frames and how to encode them.
//
//	output: out.gif
//	loop: 0
//	delay: 10
//	disposal: 2
//	transparency: black   # black | none | #rrggbb
//	frames:
//	  - source: frames/0.png
//	  - source: https://example.com/1.gif
//	    delay: 50
type Manifest struct {
	Output       string       `yaml:"output,omitempty"`
	Loop         int          `yaml:"loop"`
	Delay        *int         `yaml:"delay,omitempty"`
	Disposal     *int         `yaml:"disposal,omitempty"`
	Transparency string       `yaml:"transparency,omitempty"`
	MaxWidth     int          `yaml:"max_width,omitempty"`
	Frames       []FrameEntry `yaml:"frames"`

	// baseDir anchors relative frame paths and the output path.
	baseDir string
}

// FrameEntry is one frame in a Manifest.
type FrameEntry struct {
	Source   string `yaml:"source"`
	Delay    *int   `yaml:"delay,omitempty"`
	Disposal *int   `yaml:"disposal,omitempty"`
}

// LoadManifest loads a Manifest from a YAML or JSON file on disk.
func LoadManifest(path string) (*Manifest, error) {
	return LoadManifestFS(fsutil.OSFileSystem{}, path)
}

// LoadManifestFS loads a Manifest from fsys. Relative frame paths are taken
// relative to the manifest's directory.
func LoadManifestFS(fsys fsutil.FileSystem, path string) (*Manifest, error) {
	cleanPath := filepath.Clean(path)
	switch ext := strings.ToLower(filepath.Ext(cleanPath)); ext {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("manifest must have .yaml, .yml or .json extension, got %q", ext)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("manifest too large: %d bytes (max %d)", len(data), maxFileSize)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	m.baseDir = filepath.Dir(cleanPath)
	return m, nil
}

// ParseManifest decodes and validates a manifest. JSON is valid YAML, so
// both are accepted.
func ParseManifest(data []byte) (*Manifest, error) {
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return m, nil
}

// Validate checks that values are within valid ranges.
func (m *Manifest) Validate() error {
	if len(m.Frames) == 0 {
		return fmt.Errorf("at least one frame is required")
	}
	if m.Loop < 0 || m.Loop > maxUint16 {
		return fmt.Errorf("loop must be between 0 and %d, got %d", maxUint16, m.Loop)
	}
	if m.MaxWidth < 0 {
		return fmt.Errorf("max_width must be non-negative, got %d", m.MaxWidth)
	}
	if err := validateDelay(m.Delay); err != nil {
		return err
	}
	if err := validateDisposal(m.Disposal); err != nil {
		return err
	}
	if _, _, err := ParseTransparency(m.Transparency); err != nil {
		return err
	}
	for i, f := range m.Frames {
		if strings.TrimSpace(f.Source) == "" {
			return fmt.Errorf("frame %d: source is required", i)
		}
		if err := validateDelay(f.Delay); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if err := validateDisposal(f.Disposal); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

func validateDelay(d *int) error {
	if d != nil && (*d < 0 || *d > maxUint16) {
		return fmt.Errorf("delay must be between 0 and %d, got %d", maxUint16, *d)
	}
	return nil
}

func validateDisposal(d *int) error {
	if d != nil && (*d < 0 || *d > 7) {
		return fmt.Errorf("disposal must be between 0 and 7, got %d", *d)
	}
	return nil
}

// ParseTransparency reads "black", "none" or a "#rrggbb" color. An empty
// string means "black".
func ParseTransparency(s string) (gifcreator.TransparencyMode, *gifcreator.RGB, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); {
	case v == "" || v == "black":
		return gifcreator.TransparencyBlack, nil, nil
	case v == "none":
		return gifcreator.TransparencyNone, nil, nil
	case strings.HasPrefix(v, "#") && len(v) == 7:
		b, err := hex.DecodeString(v[1:])
		if err != nil {
			return 0, nil, fmt.Errorf("invalid transparency color %q: %w", s, err)
		}
		return gifcreator.TransparencyBlack, &gifcreator.RGB{Red: b[0], Green: b[1], Blue: b[2]}, nil
	}
	return 0, nil, fmt.Errorf("transparency must be black, none or #rrggbb, got %q", s)
}

// GetDelay returns the manifest-wide delay or DefaultDelay.
func (m *Manifest) GetDelay() int {
	if m.Delay != nil {
		return *m.Delay
	}
	return DefaultDelay
}

// GetDisposal returns the manifest-wide disposal or restore-to-background.
func (m *Manifest) GetDisposal() byte {
	if m.Disposal != nil {
		return byte(*m.Disposal)
	}
	return gifcreator.DisposalBackground
}

// OutputPath is Output resolved against the manifest's directory.
func (m *Manifest) OutputPath() string {
	if m.Output == "" || filepath.IsAbs(m.Output) {
		return m.Output
	}
	return filepath.Join(m.baseDir, m.Output)
}

// Sources lists the frame sources in order.
func (m *Manifest) Sources() []source.Source {
	srcs := make([]source.Source, len(m.Frames))
	for i, f := range m.Frames {
		src := source.Parse(f.Source)
		if src.Kind == source.KindPath && m.baseDir != "" && !filepath.IsAbs(src.Location) {
			src.Location = filepath.Join(m.baseDir, src.Location)
		}
		srcs[i] = src
	}
	return srcs
}

// Animation pairs resolved frames with the manifest's timing. Per-frame
// disposal is only set when some frame overrides it.
func (m *Manifest) Animation(frames [][]byte) *gifcreator.Animation {
	a := &gifcreator.Animation{
		Frames:    frames,
		Delay:     make([]int, len(m.Frames)),
		LoopCount: m.Loop,
	}
	override := false
	disposal := make([]byte, len(m.Frames))
	for i, f := range m.Frames {
		a.Delay[i] = m.GetDelay()
		if f.Delay != nil {
			a.Delay[i] = *f.Delay
		}
		disposal[i] = m.GetDisposal()
		if f.Disposal != nil {
			disposal[i] = byte(*f.Disposal)
			override = true
		}
	}
	if override {
		a.Disposal = disposal
	}
	return a
}

// Options maps the manifest onto encoder options.
func (m *Manifest) Options() (*gifcreator.Options, error) {
	mode, color, err := ParseTransparency(m.Transparency)
	if err != nil {
		return nil, err
	}
	return &gifcreator.Options{
		Disposal:         m.GetDisposal(),
		Transparency:     mode,
		TransparentColor: color,
	}, nil
}
