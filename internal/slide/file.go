package slide

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Project is the on-disk form of a slide sequence.
type Project struct {
	Version string   `yaml:"version"`
	Title   string   `yaml:"title,omitempty"`
	Slides  Sequence `yaml:"slides"`
}

// WriteSequence writes a project file
func WriteSequence(path string, p *Project) error {
	if p.Version == "" {
		p.Version = "1.0"
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadSequence reads a project file. Image slides may carry either inline
// bytes or a Content path relative to the working directory.
func ReadSequence(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for i := range p.Slides {
		sl := &p.Slides[i]
		if sl.Kind == KindImage && len(sl.Image) == 0 && sl.Content != "" {
			img, err := os.ReadFile(sl.Content)
			if err != nil {
				return nil, fmt.Errorf("slide %d: %w", i+1, err)
			}
			sl.Image = img
		}
	}

	return &p, nil
}

// slideFile is the on-disk form of a Slide. Image bytes go out as a single
// base64 !!binary scalar instead of one YAML entry per byte.
type slideFile struct {
	ID       string     `yaml:"id"`
	Kind     Kind       `yaml:"kind"`
	Content  string     `yaml:"content,omitempty"`
	Image    *yaml.Node `yaml:"image,omitempty"`
	Duration float64    `yaml:"duration"`
	Style    *Style     `yaml:"style,omitempty"`
}

func (s Slide) MarshalYAML() (any, error) {
	f := slideFile{
		ID:       s.ID,
		Kind:     s.Kind,
		Content:  s.Content,
		Duration: s.Duration,
		Style:    s.Style,
	}
	if len(s.Image) > 0 {
		f.Image = &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!binary",
			Value: base64.StdEncoding.EncodeToString(s.Image),
		}
	}
	return f, nil
}

func (s *Slide) UnmarshalYAML(node *yaml.Node) error {
	var f slideFile
	if err := node.Decode(&f); err != nil {
		return err
	}
	*s = Slide{
		ID:       f.ID,
		Kind:     f.Kind,
		Content:  f.Content,
		Duration: f.Duration,
		Style:    f.Style,
	}
	if f.Image == nil {
		return nil
	}

	// Early project files listed one byte per sequence entry.
	if f.Image.Kind == yaml.SequenceNode {
		return f.Image.Decode(&s.Image)
	}
	data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(f.Image.Value), ""))
	if err != nil {
		return fmt.Errorf("line %d: image: %w", f.Image.Line, err)
	}
	s.Image = data
	return nil
}
