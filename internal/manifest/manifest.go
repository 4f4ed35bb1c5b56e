// Package manifest reads a listing described in a YAML file, for creating
// listings without the interactive form.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Mickeymouse32/torii-frontend/internal/domain"
	"github.com/Mickeymouse32/torii-frontend/internal/staging"
)

var ErrTooManyImages = errors.New("too many images")

// Manifest mirrors the creation form. Scalars are kept as written so the
// usual field validation reports problems.
type Manifest struct {
	Title         string   `yaml:"title"`
	Description   string   `yaml:"description"`
	Location      string   `yaml:"location"`
	Bedroom       string   `yaml:"bedroom"`
	LivingRoom    string   `yaml:"livingRoom"`
	Toilet        string   `yaml:"toilet"`
	Kitchen       string   `yaml:"kitchen"`
	Price         string   `yaml:"price"`
	PaymentPeriod string   `yaml:"paymentPeriod"`
	Images        []string `yaml:"images"`
}

func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes a manifest. Relative image paths are resolved against
// baseDir.
func Parse(data []byte, baseDir string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(m.Images) > domain.ImageCount {
		return nil, fmt.Errorf("%w: %d listed, at most %d", ErrTooManyImages, len(m.Images), domain.ImageCount)
	}
	for i, p := range m.Images {
		if !filepath.IsAbs(p) {
			m.Images[i] = filepath.Join(baseDir, p)
		}
	}
	return &m, nil
}

func (m *Manifest) Form() domain.FormInput {
	return domain.FormInput{
		Title:         m.Title,
		Description:   m.Description,
		Location:      m.Location,
		Bedroom:       m.Bedroom,
		LivingRoom:    m.LivingRoom,
		Toilet:        m.Toilet,
		Kitchen:       m.Kitchen,
		Price:         m.Price,
		PaymentPeriod: m.PaymentPeriod,
	}
}

// Candidates reads every listed image in order.
func (m *Manifest) Candidates() ([]staging.Candidate, error) {
	out := make([]staging.Candidate, 0, len(m.Images))
	for _, p := range m.Images {
		c, err := staging.CandidateFromFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
