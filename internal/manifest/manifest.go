// Package manifest describes the seed data of the catalog: categories,
// scripts with their knowledge articles, and docker components.
package manifest

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chis/kbcatalog/internal/storage"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Manifest is the full seed description of a catalog.
type Manifest struct {
	// RevisionDate stamps scripts whose article carries no review date.
	RevisionDate     time.Time         `yaml:"revision_date"`
	Categories       []Category        `yaml:"categories"`
	Scripts          []Script          `yaml:"scripts"`
	DockerComponents []DockerComponent `yaml:"docker_components"`
}

// Category is a manifest category entry.
type Category struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	SortOrder   int    `yaml:"sort_order"`
}

// Script is a manifest script entry. Category refers to a category slug.
type Script struct {
	Name           string      `yaml:"name"`
	Category       string      `yaml:"category"`
	Subcategory    string      `yaml:"subcategory,omitempty"`
	FilePath       string      `yaml:"file_path"`
	Synopsis       string      `yaml:"synopsis"`
	Description    string      `yaml:"description,omitempty"`
	SupportsWhatIf bool        `yaml:"supports_whatif,omitempty"`
	SupportsExport bool        `yaml:"supports_export,omitempty"`
	KCS            Article     `yaml:"kcs"`
	Parameters     []Parameter `yaml:"parameters,omitempty"`
	Tags           []string    `yaml:"tags,omitempty"`
}

// Article holds the knowledge-centered service fields of a script.
type Article struct {
	State       string     `yaml:"state"`
	Confidence  int        `yaml:"confidence"`
	Environment string     `yaml:"environment,omitempty"`
	Resolution  string     `yaml:"resolution,omitempty"`
	Cause       string     `yaml:"cause,omitempty"`
	Author      string     `yaml:"author,omitempty"`
	Reviewed    *time.Time `yaml:"reviewed,omitempty"`
}

// Parameter is a manifest parameter entry.
type Parameter struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Required    bool    `yaml:"required,omitempty"`
	Default     *string `yaml:"default,omitempty"`
}

// DockerComponent is a manifest docker component entry.
type DockerComponent struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Port        string `yaml:"port,omitempty"`
	Description string `yaml:"description,omitempty"`
	Location    string `yaml:"location,omitempty"`
	Details     string `yaml:"details,omitempty"`
}

// ValidationError lists every problem found in a manifest.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "invalid manifest: " + e.Issues[0]
	}
	return fmt.Sprintf("invalid manifest (%d issues): %s", len(e.Issues), strings.Join(e.Issues, "; "))
}

func (e *ValidationError) add(format string, args ...any) {
	e.Issues = append(e.Issues, fmt.Sprintf(format, args...))
}

// Default returns the catalog embedded in the binary.
func Default() (*Manifest, error) {
	m, err := Parse(bytes.NewReader(defaultCatalog))
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded catalog: %w", err)
	}
	return m, nil
}

// DefaultYAML returns the raw embedded catalog.
func DefaultYAML() []byte {
	return bytes.Clone(defaultCatalog)
}

// Load reads a manifest file from disk.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest. Unknown keys are rejected so typos in field
// names surface instead of silently seeding empty values.
func Parse(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &m, nil
		}
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest against the catalog's constraints. All
// problems are collected; the returned error is a *ValidationError.
func (m *Manifest) Validate() error {
	verr := &ValidationError{}

	slugs := make(map[string]bool, len(m.Categories))
	for i, c := range m.Categories {
		if c.Slug == "" {
			verr.add("category #%d: slug is required", i+1)
		} else if slugs[c.Slug] {
			verr.add("category %q: duplicate slug", c.Slug)
		}
		if c.Name == "" {
			verr.add("category #%d: name is required", i+1)
		}
		slugs[c.Slug] = true
	}

	names := make(map[string]bool, len(m.Scripts))
	for i, s := range m.Scripts {
		label := s.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
			verr.add("script #%d: name is required", i+1)
		} else if names[s.Name] {
			verr.add("script %q: duplicate name", s.Name)
		}
		names[s.Name] = true

		if s.FilePath == "" {
			verr.add("script %s: file_path is required", label)
		}
		if s.Category == "" {
			verr.add("script %s: category is required", label)
		} else if !slugs[s.Category] {
			verr.add("script %s: unknown category %q", label, s.Category)
		}
		if s.KCS.State != "" && !storage.ValidKCSState(s.KCS.State) {
			verr.add("script %s: invalid kcs state %q", label, s.KCS.State)
		}
		if !storage.ValidConfidence(s.KCS.Confidence) {
			verr.add("script %s: confidence %d outside [%d,%d]", label, s.KCS.Confidence, storage.MinConfidence, storage.MaxConfidence)
		}

		params := make(map[string]bool, len(s.Parameters))
		for _, p := range s.Parameters {
			if p.Name == "" {
				verr.add("script %s: parameter name is required", label)
				continue
			}
			if params[p.Name] {
				verr.add("script %s: duplicate parameter %q", label, p.Name)
			}
			params[p.Name] = true
		}
	}

	components := make(map[string]bool, len(m.DockerComponents))
	for i, d := range m.DockerComponents {
		if d.Name == "" {
			verr.add("docker component #%d: name is required", i+1)
			continue
		}
		if components[d.Name] {
			verr.add("docker component %q: duplicate name", d.Name)
		}
		components[d.Name] = true
	}

	if len(verr.Issues) > 0 {
		return verr
	}
	return nil
}

// Checksum returns a hex SHA-256 of the manifest's canonical YAML encoding.
// Formatting-only edits to the source file do not change it.
func (m *Manifest) Checksum() (string, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ScriptInput converts a manifest script into a storage write, resolving
// the category through categoryIDs (slug to id). Scripts without a review
// date inherit the manifest's revision date.
func (m *Manifest) ScriptInput(s Script, categoryIDs map[string]int64) (storage.ScriptInput, error) {
	categoryID, ok := categoryIDs[s.Category]
	if !ok {
		return storage.ScriptInput{}, fmt.Errorf("script %s: %w: %s", s.Name, storage.ErrCategoryNotFound, s.Category)
	}

	reviewed := s.KCS.Reviewed
	if reviewed == nil && !m.RevisionDate.IsZero() {
		t := m.RevisionDate
		reviewed = &t
	}

	params := make([]storage.Parameter, len(s.Parameters))
	for i, p := range s.Parameters {
		params[i] = storage.Parameter{
			Name:         p.Name,
			Description:  p.Description,
			IsRequired:   p.Required,
			DefaultValue: p.Default,
		}
	}

	return storage.ScriptInput{
		CategoryID:     categoryID,
		Name:           s.Name,
		FilePath:       s.FilePath,
		Subcategory:    s.Subcategory,
		Synopsis:       s.Synopsis,
		Description:    s.Description,
		SupportsWhatIf: s.SupportsWhatIf,
		SupportsExport: s.SupportsExport,
		KCSState:       s.KCS.State,
		Environment:    s.KCS.Environment,
		Resolution:     s.KCS.Resolution,
		Cause:          s.KCS.Cause,
		Confidence:     s.KCS.Confidence,
		Author:         s.KCS.Author,
		LastReviewed:   reviewed,
		Parameters:     params,
		Tags:           s.Tags,
	}, nil
}

// StorageCategory converts a manifest category into its storage form.
func (c Category) StorageCategory() storage.Category {
	return storage.Category{
		Slug:        c.Slug,
		Name:        c.Name,
		Description: c.Description,
		SortOrder:   c.SortOrder,
	}
}

// StorageComponent converts a manifest docker component into its storage form.
func (d DockerComponent) StorageComponent() storage.DockerComponent {
	return storage.DockerComponent{
		Name:        d.Name,
		Type:        d.Type,
		Port:        d.Port,
		Description: d.Description,
		Location:    d.Location,
		Details:     d.Details,
	}
}
