// Package screens declares which capabilities each protected screen requires
// and renders the HTML views around them.
package screens

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"sgr/internal/auth/models"
	"sgr/internal/auth/token"
)

//go:embed screens.yaml
var defaultScreens []byte

// Reserved paths served outside the guard.
var reservedPaths = []string{"/sgr/login", "/sgr/logout", "/sgr/confirmado", "/sgr/nao-encontrado", "/sgr/api"}

// Screen is a guarded page and its ordered capability requirement.
type Screen struct {
	Name         string              `yaml:"name"`
	Path         string              `yaml:"path"`
	Title        string              `yaml:"title"`
	Nav          string              `yaml:"nav"`
	Admin        bool                `yaml:"admin"`
	Capabilities []models.Capability `yaml:"capabilities"`
}

// Authorities lists the authority strings any one of which opens the screen.
func (s Screen) Authorities() []string {
	return models.Authorities(s.Capabilities)
}

type document struct {
	Screens []Screen `yaml:"screens"`
}

// Registry is an immutable, validated set of screens.
type Registry struct {
	screens []Screen
	byName  map[string]int
}

// Default returns the embedded registry.
func Default() (*Registry, error) {
	return Load(bytes.NewReader(defaultScreens))
}

// LoadFile reads a registry from path, or the embedded one when path is empty.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open screens file: %w", err)
	}
	defer f.Close()
	reg, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// Load decodes and validates a registry. Unknown YAML fields are rejected.
func Load(r io.Reader) (*Registry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode screens: %w", err)
	}
	return New(doc.Screens)
}

// New validates screens and builds a Registry. Every problem found is reported.
func New(screens []Screen) (*Registry, error) {
	if len(screens) == 0 {
		return nil, errors.New("no screens declared")
	}
	reg := &Registry{screens: make([]Screen, 0, len(screens)), byName: make(map[string]int, len(screens))}
	paths := make(map[string]string, len(screens))
	var errs []error
	for i, s := range screens {
		if err := validateScreen(s); err != nil {
			errs = append(errs, fmt.Errorf("screen %d (%q): %w", i, s.Name, err))
			continue
		}
		if _, dup := reg.byName[s.Name]; dup {
			errs = append(errs, fmt.Errorf("screen %q declared twice", s.Name))
			continue
		}
		if other, dup := paths[s.Path]; dup {
			errs = append(errs, fmt.Errorf("screen %q reuses path %s of %q", s.Name, s.Path, other))
			continue
		}
		paths[s.Path] = s.Name
		s.Capabilities = append([]models.Capability(nil), s.Capabilities...)
		reg.byName[s.Name] = len(reg.screens)
		reg.screens = append(reg.screens, s)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return reg, nil
}

func validateScreen(s Screen) error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("name is required")
	}
	underRoot := s.Path == "/sgr" || strings.HasPrefix(s.Path, "/sgr/")
	if !underRoot || strings.HasSuffix(s.Path, "/") || strings.ContainsAny(s.Path, " {}*?#") {
		return fmt.Errorf("path %q must be a plain path under /sgr without a trailing slash", s.Path)
	}
	for _, reserved := range reservedPaths {
		if s.Path == reserved || strings.HasPrefix(s.Path, reserved+"/") {
			return fmt.Errorf("path %s is reserved", s.Path)
		}
	}
	if len(s.Capabilities) == 0 {
		return errors.New("at least one capability is required")
	}
	for _, c := range s.Capabilities {
		if strings.TrimSpace(c.Authority) == "" {
			return errors.New("capability authority must not be empty")
		}
	}
	return nil
}

// Screens returns the screens in declaration order.
func (r *Registry) Screens() []Screen {
	out := make([]Screen, len(r.screens))
	copy(out, r.screens)
	return out
}

func (r *Registry) ByName(name string) (Screen, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Screen{}, false
	}
	return r.screens[i], true
}

// NavItem is one navigation link.
type NavItem struct {
	Label string
	Path  string
}

// Navigation is the chrome shown to a signed-in session.
type Navigation struct {
	Items      []NavItem
	AdminItems []NavItem
}

// Navigation lists the screens the claims can open, by the same any-match
// rule the route guard applies. Screens
// flagged admin go under the administrator menu, which stays empty (and is
// hidden) for sessions that cannot open any of them.
func (r *Registry) Navigation(claims *token.Claims) Navigation {
	var nav Navigation
	for _, s := range r.screens {
		if s.Nav == "" || !claims.HasAnyAuthority(s.Authorities()) {
			continue
		}
		item := NavItem{Label: s.Nav, Path: s.Path}
		if s.Admin {
			nav.AdminItems = append(nav.AdminItems, item)
		} else {
			nav.Items = append(nav.Items, item)
		}
	}
	return nav
}
