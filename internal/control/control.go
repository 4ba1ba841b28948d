package control

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bcgov/nr-vdyp-sub007/internal/types"
)

//go:embed default.yaml
var defaultControlMap []byte

// Raw is the control map as written in YAML.
type Raw struct {
	BecZones   []BecZoneEntry   `yaml:"bec_zones"`
	Genera     []GenusEntry     `yaml:"genera"`
	SizeLimits []SizeLimitEntry `yaml:"size_limits"`
}

// BecZoneEntry assigns a BEC zone to a region.
type BecZoneEntry struct {
	Code   string       `yaml:"code"`
	Name   string       `yaml:"name"`
	Region types.Region `yaml:"region"`
}

// GenusEntry names a species group (SP0).
type GenusEntry struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// SizeLimitEntry is the baseline size limits of one genus in one region.
type SizeLimitEntry struct {
	Genus  string       `yaml:"genus"`
	Region types.Region `yaml:"region"`

	types.ComponentSizeLimits `yaml:",inline"`
}

type limitKey struct {
	genus  string
	region types.Region
}

// Map is a resolved control map. It is immutable and safe to share between goroutines.
type Map struct {
	becZones map[string]BecZoneEntry
	genera   map[string]GenusEntry
	limits   map[limitKey]types.ComponentSizeLimits
}

// Parse decodes raw YAML control map data. Unknown fields are rejected.
func Parse(data []byte) (*Raw, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var raw Raw
	if err := dec.Decode(&raw); err != nil {
		return nil, &LoadError{Message: "failed to decode YAML", Cause: err}
	}
	return &raw, nil
}

// Load reads and resolves the control map at path.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("failed to read file %s", path), Cause: err}
	}
	raw, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Resolve(raw)
}

// Default returns the control map embedded in the binary.
func Default() (*Map, error) {
	raw, err := Parse(defaultControlMap)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the embedded control map: %w", err)
	}
	return Resolve(raw)
}

// Resolve checks raw for consistency and builds the lookup tables.
func Resolve(raw *Raw) (*Map, error) {
	if raw == nil {
		return nil, &ResolveError{Section: "root", Message: "control map is empty"}
	}

	m := &Map{
		becZones: make(map[string]BecZoneEntry, len(raw.BecZones)),
		genera:   make(map[string]GenusEntry, len(raw.Genera)),
		limits:   make(map[limitKey]types.ComponentSizeLimits, len(raw.SizeLimits)),
	}

	for _, z := range raw.BecZones {
		code := strings.TrimSpace(z.Code)
		if code == "" {
			return nil, &ResolveError{Section: "bec_zones", Message: "zone code is empty"}
		}
		if !z.Region.Valid() {
			return nil, &ResolveError{Section: "bec_zones", Message: fmt.Sprintf("zone %s has unknown region %q", code, z.Region)}
		}
		if _, dup := m.becZones[code]; dup {
			return nil, &ResolveError{Section: "bec_zones", Message: fmt.Sprintf("zone %s is listed twice", code)}
		}
		z.Code = code
		m.becZones[code] = z
	}

	for _, g := range raw.Genera {
		code := strings.TrimSpace(g.Code)
		if code == "" {
			return nil, &ResolveError{Section: "genera", Message: "genus code is empty"}
		}
		if _, dup := m.genera[code]; dup {
			return nil, &ResolveError{Section: "genera", Message: fmt.Sprintf("genus %s is listed twice", code)}
		}
		g.Code = code
		m.genera[code] = g
	}

	for _, l := range raw.SizeLimits {
		if _, ok := m.genera[l.Genus]; !ok {
			return nil, &ResolveError{Section: "size_limits", Message: fmt.Sprintf("unknown genus %q", l.Genus)}
		}
		if !l.Region.Valid() {
			return nil, &ResolveError{Section: "size_limits", Message: fmt.Sprintf("genus %s has unknown region %q", l.Genus, l.Region)}
		}
		if err := checkLimits(l.ComponentSizeLimits); err != nil {
			return nil, &ResolveError{Section: "size_limits", Message: fmt.Sprintf("genus %s %s: %s", l.Genus, l.Region, err)}
		}
		key := limitKey{genus: l.Genus, region: l.Region}
		if _, dup := m.limits[key]; dup {
			return nil, &ResolveError{Section: "size_limits", Message: fmt.Sprintf("genus %s %s is listed twice", l.Genus, l.Region)}
		}
		m.limits[key] = l.ComponentSizeLimits
	}

	return m, nil
}

func checkLimits(l types.ComponentSizeLimits) error {
	if l.LoreyHeightMaximum <= 0 || l.QuadMeanDiameterMaximum <= 0 {
		return fmt.Errorf("maximums must be positive")
	}
	if l.MinQuadMeanDiameterLoreyHeightRatio <= 0 || l.MinQuadMeanDiameterLoreyHeightRatio > l.MaxQuadMeanDiameterLoreyHeightRatio {
		return fmt.Errorf("ratio range %.3f..%.3f is invalid", l.MinQuadMeanDiameterLoreyHeightRatio, l.MaxQuadMeanDiameterLoreyHeightRatio)
	}
	return nil
}

// Region returns the region of a BEC zone.
func (m *Map) Region(becZone string) (types.Region, error) {
	z, ok := m.becZones[strings.TrimSpace(becZone)]
	if !ok {
		return "", &ResolveError{Section: "bec_zones", Message: fmt.Sprintf("unknown BEC zone %q", becZone)}
	}
	return z.Region, nil
}

// BecZones returns the known zone codes in sorted order.
func (m *Map) BecZones() []string {
	return sortedKeys(m.becZones)
}

// Genera returns the known genus codes in sorted order.
func (m *Map) Genera() []string {
	return sortedKeys(m.genera)
}

// GenusName returns the descriptive name of a genus.
func (m *Map) GenusName(genus string) (string, bool) {
	g, ok := m.genera[genus]
	return g.Name, ok
}

// SizeLimits returns the baseline size limits of genus in region.
func (m *Map) SizeLimits(genus string, region types.Region) (types.ComponentSizeLimits, bool) {
	l, ok := m.limits[limitKey{genus: genus, region: region}]
	return l, ok
}

func sortedKeys[V any](in map[string]V) []string {
	out := make([]string, 0, len(in))
	for k := range in {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
