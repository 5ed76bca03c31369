// Package catalog holds the read-only location reference data shared by all
// game sessions.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"slices"

	"github.com/playperu/meimei/internal/meimei"
)

//go:embed locations.json
var defaultDoc []byte

// Bounds is the pixel size of the source image behind a projection.
type Bounds struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type locationDoc struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Region       string            `json:"region"`
	Hint         string            `json:"hint"`
	Image        string            `json:"image"`
	WorldMap     *meimei.Placement `json:"worldMap"`
	ContinentMap *meimei.Placement `json:"continentMap"`
}

type catalogDoc struct {
	Images    map[meimei.Projection]Bounds `json:"images"`
	Locations []locationDoc                `json:"locations"`
}

// Catalog is immutable after Load; it is safe for concurrent readers.
type Catalog struct {
	images    map[meimei.Projection]Bounds
	locations []meimei.Location
	byID      map[string]int
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultDoc))
}

// Open loads a catalog document from path.
func Open(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Load decodes and validates a catalog document. Every invariant violation
// is reported, not just the first.
func Load(r io.Reader) (*Catalog, error) {
	var doc catalogDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	locs := make([]meimei.Location, 0, len(doc.Locations))
	for _, ld := range doc.Locations {
		loc := meimei.Location{
			ID:         ld.ID,
			Name:       ld.Name,
			Region:     ld.Region,
			HintText:   ld.Hint,
			ImageRef:   ld.Image,
			Placements: make(map[meimei.Projection]meimei.Placement, 2),
		}
		if ld.WorldMap != nil {
			loc.Placements[meimei.ProjectionWorld] = *ld.WorldMap
		}
		if ld.ContinentMap != nil {
			loc.Placements[meimei.ProjectionContinent] = *ld.ContinentMap
		}
		locs = append(locs, loc)
	}
	return New(doc.Images, locs)
}

// New builds a catalog from already decoded data.
func New(images map[meimei.Projection]Bounds, locations []meimei.Location) (*Catalog, error) {
	c := &Catalog{
		images:    maps.Clone(images),
		locations: make([]meimei.Location, len(locations)),
		byID:      make(map[string]int, len(locations)),
	}
	for i, l := range locations {
		c.locations[i] = copyLocation(l)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	for i, loc := range c.locations {
		c.byID[loc.ID] = i
	}
	return c, nil
}

// Validate checks ids are unique and every placement has a positive
// tolerance and finite coordinates inside its image.
func (c *Catalog) Validate() error {
	var errs []error
	if len(c.images) == 0 {
		errs = append(errs, errors.New("no projections declared"))
	}
	for p, b := range c.images {
		if _, err := meimei.ParseProjection(string(p)); err != nil {
			errs = append(errs, err)
		}
		if !(b.Width > 0 && b.Height > 0) {
			errs = append(errs, fmt.Errorf("projection %s: image bounds %vx%v", p, b.Width, b.Height))
		}
	}

	seen := make(map[string]bool, len(c.locations))
	for i, loc := range c.locations {
		if loc.ID == "" {
			errs = append(errs, fmt.Errorf("location #%d: empty id", i))
			continue
		}
		if seen[loc.ID] {
			errs = append(errs, fmt.Errorf("location %q: duplicate id", loc.ID))
		}
		seen[loc.ID] = true
		if loc.Name == "" {
			errs = append(errs, fmt.Errorf("location %q: empty name", loc.ID))
		}

		for p, b := range c.images {
			pl, ok := loc.Placements[p]
			if !ok {
				errs = append(errs, fmt.Errorf("location %q: missing %s placement", loc.ID, p))
				continue
			}
			if !finite(pl.X) || !finite(pl.Y) || !finite(pl.ToleranceRadius) {
				errs = append(errs, fmt.Errorf("location %q: %s coordinates not finite", loc.ID, p))
				continue
			}
			if pl.ToleranceRadius <= 0 {
				errs = append(errs, fmt.Errorf("location %q: %s tolerance %v must be positive", loc.ID, p, pl.ToleranceRadius))
			}
			if pl.X < 0 || pl.Y < 0 || pl.X > b.Width || pl.Y > b.Height {
				errs = append(errs, fmt.Errorf("location %q: %s (%v,%v) outside %vx%v image", loc.ID, p, pl.X, pl.Y, b.Width, b.Height))
			}
		}
	}
	return errors.Join(errs...)
}

// List returns the locations placed in projection p, in catalog order.
// Every call returns fresh copies.
func (c *Catalog) List(p meimei.Projection) ([]meimei.Location, error) {
	if _, ok := c.images[p]; !ok {
		return nil, fmt.Errorf("%w: %q", meimei.ErrInvalidProjection, p)
	}
	locs := make([]meimei.Location, len(c.locations))
	for i, l := range c.locations {
		locs[i] = copyLocation(l)
	}
	return locs, nil
}

// ByID looks up a location. A miss wraps meimei.ErrNotFound.
func (c *Catalog) ByID(id string) (meimei.Location, error) {
	i, ok := c.byID[id]
	if !ok {
		return meimei.Location{}, fmt.Errorf("location %q: %w", id, meimei.ErrNotFound)
	}
	return copyLocation(c.locations[i]), nil
}

// CheckProjection reports whether p is declared, naming the declared ones
// when it is not.
func (c *Catalog) CheckProjection(p meimei.Projection) error {
	if _, ok := c.images[p]; !ok {
		return fmt.Errorf("%w: %q not in catalog (have %v)", meimei.ErrInvalidProjection, p, c.Projections())
	}
	return nil
}

func (c *Catalog) Len() int { return len(c.locations) }

// Projections returns the declared projections, sorted.
func (c *Catalog) Projections() []meimei.Projection {
	ps := make([]meimei.Projection, 0, len(c.images))
	for p := range c.images {
		ps = append(ps, p)
	}
	slices.Sort(ps)
	return ps
}

func (c *Catalog) Bounds(p meimei.Projection) (Bounds, bool) {
	b, ok := c.images[p]
	return b, ok
}

func copyLocation(l meimei.Location) meimei.Location {
	l.Placements = maps.Clone(l.Placements)
	return l
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
