// Package catalog provides the read-only room and product catalogs.
//
// Catalogs are YAML files (rooms.yaml, products.yaml) under a configured
// directory, memoized process-wide. Tests mutate files and call Clear().
// When no files exist the built-in demo catalog is served, so a fresh
// checkout runs without provisioning.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Room is one bookable space.
type Room struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Capacity int      `yaml:"capacity" json:"capacity"`
	Features []string `yaml:"features" json:"features"`
	DayRate  float64  `yaml:"day_rate" json:"day_rate"`
}

// Product is one offerable extra (catering, equipment).
// Unit is "per_person" or "per_event".
type Product struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Category string   `yaml:"category" json:"category"`
	Unit     string   `yaml:"unit" json:"unit"`
	Price    float64  `yaml:"price" json:"price"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Catalog bundles both lookups.
type Catalog struct {
	Rooms    []Room    `yaml:"rooms" json:"rooms"`
	Products []Product `yaml:"products" json:"products"`
}

var (
	mu    sync.Mutex
	cache = map[string]*Catalog{}
)

// Load returns the catalog for dir, memoized. Missing files fall back to
// the built-in demo catalog.
func Load(dir string) (*Catalog, error) {
	mu.Lock()
	defer mu.Unlock()

	if c, ok := cache[dir]; ok {
		return c, nil
	}

	c := &Catalog{}
	roomsPath := filepath.Join(dir, "rooms.yaml")
	productsPath := filepath.Join(dir, "products.yaml")

	if err := readYAML(roomsPath, c); err != nil {
		return nil, fmt.Errorf("load rooms catalog: %w", err)
	}
	if err := readYAML(productsPath, c); err != nil {
		return nil, fmt.Errorf("load products catalog: %w", err)
	}

	if len(c.Rooms) == 0 {
		c.Rooms = defaultRooms()
	}
	if len(c.Products) == 0 {
		c.Products = defaultProducts()
	}

	cache[dir] = c
	return c, nil
}

// Clear drops the memoized catalogs. Tests use this after mutating files.
func Clear() {
	mu.Lock()
	defer mu.Unlock()
	cache = map[string]*Catalog{}
}

func readYAML(path string, into *Catalog) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, into)
}

// RoomByName resolves a room by ID or name, case-insensitive.
func (c *Catalog) RoomByName(name string) *Room {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil
	}
	for i := range c.Rooms {
		if strings.ToLower(c.Rooms[i].Name) == needle || strings.ToLower(c.Rooms[i].ID) == needle {
			return &c.Rooms[i]
		}
	}
	return nil
}

// RoomNames returns all room names, used by the keyword detection tier.
func (c *Catalog) RoomNames() []string {
	names := make([]string, 0, len(c.Rooms))
	for _, r := range c.Rooms {
		names = append(names, r.Name)
	}
	return names
}

// RankRooms returns rooms that hold the given capacity, smallest adequate
// first, preferring feature matches. A zero capacity matches every room.
func (c *Catalog) RankRooms(capacity int, features []string) []Room {
	var out []Room
	for _, r := range c.Rooms {
		if capacity > 0 && r.Capacity < capacity {
			continue
		}
		out = append(out, r)
	}
	score := func(r Room) int {
		n := 0
		for _, want := range features {
			for _, have := range r.Features {
				if strings.EqualFold(want, have) {
					n++
				}
			}
		}
		return n
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := score(out[i]), score(out[j])
		if si != sj {
			return si > sj
		}
		return out[i].Capacity < out[j].Capacity
	})
	return out
}

// MatchProducts scores catalog products against free text by keyword hits.
// Returns products whose score meets minScore (fraction of keywords hit,
// with a single hit scoring 1.0 for single-keyword products).
func (c *Catalog) MatchProducts(text string, minScore float64) []Product {
	lower := strings.ToLower(text)
	var out []Product
	for _, p := range c.Products {
		if len(p.Keywords) == 0 {
			continue
		}
		hits := 0
		for _, kw := range p.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		score := float64(hits) / float64(len(p.Keywords))
		if hits >= 1 && score < minScore {
			// A direct name mention always qualifies.
			if !strings.Contains(lower, strings.ToLower(p.Name)) {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// ProductByID resolves a product, nil when unknown.
func (c *Catalog) ProductByID(id string) *Product {
	for i := range c.Products {
		if c.Products[i].ID == id {
			return &c.Products[i]
		}
	}
	return nil
}

// CateringSummary renders the catering categories for the stateless Q&A
// endpoint and Q&A tail sections.
func (c *Catalog) CateringSummary() string {
	var lines []string
	for _, p := range c.Products {
		if p.Category != "catering" {
			continue
		}
		unit := "per event"
		if p.Unit == "per_person" {
			unit = "per person"
		}
		lines = append(lines, fmt.Sprintf("- %s (%.2f %s)", p.Name, p.Price, unit))
	}
	if len(lines) == 0 {
		return "We currently offer no catering packages."
	}
	return "Our catering options:\n" + strings.Join(lines, "\n")
}

func defaultRooms() []Room {
	return []Room{
		{ID: "room-a", Name: "Room A", Capacity: 40, Features: []string{"projector", "stage"}, DayRate: 1200},
		{ID: "room-b", Name: "Room B", Capacity: 80, Features: []string{"projector", "terrace"}, DayRate: 2000},
		{ID: "room-c", Name: "Room C", Capacity: 20, Features: []string{"whiteboard"}, DayRate: 600},
		{ID: "room-d", Name: "Room D", Capacity: 150, Features: []string{"stage", "bar"}, DayRate: 3500},
		{ID: "room-e", Name: "Room E", Capacity: 60, Features: []string{"terrace", "bar"}, DayRate: 1600},
	}
}

func defaultProducts() []Product {
	return []Product{
		{ID: "cat-buffet", Name: "Standard Buffet", Category: "catering", Unit: "per_person", Price: 45, Keywords: []string{"buffet", "lunch", "dinner"}},
		{ID: "cat-canapes", Name: "Canapés & Reception", Category: "catering", Unit: "per_person", Price: 28, Keywords: []string{"canape", "canapés", "reception", "appetizer"}},
		{ID: "cat-drinks", Name: "Drinks Package", Category: "catering", Unit: "per_person", Price: 22, Keywords: []string{"drinks", "beverage", "wine", "beer"}},
		{ID: "eq-av", Name: "AV Package", Category: "equipment", Unit: "per_event", Price: 350, Keywords: []string{"av", "audio", "microphone", "sound"}},
		{ID: "eq-stage", Name: "Stage Lighting", Category: "equipment", Unit: "per_event", Price: 500, Keywords: []string{"lighting", "stage light"}},
	}
}
