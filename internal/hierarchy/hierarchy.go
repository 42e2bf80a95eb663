// Package hierarchy maps statutes onto a static category taxonomy and
// builds the relationship graph shown by the dashboard.
package hierarchy

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// OtherCategory is assigned to statutes missing from the taxonomy.
const OtherCategory = "기타"

var otherCategory = Category{Name: OtherCategory, Level: 2, Color: "#A9A9A9", Description: "기타 법령"}

//go:embed hierarchy.yaml
var defaultYAML []byte

type Category struct {
	Name        string `yaml:"name" json:"name"`
	Level       int    `yaml:"level" json:"level"`
	Color       string `yaml:"color" json:"color"`
	Description string `yaml:"description" json:"description"`
}

type Law struct {
	Name        string   `yaml:"name" json:"name"`
	Category    string   `yaml:"category" json:"category"`
	Description string   `yaml:"description" json:"description"`
	Related     []string `yaml:"related" json:"related"`
}

// Info is the resolved taxonomy entry for a queried name. FullName is the
// taxonomy name the query matched, or the query itself when unmatched.
type Info struct {
	FullName     string   `json:"full_name"`
	Category     string   `json:"category"`
	Description  string   `json:"description"`
	Related      []string `json:"related"`
	CategoryInfo Category `json:"category_info"`
	Known        bool     `json:"known"`
}

type document struct {
	Categories []Category `yaml:"categories"`
	Laws       []Law      `yaml:"laws"`
}

// Hierarchy is an immutable taxonomy. Safe for concurrent use.
type Hierarchy struct {
	categories []Category
	catIndex   map[string]Category
	laws       []Law
	lawIndex   map[string]int
}

// Parse decodes a taxonomy document. Every law must name a known category.
func Parse(data []byte) (*Hierarchy, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("hierarchy: decode: %w", err)
	}
	h := &Hierarchy{
		categories: doc.Categories,
		catIndex:   make(map[string]Category, len(doc.Categories)),
		laws:       doc.Laws,
		lawIndex:   make(map[string]int, len(doc.Laws)),
	}
	for _, c := range doc.Categories {
		h.catIndex[c.Name] = c
	}
	for i, l := range doc.Laws {
		if _, ok := h.catIndex[l.Category]; !ok {
			return nil, fmt.Errorf("hierarchy: law %q has unknown category %q", l.Name, l.Category)
		}
		if _, dup := h.lawIndex[l.Name]; dup {
			return nil, fmt.Errorf("hierarchy: duplicate law %q", l.Name)
		}
		h.lawIndex[l.Name] = i
	}
	return h, nil
}

var (
	defaultOnce sync.Once
	defaultH    *Hierarchy
)

// Default returns the embedded education statute taxonomy.
func Default() *Hierarchy {
	defaultOnce.Do(func() {
		h, err := Parse(defaultYAML)
		if err != nil {
			panic(err)
		}
		defaultH = h
	})
	return defaultH
}

// Info resolves name by exact match, then by the first taxonomy entry
// containing it, else the 기타 fallback.
func (h *Hierarchy) Info(name string) Info {
	if i, ok := h.lawIndex[name]; ok {
		return h.info(h.laws[i])
	}
	if name != "" {
		for _, l := range h.laws {
			if strings.Contains(l.Name, name) {
				return h.info(l)
			}
		}
	}
	return Info{
		FullName:     name,
		Category:     OtherCategory,
		Description:  "미분류 법령",
		Related:      []string{},
		CategoryInfo: otherCategory,
	}
}

func (h *Hierarchy) info(l Law) Info {
	related := append([]string{}, l.Related...)
	return Info{
		FullName:     l.Name,
		Category:     l.Category,
		Description:  l.Description,
		Related:      related,
		CategoryInfo: h.catIndex[l.Category],
		Known:        true,
	}
}

// Related lists the statutes linked to name.
func (h *Hierarchy) Related(name string) []string {
	return h.Info(name).Related
}

// Categories returns every category in taxonomy order.
func (h *Hierarchy) Categories() []Category {
	return append([]Category{}, h.categories...)
}

// ByCategory lists the statutes filed under category.
func (h *Hierarchy) ByCategory(category string) []string {
	var out []string
	for _, l := range h.laws {
		if l.Category == category {
			out = append(out, l.Name)
		}
	}
	return out
}

// Node status values.
const (
	StatusNormal  = "normal"
	StatusTracked = "tracked"
	StatusUpdated = "updated"
)

type Node struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Level       int    `json:"level"`
	Status      string `json:"status"`
}

type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// GraphData is the node-link form consumed by the dashboard.
type GraphData struct {
	Nodes      []Node              `json:"nodes"`
	Links      []Link              `json:"links"`
	Categories map[string]Category `json:"categories"`
}

var statusRank = map[string]int{StatusNormal: 0, StatusTracked: 1, StatusUpdated: 2}

// Graph builds nodes for the tracked statutes and everything related to
// them. A node is tracked when its query or full name is tracked, and
// updated when it is also in updated. Links are undirected and emitted once
// with Source < Target.
func (h *Hierarchy) Graph(tracked, updated []string) GraphData {
	trackedSet := toSet(tracked)
	updatedSet := toSet(updated)

	queries := toSet(tracked)
	for _, name := range tracked {
		for _, r := range h.Related(name) {
			queries[r] = struct{}{}
		}
	}
	names := make([]string, 0, len(queries))
	for n := range queries {
		names = append(names, n)
	}
	sort.Strings(names)

	g := GraphData{Nodes: []Node{}, Links: []Link{}, Categories: map[string]Category{}}
	nodeAt := map[string]int{}
	infos := make([]Info, len(names))

	for i, name := range names {
		info := h.Info(name)
		infos[i] = info

		status := StatusNormal
		if has(trackedSet, name, info.FullName) {
			status = StatusTracked
			if has(updatedSet, name, info.FullName) {
				status = StatusUpdated
			}
		}

		if at, ok := nodeAt[info.FullName]; ok {
			if statusRank[status] > statusRank[g.Nodes[at].Status] {
				g.Nodes[at].Status = status
			}
			continue
		}
		nodeAt[info.FullName] = len(g.Nodes)
		g.Nodes = append(g.Nodes, Node{
			ID:          info.FullName,
			Name:        info.FullName,
			Category:    info.Category,
			Description: info.Description,
			Color:       info.CategoryInfo.Color,
			Level:       info.CategoryInfo.Level,
			Status:      status,
		})
		g.Categories[info.Category] = info.CategoryInfo
	}

	seen := map[Link]bool{}
	for _, info := range infos {
		for _, target := range info.Related {
			if _, ok := nodeAt[target]; !ok || info.FullName == target {
				continue
			}
			l := Link{Source: info.FullName, Target: target}
			if l.Source > l.Target {
				l.Source, l.Target = l.Target, l.Source
			}
			if !seen[l] {
				seen[l] = true
				g.Links = append(g.Links, l)
			}
		}
	}
	return g
}

func toSet(names []string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func has(set map[string]struct{}, names ...string) bool {
	for _, n := range names {
		if _, ok := set[n]; ok {
			return true
		}
	}
	return false
}
