// Package demo holds the sample catalogue shown when the API returns nothing.
package demo

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"sibeo/internal/models"
)

//go:embed catalogue.yaml
var catalogueYAML []byte

// Catalogue is a read-only set of sample courses and their modules
type Catalogue struct {
	courses []models.Course
	modules map[int64][]models.Module
}

type catalogueFile struct {
	Courses []models.Course `yaml:"courses"`
	Modules []models.Module `yaml:"modules"`
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalogue
)

// Default returns the embedded catalogue
func Default() *Catalogue {
	defaultOnce.Do(func() {
		cat, err := Parse(catalogueYAML)
		if err != nil {
			panic(fmt.Sprintf("demo: embedded catalogue is invalid: %v", err))
		}
		defaultCat = cat
	})
	return defaultCat
}

// Parse builds a catalogue from YAML
func Parse(data []byte) (*Catalogue, error) {
	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalogue: %w", err)
	}

	cat := &Catalogue{
		courses: file.Courses,
		modules: make(map[int64][]models.Module),
	}
	known := make(map[int64]bool, len(file.Courses))
	for _, c := range file.Courses {
		if c.ID == 0 || c.Title == "" {
			return nil, fmt.Errorf("course without id or title in catalogue")
		}
		known[c.ID] = true
	}
	for _, m := range file.Modules {
		if !known[m.CourseID] {
			return nil, fmt.Errorf("module %d references unknown course %d", m.ID, m.CourseID)
		}
		cat.modules[m.CourseID] = append(cat.modules[m.CourseID], m)
	}
	for id := range cat.modules {
		mods := cat.modules[id]
		sort.SliceStable(mods, func(i, j int) bool { return mods[i].Order < mods[j].Order })
	}
	return cat, nil
}

// Courses returns a copy of every sample course
func (c *Catalogue) Courses() []models.Course {
	out := make([]models.Course, len(c.courses))
	copy(out, c.courses)
	return out
}

// Course returns the sample course with the given id
func (c *Catalogue) Course(id int64) (*models.Course, bool) {
	for _, course := range c.courses {
		if course.ID == id {
			found := course
			return &found, true
		}
	}
	return nil, false
}

// Modules returns a copy of a sample course's modules, or nil
func (c *Catalogue) Modules(courseID int64) []models.Module {
	mods, ok := c.modules[courseID]
	if !ok {
		return nil
	}
	out := make([]models.Module, len(mods))
	copy(out, mods)
	return out
}
