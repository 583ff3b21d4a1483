package content

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
	"math-physical/internal/domain"
)

//go:embed panels.yaml
var defaultPanels []byte

// Panel is a static informational page shown on the info screen.
type Panel struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	Body  string `yaml:"body" json:"body"` // HTML fragment
}

// Panels is an ordered set of info panels.
type Panels struct {
	Panels []Panel `yaml:"panels"`
}

// Default returns the panels shipped with the binary.
func Default() Panels {
	p, err := Parse(defaultPanels)
	if err != nil {
		panic(fmt.Sprintf("embedded panels: %v", err))
	}
	return p
}

// Parse decodes a YAML panel document.
func Parse(data []byte) (Panels, error) {
	var p Panels
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Panels{}, err
	}
	return p, nil
}

// Get looks up a panel by id.
func (p Panels) Get(id string) (Panel, error) {
	for _, panel := range p.Panels {
		if panel.ID == id {
			return panel, nil
		}
	}
	return Panel{}, fmt.Errorf("%w: %q", domain.ErrPanelNotFound, id)
}

// IDs lists the panel ids in order.
func (p Panels) IDs() []string {
	ids := make([]string, 0, len(p.Panels))
	for _, panel := range p.Panels {
		ids = append(ids, panel.ID)
	}
	return ids
}
