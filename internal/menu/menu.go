package menu

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed menu.yaml
var defaultMenu []byte

type Item struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Price       float64 `json:"price" yaml:"price"`
	Image       string  `json:"image" yaml:"image"`
}

type Category struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Items []Item `json:"items" yaml:"items"`
}

// Menu はレストランのメニュー全体です
type Menu struct {
	Categories []Category `json:"categories" yaml:"categories"`
}

// Default は埋め込まれたメニューを読み込みます
func Default() (*Menu, error) {
	return Parse(defaultMenu)
}

// Parse はYAMLからメニューを読み込み、検証します
func Parse(data []byte) (*Menu, error) {
	var m Menu
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse menu: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate はカテゴリ・料理のIDが一意で、価格が負でないことを検証します
func (m *Menu) Validate() error {
	categories := make(map[string]bool)
	items := make(map[string]bool)
	for _, c := range m.Categories {
		if c.ID == "" || c.Name == "" {
			return fmt.Errorf("menu category must have id and name")
		}
		if categories[c.ID] {
			return fmt.Errorf("duplicate menu category %q", c.ID)
		}
		categories[c.ID] = true

		for _, item := range c.Items {
			if item.ID == "" || item.Name == "" {
				return fmt.Errorf("menu item in %q must have id and name", c.ID)
			}
			if items[item.ID] {
				return fmt.Errorf("duplicate menu item %q", item.ID)
			}
			if item.Price < 0 {
				return fmt.Errorf("menu item %q has a negative price", item.ID)
			}
			items[item.ID] = true
		}
	}
	return nil
}
