package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	m, err := Default()
	require.NoError(t, err)

	require.Len(t, m.Categories, 3)
	assert.Equal(t, "entradas", m.Categories[0].ID)
	assert.Len(t, m.Categories[1].Items, 3)
	assert.Equal(t, 32.9, m.Categories[1].Items[2].Price)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"不正なYAML", "categories: ["},
		{"料理IDの重複", `
categories:
  - id: a
    name: A
    items:
      - {id: "1", name: X, price: 1}
  - id: b
    name: B
    items:
      - {id: "1", name: Y, price: 2}
`},
		{"負の価格", `
categories:
  - id: a
    name: A
    items:
      - {id: "1", name: X, price: -1}
`},
		{"カテゴリ名なし", `
categories:
  - id: a
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
