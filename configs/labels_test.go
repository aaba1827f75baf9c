package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabelMapping(t *testing.T) {
	m, err := ParseLabelMapping([]byte(`{"num_classes": 3, "num_to_label": {"2": "Sport", "0": "Culture", "1": "Environnement"}}`))
	require.NoError(t, err)

	assert.Equal(t, 3, m.NumClasses)
	assert.Equal(t, "Environnement", m.Label(1))
	assert.Equal(t, UnknownLabel, m.Label(7))
	assert.Equal(t, UnknownLabel, m.Label(-1))
	assert.Equal(t, []string{"Culture", "Environnement", "Sport"}, m.Labels())
}

func TestParseLabelMappingErrors(t *testing.T) {
	for _, doc := range []string{
		`not json`,
		`{"num_classes": 0, "num_to_label": {}}`,
		`{"num_to_label": {"zero": "Culture"}}`,
	} {
		_, err := ParseLabelMapping([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestLoadLabelMappingShippedFile(t *testing.T) {
	m, err := LoadLabelMapping("label_mapping.json")
	require.NoError(t, err)
	assert.Equal(t, m.NumClasses, len(m.Labels()))
}

func TestNilLabelMapping(t *testing.T) {
	var m *LabelMapping
	assert.Equal(t, UnknownLabel, m.Label(0))
	assert.Nil(t, m.Labels())
}

func TestCategoryGlossary(t *testing.T) {
	g, err := LoadCategoryGlossary("category_glossary.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, g.Categories)

	labels := g.Labels()
	assert.Contains(t, labels, "Environnement")

	prompt := g.BuildClassificationPrompt("Végétaliser la cour de l'école")
	assert.Contains(t, prompt, "Environnement")
	assert.Contains(t, prompt, "Végétaliser la cour")
	assert.Contains(t, prompt, `"confidence"`)

	// shipped glossary and label mapping describe the same categories
	m, err := LoadLabelMapping("label_mapping.json")
	require.NoError(t, err)
	assert.ElementsMatch(t, m.Labels(), labels)
}

func TestParseCategoryGlossaryErrors(t *testing.T) {
	for _, doc := range []string{
		"categories: []",
		"categories:\n  - label: \"\"\n",
		"categories:\n  - label: Sport\n  - label: sport\n",
		"categories: [",
	} {
		_, err := ParseCategoryGlossary([]byte(doc))
		assert.Error(t, err, doc)
	}
}
