package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategoryGlossary describes the categories a project title can be classified into.
// It feeds the keyword classifier and the prompt of the LLM classifiers.
type CategoryGlossary struct {
	Version      string          `yaml:"version"`
	Language     string          `yaml:"language"`
	Instructions []string        `yaml:"instructions"`
	Categories   []CategoryEntry `yaml:"categories"`
}

// CategoryEntry one category with the words that point at it.
type CategoryEntry struct {
	Label       string   `yaml:"label"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
}

// LoadCategoryGlossary reads a glossary YAML file.
func LoadCategoryGlossary(path string) (*CategoryGlossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category glossary: %w", err)
	}
	return ParseCategoryGlossary(data)
}

// ParseCategoryGlossary decodes a glossary and rejects empty or duplicate labels.
func ParseCategoryGlossary(data []byte) (*CategoryGlossary, error) {
	var g CategoryGlossary
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse category glossary yaml: %w", err)
	}
	if len(g.Categories) == 0 {
		return nil, fmt.Errorf("category glossary has no categories")
	}
	seen := make(map[string]bool, len(g.Categories))
	for i, c := range g.Categories {
		label := strings.TrimSpace(c.Label)
		if label == "" {
			return nil, fmt.Errorf("category #%d has no label", i+1)
		}
		if seen[strings.ToLower(label)] {
			return nil, fmt.Errorf("category %q is declared twice", label)
		}
		seen[strings.ToLower(label)] = true
		g.Categories[i].Label = label
	}
	return &g, nil
}

// Labels returns the category labels in file order.
func (g *CategoryGlossary) Labels() []string {
	out := make([]string, 0, len(g.Categories))
	for _, c := range g.Categories {
		out = append(out, c.Label)
	}
	return out
}

// BuildClassificationPrompt asks a chat model to pick one category for title
// and to answer with {"label": "...", "confidence": 0.0-1.0}.
func (g *CategoryGlossary) BuildClassificationPrompt(title string) string {
	var sb strings.Builder

	sb.WriteString("Tu classes des projets du budget participatif dans une thématique.\n\n")

	sb.WriteString("## Thématiques\n")
	for _, c := range g.Categories {
		sb.WriteString(fmt.Sprintf("- %s", c.Label))
		if c.Description != "" {
			sb.WriteString(fmt.Sprintf(" : %s", c.Description))
		}
		if len(c.Keywords) > 0 {
			sb.WriteString(fmt.Sprintf(" (mots-clés : %s)", strings.Join(c.Keywords, ", ")))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if len(g.Instructions) > 0 {
		sb.WriteString("## Consignes\n")
		for _, in := range g.Instructions {
			sb.WriteString(fmt.Sprintf("- %s\n", in))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Projet\n")
	sb.WriteString(fmt.Sprintf("Titre : %q\n\n", title))
	sb.WriteString(`Réponds uniquement en JSON : {"label": "<une thématique de la liste>", "confidence": <nombre entre 0 et 1>}`)
	sb.WriteString("\n")

	return sb.String()
}
