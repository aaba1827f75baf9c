package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// UnknownLabel is returned for class indexes missing from the mapping.
const UnknownLabel = "Inconnu"

// LabelMapping maps classifier output indexes to category labels.
// The file layout is the one written by the training pipeline:
//
//	{"num_classes": 3, "num_to_label": {"0": "Culture", "1": "Sport", "2": "Environnement"}}
type LabelMapping struct {
	NumClasses int               `json:"num_classes"`
	NumToLabel map[string]string `json:"num_to_label"`
}

// LoadLabelMapping reads and checks a label mapping file.
func LoadLabelMapping(path string) (*LabelMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label mapping: %w", err)
	}
	return ParseLabelMapping(data)
}

// ParseLabelMapping decodes a label mapping document.
func ParseLabelMapping(data []byte) (*LabelMapping, error) {
	var m LabelMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse label mapping: %w", err)
	}
	if len(m.NumToLabel) == 0 {
		return nil, fmt.Errorf("label mapping has no labels")
	}
	for k := range m.NumToLabel {
		if _, err := strconv.Atoi(k); err != nil {
			return nil, fmt.Errorf("label mapping key %q is not an index", k)
		}
	}
	if m.NumClasses == 0 {
		m.NumClasses = len(m.NumToLabel)
	}
	return &m, nil
}

// Label returns the label of class i, UnknownLabel when absent.
func (m *LabelMapping) Label(i int) string {
	if m == nil {
		return UnknownLabel
	}
	if label, ok := m.NumToLabel[strconv.Itoa(i)]; ok && label != "" {
		return label
	}
	return UnknownLabel
}

// Labels returns the labels ordered by class index.
func (m *LabelMapping) Labels() []string {
	if m == nil {
		return nil
	}
	idx := make([]int, 0, len(m.NumToLabel))
	for k := range m.NumToLabel {
		i, _ := strconv.Atoi(k)
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, m.NumToLabel[strconv.Itoa(i)])
	}
	return out
}
