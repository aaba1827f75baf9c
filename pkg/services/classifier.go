package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	config "budget-insight-api/configs"
	"budget-insight-api/pkg/models"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Classifier maps a project title to a category label.
// Implementations must be safe for concurrent use.
type Classifier interface {
	// Name is the backend name shown in the analysis text.
	Name() string
	Classify(ctx context.Context, text string) (*Prediction, error)
}

// Prediction is the answer of a classification backend.
type Prediction struct {
	Label      string
	Confidence float64
	Backend    string
}

// Info turns the prediction into the fields handed to the metrics engine.
func (p *Prediction) Info() models.PredictionInfo {
	return models.PredictionInfo{
		Name:       p.Label,
		Confidence: p.Confidence,
		Analyse:    AnalysisText(p.Backend, p.Label, p.Confidence),
	}
}

// AnalysisText "Prédiction CamemBERT : Sport (confiance 0.87)".
func AnalysisText(backend, label string, confidence float64) string {
	return fmt.Sprintf("Prédiction %s : %s (confiance %.2f)", backend, label, confidence)
}

// extractJSON strips markdown fences and leading chatter from a model answer.
func extractJSON(s string) string {
	if idx := strings.Index(s, "```json"); idx != -1 {
		s = s[idx+7:]
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	} else if idx := strings.Index(s, "```"); idx != -1 {
		s = s[idx+3:]
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	}
	if idx := strings.Index(s, "{"); idx != -1 {
		s = s[idx:]
	}
	if idx := strings.LastIndex(s, "}"); idx != -1 {
		s = s[:idx+1]
	}
	return strings.TrimSpace(s)
}

// parseLabelAnswer decodes {"label": ..., "confidence": ...} from a chat model
// and maps the label onto one of labels.
func parseLabelAnswer(answer string, labels []string) (string, float64, error) {
	var out struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(extractJSON(answer)), &out); err != nil {
		return "", 0, fmt.Errorf("unreadable model answer %q: %w", answer, err)
	}
	label, ok := resolveLabel(out.Label, labels)
	if !ok {
		return "", 0, fmt.Errorf("model answered unknown category %q", out.Label)
	}
	return label, clamp01(out.Confidence), nil
}

// resolveLabel finds the label matching s, ignoring case and accents.
func resolveLabel(s string, labels []string) (string, bool) {
	key := foldAccents(s)
	if key == "" {
		return "", false
	}
	for _, l := range labels {
		if foldAccents(l) == key {
			return l, true
		}
	}
	return "", false
}

// foldAccents lowercases and removes diacritics: "Éducation" -> "education".
// Transformer chains hold state, so each call builds its own.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// classifierLabels glossary labels, else the label mapping ones.
func classifierLabels(glossary *config.CategoryGlossary, mapping *config.LabelMapping) []string {
	if glossary != nil && len(glossary.Categories) > 0 {
		return glossary.Labels()
	}
	return mapping.Labels()
}
