package services

import (
	"context"
	"errors"
	"strings"
	"unicode"

	config "budget-insight-api/configs"
)

// KeywordClassifier scores the glossary keywords found in the title.
// It needs no model and backs development setups and tests.
type KeywordClassifier struct {
	categories []keywordCategory
}

type keywordCategory struct {
	label    string
	keywords []string
}

// NewKeywordClassifier indexes the glossary keywords, accents and case folded.
// The category label itself counts as a keyword.
func NewKeywordClassifier(glossary *config.CategoryGlossary) (*KeywordClassifier, error) {
	if glossary == nil || len(glossary.Categories) == 0 {
		return nil, errors.New("keyword classifier needs a category glossary")
	}
	k := &KeywordClassifier{}
	for _, c := range glossary.Categories {
		kc := keywordCategory{label: c.Label}
		for _, kw := range append([]string{c.Label}, c.Keywords...) {
			if folded := strings.Join(tokenize(kw), " "); folded != "" {
				kc.keywords = append(kc.keywords, folded)
			}
		}
		k.categories = append(k.categories, kc)
	}
	return k, nil
}

func (k *KeywordClassifier) Name() string { return "Mots-clés" }

// Classify picks the category with the most keyword hits, ties going to the
// first category of the glossary. Confidence is the winner's share of all hits.
// A title without any hit is classified as config.UnknownLabel with confidence 0.
func (k *KeywordClassifier) Classify(ctx context.Context, text string) (*Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	padded := " " + strings.Join(tokenize(text), " ") + " "
	best, bestHits, total := -1, 0, 0
	for i, c := range k.categories {
		hits := 0
		for _, kw := range c.keywords {
			if strings.Contains(padded, " "+kw+" ") {
				hits++
			}
		}
		total += hits
		if hits > bestHits {
			best, bestHits = i, hits
		}
	}

	if best < 0 {
		return &Prediction{Label: config.UnknownLabel, Confidence: 0, Backend: k.Name()}, nil
	}
	return &Prediction{
		Label:      k.categories[best].label,
		Confidence: float64(bestHits) / float64(total),
		Backend:    k.Name(),
	}, nil
}

// tokenize folds accents and case and splits on anything but letters and digits.
func tokenize(s string) []string {
	return strings.FieldsFunc(foldAccents(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
