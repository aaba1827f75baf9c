package services

import (
	"context"
	"errors"
	"fmt"

	config "budget-insight-api/configs"
	"budget-insight-api/pkg/azure"
	"budget-insight-api/pkg/resilience"

	"google.golang.org/genai"
)

// ChatCompleter is the part of the Azure OpenAI client the classifier needs.
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, messages []azure.ChatMessage, maxTokens int, temperature float32, topP float32, stream bool) (*azure.ChatCompletionResponse, error)
}

// AzureOpenAIClassifier asks an Azure OpenAI chat deployment to pick a category.
type AzureOpenAIClassifier struct {
	client   ChatCompleter
	glossary *config.CategoryGlossary
	labels   []string
	executor *resilience.Executor
}

func NewAzureOpenAIClassifier(client ChatCompleter, glossary *config.CategoryGlossary, executor *resilience.Executor) (*AzureOpenAIClassifier, error) {
	if client == nil {
		return nil, errors.New("azure classifier needs a client")
	}
	if glossary == nil {
		return nil, errors.New("azure classifier needs a category glossary")
	}
	return &AzureOpenAIClassifier{client: client, glossary: glossary, labels: glossary.Labels(), executor: executor}, nil
}

func (c *AzureOpenAIClassifier) Name() string { return "Azure OpenAI" }

func (c *AzureOpenAIClassifier) Classify(ctx context.Context, text string) (*Prediction, error) {
	messages := []azure.ChatMessage{
		{Role: "system", Content: "Tu es un classifieur de projets. Tu réponds uniquement en JSON."},
		{Role: "user", Content: c.glossary.BuildClassificationPrompt(text)},
	}

	var answer string
	err := runWith(ctx, c.executor, "classifier.azure", func(ctx context.Context) error {
		resp, err := c.client.ChatCompletion(ctx, messages, 100, 0, 1, false)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty completion")
		}
		answer = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return nil, classifierError(c.Name(), err)
	}

	label, confidence, err := parseLabelAnswer(answer, c.labels)
	if err != nil {
		return nil, classifierError(c.Name(), err)
	}
	return &Prediction{Label: label, Confidence: confidence, Backend: c.Name()}, nil
}

// GeminiClassifier asks a Gemini model for a structured category answer.
type GeminiClassifier struct {
	client   *genai.Client
	model    string
	glossary *config.CategoryGlossary
	labels   []string
	executor *resilience.Executor
}

func NewGeminiClassifier(client *genai.Client, model string, glossary *config.CategoryGlossary, executor *resilience.Executor) (*GeminiClassifier, error) {
	if client == nil {
		return nil, errors.New("gemini classifier needs a client")
	}
	if glossary == nil {
		return nil, errors.New("gemini classifier needs a category glossary")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClassifier{client: client, model: model, glossary: glossary, labels: glossary.Labels(), executor: executor}, nil
}

func (c *GeminiClassifier) Name() string { return "Gemini" }

// labelSchema constrains the answer to one of the known labels.
func labelSchema(labels []string) *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"label": {
				Type:        genai.TypeString,
				Description: "Thématique choisie, écrite à l'identique",
				Enum:        labels,
			},
			"confidence": {
				Type:        genai.TypeNumber,
				Description: "Confiance entre 0 et 1",
			},
		},
		Required: []string{"label", "confidence"},
	}
}

func (c *GeminiClassifier) Classify(ctx context.Context, text string) (*Prediction, error) {
	content := genai.NewContentFromText(c.glossary.BuildClassificationPrompt(text), genai.RoleUser)
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   labelSchema(c.labels),
	}

	var answer string
	err := runWith(ctx, c.executor, "classifier.gemini", func(ctx context.Context) error {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{content}, cfg)
		if err != nil {
			return err
		}
		answer = resp.Text()
		if answer == "" {
			return errors.New("empty answer")
		}
		return nil
	})
	if err != nil {
		return nil, classifierError(c.Name(), err)
	}

	label, confidence, err := parseLabelAnswer(answer, c.labels)
	if err != nil {
		return nil, classifierError(c.Name(), err)
	}
	return &Prediction{Label: label, Confidence: confidence, Backend: c.Name()}, nil
}

// runWith runs fn through the executor when there is one.
func runWith(ctx context.Context, executor *resilience.Executor, op string, fn func(context.Context) error) error {
	if executor == nil {
		return fn(ctx)
	}
	if err := executor.Execute(ctx, op, fn, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
