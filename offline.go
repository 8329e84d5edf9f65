package elearn

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OfflineGenerator produces practice questions locally when the
// platform API is unavailable, so a backend outage degrades to slower
// generation rather than no generation. It is optional; without an API
// key the workflow falls straight through to the fixed fallback set.
type OfflineGenerator struct {
	client *openai.Client
	model  string
}

// NewOfflineGenerator creates a generator backed by the OpenAI API.
// Model may be empty to use the default.
func NewOfflineGenerator(apiKey, model string) *OfflineGenerator {
	if model == "" {
		model = openai.GPT4o
	}
	return &OfflineGenerator{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// GenerateQuestions generates req.NumberOfQuestions questions about
// topic, honoring the requested difficulty and question type.
func (g *OfflineGenerator) GenerateQuestions(ctx context.Context, topic string, req GenerationRequest) ([]Question, error) {
	Log.Debug("generating questions locally",
		zap.String("topic", topic),
		zap.Int("count", req.NumberOfQuestions))

	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You are an expert tutor generating practice questions for a student. Multiple choice questions have exactly 4 options; short answer questions have a concise expected answer.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: g.buildPrompt(topic, req),
				},
			},
			Tools: []openai.Tool{
				{
					Type: openai.ToolTypeFunction,
					Function: &openai.FunctionDefinition{
						Name:        "submit_questions",
						Description: "Submit generated practice questions",
						Parameters: map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"questions": map[string]interface{}{
									"type": "array",
									"items": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"text": map[string]interface{}{
												"type":        "string",
												"description": "The question text",
											},
											"type": map[string]interface{}{
												"type":        "string",
												"enum":        []string{"multiple_choice", "short_answer"},
												"description": "How the question is answered",
											},
											"options": map[string]interface{}{
												"type": "array",
												"items": map[string]interface{}{
													"type": "string",
												},
												"description": "Exactly 4 options; multiple choice only",
											},
											"correct_answer": map[string]interface{}{
												"type":        "string",
												"description": "The correct option verbatim, or the expected short answer",
											},
											"explanation": map[string]interface{}{
												"type":        "string",
												"description": "Brief explanation of why the answer is correct",
											},
										},
										"required": []string{"text", "type", "correct_answer", "explanation"},
									},
								},
							},
							"required": []string{"questions"},
						},
					},
				},
			},
			ToolChoice: openai.ToolChoice{
				Type: openai.ToolTypeFunction,
				Function: openai.ToolFunction{
					Name: "submit_questions",
				},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from model")
	}
	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("no tool calls in response")
	}
	toolCall := choice.Message.ToolCalls[0]
	if toolCall.Function.Name != "submit_questions" {
		return nil, fmt.Errorf("unexpected tool call: %s", toolCall.Function.Name)
	}

	var toolArgs struct {
		Questions []struct {
			Text          string   `json:"text"`
			Type          string   `json:"type"`
			Options       []string `json:"options"`
			CorrectAnswer string   `json:"correct_answer"`
			Explanation   string   `json:"explanation"`
		} `json:"questions"`
	}
	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &toolArgs); err != nil {
		return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
	}

	questions := make([]Question, 0, len(toolArgs.Questions))
	for _, q := range toolArgs.Questions {
		qType := QuestionType(q.Type)
		if qType == TypeMultipleChoice && len(q.Options) != 4 {
			Log.Debug("dropping generated question without 4 options", zap.String("text", q.Text))
			continue
		}
		questions = append(questions, Question{
			ID:            NewID(),
			Text:          q.Text,
			Type:          qType,
			Difficulty:    req.Difficulty,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("model returned no usable questions")
	}
	if len(questions) > req.NumberOfQuestions {
		questions = questions[:req.NumberOfQuestions]
	}
	return questions, nil
}

func (g *OfflineGenerator) buildPrompt(topic string, req GenerationRequest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Generate exactly %d practice questions about: %s\n\n", req.NumberOfQuestions, topic))
	sb.WriteString(fmt.Sprintf("Difficulty: %s\n", req.Difficulty))

	switch req.QuestionType {
	case TypeMultipleChoice:
		sb.WriteString("Every question must be multiple choice with exactly 4 options.\n")
	case TypeShortAnswer:
		sb.WriteString("Every question must be short answer with a concise expected answer.\n")
	default:
		sb.WriteString("Mix multiple choice (4 options) and short answer questions roughly evenly.\n")
	}

	sb.WriteString("\nRequirements:\n")
	sb.WriteString("1. Questions must test understanding, not just memorization\n")
	sb.WriteString("2. The correct answer must never appear in the question text\n")
	sb.WriteString("3. For multiple choice, incorrect options must be plausible but clearly wrong\n")
	sb.WriteString("4. Explanations must say WHY the answer is correct, not just restate it\n")

	return sb.String()
}
