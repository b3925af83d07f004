package grading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mind-engage/denken-trainer/internal/quiz"
)

// Completer sends a single-turn prompt to a language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const DefaultMaxTokens = 1500

// OpenAICompleter talks to any OpenAI-compatible chat completions endpoint.
type OpenAICompleter struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func NewOpenAICompleter(apiKey, baseURL, model string) *OpenAICompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAICompleter{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: DefaultMaxTokens,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// AIGrader asks a language model to grade a free-text answer against the
// model answer with a fixed rubric.
type AIGrader struct {
	completer Completer
	timeout   time.Duration
}

type aiVerdict struct {
	Score        *float64 `json:"score"`
	IsCorrect    *bool    `json:"is_correct"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

func (g *AIGrader) Grade(ctx context.Context, q quiz.Question, answer string) (quiz.Feedback, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	reply, err := g.completer.Complete(ctx, BuildPrompt(q, answer))
	if err != nil {
		return quiz.Feedback{}, err
	}

	var v aiVerdict
	if err := json.Unmarshal([]byte(extractJSON(reply)), &v); err != nil {
		return quiz.Feedback{}, fmt.Errorf("decode grader reply: %w", err)
	}
	if v.Score == nil {
		return quiz.Feedback{}, errors.New("grader reply has no score")
	}

	score := clamp(int(math.Round(*v.Score)), 0, 100)
	correct := score >= aiPassScore
	if v.IsCorrect != nil {
		correct = *v.IsCorrect
	}
	return quiz.Feedback{
		Score:        score,
		IsCorrect:    correct,
		Feedback:     v.Feedback,
		Strengths:    nonNil(v.Strengths),
		Improvements: nonNil(v.Improvements),
		Method:       quiz.MethodAI,
	}, nil
}

// BuildPrompt renders the grading request for q and the submitted answer.
func BuildPrompt(q quiz.Question, answer string) string {
	var b strings.Builder
	b.WriteString("あなたは電験三種の試験採点者です。以下の問題に対する受験生の回答を評価してください。\n\n")
	fmt.Fprintf(&b, "【問題】\n%s\n\n", q.Prompt)
	fmt.Fprintf(&b, "【模範解答】\n%s\n\n", q.Answer)
	if q.HasExplanation() {
		fmt.Fprintf(&b, "【解説】%s\n\n", q.Explanation)
	}
	fmt.Fprintf(&b, "【受験生の回答】\n%s\n\n", answer)
	b.WriteString(`以下の基準で評価し、JSON形式で返答してください:
- 70点以上で合格
- 主要なポイントをカバーしているか
- 技術的に正確か
- 説明が論理的か

{
    "score": 0-100の整数,
    "is_correct": true/false,
    "feedback": "200文字以内の具体的なフィードバック",
    "strengths": ["良い点1", "良い点2"],
    "improvements": ["改善点1", "改善点2"]
}
`)
	return b.String()
}

// extractJSON strips a markdown code fence if present and narrows to the
// outermost JSON object.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if i := strings.Index(content, "```"); i != -1 {
		inner := content[i+3:]
		if end := strings.Index(inner, "```"); end != -1 {
			inner = inner[:end]
		}
		content = strings.TrimLeftFunc(inner, func(r rune) bool {
			return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
		})
	}
	content = strings.TrimSpace(content)
	if s := strings.Index(content, "{"); s != -1 {
		if e := strings.LastIndex(content, "}"); e > s {
			content = content[s : e+1]
		}
	}
	return strings.TrimSpace(content)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
