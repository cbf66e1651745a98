package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/korjavin/genrequizbot/models"
)

const (
	deepseekAPIURL = "https://api.deepseek.com/v1/chat/completions"
	apiTimeoutSec  = 60
)

// DeepseekClient manages interactions with Deepseek API
type DeepseekClient struct {
	apiKey   string
	endpoint string
	http     *resty.Client
}

// NewDeepseekClient creates a new Deepseek API client
func NewDeepseekClient(apiKey string) *DeepseekClient {
	return &DeepseekClient{
		apiKey:   apiKey,
		endpoint: deepseekAPIURL,
		http:     resty.New().SetTimeout(apiTimeoutSec * time.Second),
	}
}

// WithEndpoint points the client at a different chat completions URL
func (c *DeepseekClient) WithEndpoint(url string) *DeepseekClient {
	c.endpoint = url
	return c
}

type deepseekMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type deepseekRequest struct {
	Model    string            `json:"model"`
	Messages []deepseekMessage `json:"messages"`
}

type deepseekResponse struct {
	Choices []struct {
		Message deepseekMessage `json:"message"`
	} `json:"choices"`
}

// Explain asks Deepseek for a longer explanation of a question and its right answer
func (c *DeepseekClient) Explain(ctx context.Context, genre models.Genre, question models.Question) (string, error) {
	startTime := time.Now()
	log.Printf("Requesting extended explanation for %s/%d", genre.ID, question.ID)

	correct := ""
	if question.Correct >= 0 && question.Correct < len(question.Choices) {
		correct = question.Choices[question.Correct]
	}

	prompt := fmt.Sprintf(`
I am studying with a quiz about "%s" (%s). Please help me with the following question:

Question: %s
Choices: %s
Correct answer: %s
Short explanation: %s

1. Explain in more depth why the correct answer is right
2. Briefly say why each other choice is wrong
3. Suggest a mnemonic to remember this fact

Be concise and answer in plain text.
`, genre.Name, genre.Description, question.Question, strings.Join(question.Choices, " / "), correct, question.Explanation)

	var result deepseekResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(deepseekRequest{
			Model:    "deepseek-chat",
			Messages: []deepseekMessage{{Role: "user", Content: prompt}},
		}).
		SetResult(&result).
		Post(c.endpoint)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Printf("Deepseek API request timed out after %v", time.Since(startTime))
		}
		return "", fmt.Errorf("deepseek request: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(result.Choices) == 0 {
		return "", errors.New("no choices in API response")
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	log.Printf("Explanation for %s/%d completed in %v. Content length: %d",
		genre.ID, question.ID, time.Since(startTime), len(content))
	return content, nil
}
