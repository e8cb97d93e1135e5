// Package llm wraps the hosted Gemini API behind a text-in/text-out
// primitive plus the prompt framings used by the editor and optimizer.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

type Client struct {
	client  *genai.Client
	timeout time.Duration
}

func NewClient(ctx context.Context, apiKey string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or api_key in the config file)")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &Client{client: client, timeout: timeout}, nil
}

// Generate sends prompt to the given model and returns the generated
// text, trimmed. One synchronous call, bounded by the per-call timeout.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	result, err := c.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("the AI is taking too long, please try again")
		}
		return "", fmt.Errorf("generating content: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("the AI returned an empty response")
	}
	return strings.TrimSpace(text), nil
}

// Ask runs the ADL assistant framing: a prose answer to the question
// about the current code, plus a code-only variant suitable for
// inserting into the editor. Two generation calls.
func (c *Client) Ask(ctx context.Context, model, code, question string) (answer, codeSuggestion string, err error) {
	prompt := fmt.Sprintf(
		"You are an expert in the ADL language. Here is the current code:\n%s\nThe user asks: %s",
		code, question,
	)
	answer, err = c.Generate(ctx, model, prompt)
	if err != nil {
		return "", "", err
	}

	codePrompt := fmt.Sprintf(
		"Here is the current code:\n%s\nGive me, as code only, a concise and relevant answer to the following question: %s",
		code, question,
	)
	codeSuggestion, err = c.Generate(ctx, model, codePrompt)
	if err != nil {
		return "", "", err
	}
	return answer, codeSuggestion, nil
}

// Optimize asks the model to rewrite the whole buffer.
func (c *Client) Optimize(ctx context.Context, model, code string) (string, error) {
	prompt := fmt.Sprintf(
		"You are an expert in ADL code optimization. Here is the code to optimize:\n%s\nOptimize this code so it is more efficient and readable.",
		code,
	)
	return c.Generate(ctx, model, prompt)
}
