package enrich

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// DefaultModel is the chat model used for enrichment.
const DefaultModel = "o3-mini"

// SystemPrompt frames every enrichment request.
const SystemPrompt = "You are a helpful assistant that provides accurate information about organizations based on their domain names. Always return data in the exact JSON format requested."

const promptHeader = `Your task is to provide detailed organizational information for each domain.

For each domain name:
1. Thoroughly research the organization to ensure accuracy
2. Determine the headquarters location, industry classification, and company attributes
3. Provide data in the exact JSON format shown below

IMPORTANT: Accuracy is critical, especially for country codes and industry classifications. Use your knowledge of global businesses and organizations. When information isn't explicitly known, determine the most likely values based on contextual indicators in the domain name, company structure, or industry patterns.

Required JSON format for each domain:
{
  "domain": "example.com",
  "geography": {
    "country_code": "USA",  // Always use 3-letter uppercase codes: USA, GBR, DEU, etc.
    "region": "California",  // State/province/region
    "city": "San Francisco"
  },
  "organization": {
    "name": "Example Corporation",
    "industry": "Technology",  // Primary industry sector - be specific and accurate
    "sub_industry": "Software Development",  // More specialized classification
    "size": {
      "employees_range": "100-499",  // Use ranges: 1-9, 10-49, 50-99, 100-499, 500-999, 1000-4999, 5000+
      "revenue_range": "$10M-$50M"   // Use ranges: <$1M, $1M-$10M, $10M-$50M, $50M-$100M, $100M-$500M, $500M-$1B, >$1B
    },
    "status": "Private"  // Private, Public, Government, Non-profit, Educational
  }
}

For domains where specific data cannot be determined with confidence, provide the most likely value while ensuring fields are never empty. Return a valid JSON array containing an object for each domain.

I understand you'll be processing all of these domains. There are exactly {num_domains} domains in this batch, and I need information on all of them.

Domains to research and enrich:
`

// BuildPrompt returns the user prompt listing domains.
func BuildPrompt(domains []string) string {
	var b strings.Builder
	b.WriteString(strings.Replace(promptHeader, "{num_domains}", strconv.Itoa(len(domains)), 1))
	for _, d := range domains {
		b.WriteString("- ")
		b.WriteString(d)
		b.WriteString("\n")
	}
	return b.String()
}

// Completer submits one chat exchange and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// OpenAI is a Completer backed by the OpenAI chat-completion API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI returns a client for apiKey. An empty model uses DefaultModel;
// an empty baseURL uses the public API.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Model returns the configured model name.
func (o *OpenAI) Model() string {
	return o.model
}

// Complete implements Completer.
func (o *OpenAI) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: o.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: system,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}
