package summarize

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/clarity/internal/cache"
	"github.com/hyperifyio/clarity/internal/extract"
	"github.com/hyperifyio/clarity/internal/llm"
)

const (
	// DefaultModel is the chat-completion model used when none is configured.
	DefaultModel = "gpt-4o-mini"
	// MaxTokens bounds the model reply.
	MaxTokens = 1200
	// SummaryTextBudget and QuestionTextBudget cap the article text embedded
	// in each prompt, in runes.
	SummaryTextBudget  = 8000
	QuestionTextBudget = 6000
	// DefaultTimeout bounds a single model call.
	DefaultTimeout = 60 * time.Second
)

// SummarySystemPrompt mandates the JSON contract the normalizer reads.
const SummarySystemPrompt = `You are Clarity, an elite reading assistant.
Your task is to analyze the provided webpage article content and return a structured JSON response.
Follow these rules strictly:
1. Do NOT add commentary outside JSON.
2. Do NOT include markdown or code fences.
3. Do NOT invent information.
4. Only use information present in the provided text.
5. Be concise, precise, and neutral.
6. Output must be valid JSON.

Return the result in the following structure:
{
  "tldr": "One sharp, highly condensed sentence (max 25 words) capturing the core message.",
  "key_takeaways": [
    "Bullet point 1 (clear and specific)",
    "Bullet point 2",
    "Bullet point 3",
    "Bullet point 4",
    "Bullet point 5"
  ],
  "article_type": "News | Opinion | Research | Blog | Tutorial | Interview | Report | Review | Analysis | Other",
  "tone": {
    "primary": "Neutral | Critical | Optimistic | Pessimistic | Informative | Persuasive | Analytical | Emotional",
    "confidence_score": 0
  },
  "tags": ["tag1", "tag2", "tag3", "tag4", "tag5"],
  "entities": {
    "people": [{ "name": "Full Name", "role_or_context": "Short description of who they are in this article" }],
    "companies": [{ "name": "Company Name", "industry_or_context": "Short description based only on article" }],
    "products": [{ "name": "Product Name", "context": "Short description based only on article" }]
  }
}
confidence_score is an integer from 0 to 100.
For tags: extract 4-6 short, relevant topic keywords from the article (e.g. "AI", "India", "OpenAI"). No hashtag symbol needed.
List at most 5 people, 5 companies and 5 products.
If an entity category has no entries, return an empty array.`

// QuestionSystemPrompt restricts answers to the supplied article.
const QuestionSystemPrompt = "You are Clarity, a reading assistant. Answer the user's question based ONLY on the article provided. Be concise and direct. Do not invent information not present in the article."

// Client builds prompts and calls the model endpoint once per request.
// Failures are returned as ConfigurationError, APIError or TransportError
// and are never retried.
type Client struct {
	LLM    llm.Client
	APIKey string
	Model  string
	// Timeout bounds each call. Zero means DefaultTimeout.
	Timeout time.Duration
	// Cache, when set, serves repeated identical prompts from disk.
	Cache *cache.LLMCache
	// SummaryPrompt and QuestionPrompt override the default system messages.
	SummaryPrompt  string
	QuestionPrompt string
}

// Summarize asks the model for the summary JSON of an article and returns
// the raw reply text.
func (c *Client) Summarize(ctx context.Context, text, title string) (string, error) {
	system := SummarySystemPrompt
	if strings.TrimSpace(c.SummaryPrompt) != "" {
		system = c.SummaryPrompt
	}
	return c.complete(ctx, "summarize", system, SummaryUserPrompt(text, title))
}

// AnswerQuestion asks a free-form question about the article.
func (c *Client) AnswerQuestion(ctx context.Context, text, title, question string) (string, error) {
	system := QuestionSystemPrompt
	if strings.TrimSpace(c.QuestionPrompt) != "" {
		system = c.QuestionPrompt
	}
	return c.complete(ctx, "ask", system, QuestionUserPrompt(text, title, question))
}

// SummaryUserPrompt embeds the title and the first SummaryTextBudget runes.
func SummaryUserPrompt(text, title string) string {
	return "Article title: " + title + "\n\nArticle content:\n" + extract.Truncate(text, SummaryTextBudget)
}

// QuestionUserPrompt embeds the quoted title, the first QuestionTextBudget
// runes and the question.
func QuestionUserPrompt(text, title, question string) string {
	return "Article title: \"" + title + "\"\n\nArticle content:\n" + extract.Truncate(text, QuestionTextBudget) + "\n\nUser question: " + question
}

func (c *Client) model() string {
	if strings.TrimSpace(c.Model) == "" {
		return DefaultModel
	}
	return c.Model
}

func (c *Client) complete(ctx context.Context, stage, system, user string) (string, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return "", ErrMissingAPIKey
	}
	if c.LLM == nil {
		return "", &ConfigurationError{Msg: "model client not configured"}
	}
	model := c.model()
	key := cache.KeyFrom(model, system+"\n\n"+user)
	if c.Cache != nil {
		if raw, ok, _ := c.Cache.Get(ctx, key); ok {
			var cached struct {
				Content string `json:"content"`
			}
			if err := json.Unmarshal(raw, &cached); err == nil && strings.TrimSpace(cached.Content) != "" {
				log.Debug().Str("stage", stage).Str("model", model).Msg("model reply served from cache")
				return cached.Content, nil
			}
		}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Prompt bodies may hold private page text; log sizes only.
	log.Debug().Str("stage", stage).Str("model", model).Int("system_len", len(system)).Int("user_len", len(user)).Msg("model request")
	start := time.Now()
	resp, err := c.LLM.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		cerr := classify(err)
		log.Warn().Err(cerr).Str("stage", stage).Str("model", model).Dur("elapsed", time.Since(start)).Msg("model request failed")
		return "", cerr
	}
	if len(resp.Choices) == 0 {
		return "", &APIError{StatusCode: 200, Message: "model returned no choices"}
	}
	out := resp.Choices[0].Message.Content
	log.Debug().Str("stage", stage).Str("model", model).Int("reply_len", len(out)).Dur("elapsed", time.Since(start)).Msg("model reply")
	if c.Cache != nil && strings.TrimSpace(out) != "" {
		payload, _ := json.Marshal(map[string]string{"content": out})
		if err := c.Cache.Save(ctx, key, payload); err != nil {
			log.Debug().Err(err).Msg("model cache save failed")
		}
	}
	return out, nil
}

// ReadTime estimates minutes of reading at 200 words per minute, counting
// words as single-space separated fields.
func ReadTime(text string) int {
	words := len(strings.Split(text, " "))
	return (words + 199) / 200
}
