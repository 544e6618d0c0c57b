// Package gemini wraps the Gemini API for article relevance judgment and
// summarization.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deusflow/newsdigest/internal/cache"
	"github.com/deusflow/newsdigest/internal/config"
	"github.com/deusflow/newsdigest/internal/ratelimit"
)

type Client struct {
	client   *genai.Client
	model    string
	cache    *cache.Cache
	budget   *ratelimit.Budget
	cacheTTL time.Duration
}

// Judgment is the structured relevance assessment for one candidate.
// Fields absent from the model's reply keep their zero values: empty
// lists, 0.0 score, nil tri-state flags, empty strings.
type Judgment struct {
	Topics          []string
	RelevanceScore  float64
	IsOpinion       *bool
	IsAnalysis      *bool
	GeographicFocus string
	KeywordsMatched []string
	EvaluationNotes string
}

func NewClient(cfg *config.Config) (*Client, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		client:   client,
		model:    cfg.ModelName,
		cache:    cache.New(),
		budget:   ratelimit.NewBudget(cfg.MaxGeminiRequests),
		cacheTTL: cfg.CacheTTL,
	}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// JudgeArticle asks the model to rate one candidate against the
// preference profile and returns the parsed judgment.
func (c *Client) JudgeArticle(prefs config.Preferences, title, source, snippet string) (*Judgment, error) {
	prompt := buildJudgmentPrompt(prefs, title, source, snippet)

	key := cache.Key("judge", c.model, prompt)
	if v, ok := c.cache.Get(key); ok {
		c.budget.RecordCacheHit()
		return v.(*Judgment), nil
	}

	if !c.budget.Allow() {
		return nil, fmt.Errorf("gemini request budget exhausted (%d used)", c.budget.Used())
	}

	raw, err := c.generate(prompt)
	if err != nil {
		return nil, err
	}

	judgment, err := parseJudgment(raw)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, judgment, c.cacheTTL)
	return judgment, nil
}

// SummarizeArticle produces the markdown summary block for one article.
func (c *Client) SummarizeArticle(title, url, source, content string) (string, error) {
	content = sanitizeContent(content)
	prompt := buildSummaryPrompt(title, url, source, content)

	key := cache.Key("summary", c.model, prompt)
	if v, ok := c.cache.Get(key); ok {
		c.budget.RecordCacheHit()
		return v.(string), nil
	}

	if !c.budget.Allow() {
		return "", fmt.Errorf("gemini request budget exhausted (%d used)", c.budget.Used())
	}

	raw, err := c.generate(prompt)
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(raw)
	if summary == "" {
		return "", fmt.Errorf("empty summary from Gemini")
	}

	c.cache.Set(key, summary, c.cacheTTL)
	return summary, nil
}

func (c *Client) generate(prompt string) (string, error) {
	ctx := context.Background()
	model := c.client.GenerativeModel(c.model)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}

	return fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]), nil
}

func buildJudgmentPrompt(prefs config.Preferences, title, source, snippet string) string {
	keywords := "N/A"
	if len(prefs.Keywords) > 0 {
		keywords = strings.Join(prefs.Keywords, ", ")
	}

	return fmt.Sprintf(`As a news curator, evaluate this article candidate based on user preferences.

USER PREFERENCES:
- Topics of interest: %s
- Keywords to prioritize: %s
- Include opinion pieces: %t
- Include analysis articles: %t
- Geographic focus: %s

ARTICLE CANDIDATE:
- Title: %s
- Source: %s
- Snippet: %s

INSTRUCTIONS:
Based on the information provided, evaluate this article:
1. Is this article likely to be relevant to the user's topics of interest?
2. Does the title contain any of the user's keywords?
3. Determine if it's likely an opinion piece, analysis, or straight news
4. Estimate its geographic focus
5. Calculate an overall relevance score (0.0-1.0)

Return your evaluation as a JSON object with these fields:
- topics: list of likely topics covered
- relevance_score: float between 0-1
- is_opinion: boolean or null if can't determine
- is_analysis: boolean or null if can't determine
- geographic_focus: string or null
- keywords_matched: list of matched keywords
- evaluation_notes: string explaining your reasoning

Return ONLY the JSON object, no other text.`,
		strings.Join(prefs.Topics, ", "),
		keywords,
		prefs.IncludeOpinion,
		prefs.IncludeAnalysis,
		strings.Join(prefs.GeographicFocus, ", "),
		title,
		source,
		snippet,
	)
}

func buildSummaryPrompt(title, url, source, content string) string {
	return fmt.Sprintf(`Summarize this news article for a daily digest.

ARTICLE:
Title: %s
Source: %s
URL: %s
Content: %s

REQUIREMENTS:
- Start with a markdown heading: ## %s
- Follow with the source link on its own line: [%s](%s)
- Then 2-4 sentences capturing the key facts, no filler phrases.
- Do not invent details that are not in the content.

Return only the formatted markdown block.`,
		title, source, url, content, title, source, url)
}

// judgmentPayload mirrors the model's JSON reply. Every field is optional.
type judgmentPayload struct {
	Topics          []string `json:"topics"`
	RelevanceScore  *float64 `json:"relevance_score"`
	IsOpinion       *bool    `json:"is_opinion"`
	IsAnalysis      *bool    `json:"is_analysis"`
	GeographicFocus *string  `json:"geographic_focus"`
	KeywordsMatched []string `json:"keywords_matched"`
	EvaluationNotes string   `json:"evaluation_notes"`
}

// parseJudgment extracts the JSON object from the model reply and coerces
// it into a Judgment, defaulting missing fields.
func parseJudgment(raw string) (*Judgment, error) {
	body := extractJSON(raw)
	if body == "" {
		return nil, fmt.Errorf("no JSON object in Gemini response")
	}

	var payload judgmentPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse judgment JSON: %w", err)
	}

	judgment := &Judgment{
		Topics:          payload.Topics,
		IsOpinion:       payload.IsOpinion,
		IsAnalysis:      payload.IsAnalysis,
		KeywordsMatched: payload.KeywordsMatched,
		EvaluationNotes: payload.EvaluationNotes,
	}
	if judgment.Topics == nil {
		judgment.Topics = []string{}
	}
	if judgment.KeywordsMatched == nil {
		judgment.KeywordsMatched = []string{}
	}
	if payload.RelevanceScore != nil {
		judgment.RelevanceScore = *payload.RelevanceScore
	}
	if payload.GeographicFocus != nil {
		judgment.GeographicFocus = *payload.GeographicFocus
	}

	return judgment, nil
}

// extractJSON strips markdown fences and returns the outermost JSON
// object in the reply.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

// sanitizeContent collapses whitespace and bounds prompt size.
func sanitizeContent(content string) string {
	content = strings.ReplaceAll(content, "\r", "")
	content = strings.Join(strings.Fields(content), " ")

	maxChars := 6000
	if utf8.RuneCountInString(content) > maxChars {
		runes := []rune(content)
		trimmed := string(runes[:maxChars])
		// cut at a sentence boundary when one exists past a useful size
		if idx := strings.LastIndex(trimmed, ". "); idx > 1200 {
			trimmed = trimmed[:idx+1]
		}
		content = trimmed + " [TRUNCATED]"
	}
	return content
}

// FallbackSummary builds a crude extractive summary when the model is
// unavailable for an article.
func FallbackSummary(title, url, content string) string {
	c := strings.TrimSpace(content)

	var picked []string
	for _, s := range strings.Split(c, ".") {
		s = strings.TrimSpace(s)
		if len(s) < 25 {
			continue
		}
		picked = append(picked, s)
		if len(picked) >= 2 {
			break
		}
	}

	body := strings.Join(picked, ". ")
	if body == "" {
		if len(c) > 160 {
			body = c[:160] + "..."
		} else {
			body = c
		}
	} else {
		body += "."
	}

	return fmt.Sprintf("## %s\n%s\n%s", title, url, body)
}
