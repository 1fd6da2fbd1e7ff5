package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel 未配置 GEMINI_MODEL 时使用
const DefaultGeminiModel = "gemini-2.5-flash"

var ErrEmptyCompletion = errors.New("model returned no text")

//go:generate mockgen -source=llm.go -destination=mocks/generator.go -package=mocks Generator

// Generator 文本生成接口，生产环境为 Gemini，测试中使用假实现
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiOption 调整客户端配置
type GeminiOption func(*genai.ClientConfig)

// WithGeminiBaseURL 覆盖 API 地址（测试用）
func WithGeminiBaseURL(baseURL string) GeminiOption {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPOptions.BaseURL = baseURL
	}
}

type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator 使用 API Key 创建 Gemini Developer API 客户端
func NewGeminiGenerator(ctx context.Context, apiKey, model string, opts ...GeminiOption) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate 发送单轮 prompt，拼接首个候选的所有文本片段
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyCompletion
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
