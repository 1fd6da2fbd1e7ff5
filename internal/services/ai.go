package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"parallel/internal/models"
	"parallel/internal/utils"

	"github.com/sirupsen/logrus"
)

// 生命领域，顺序即展示顺序
var LifeAreaKeys = []string{"career", "relationships", "future", "personal_growth"}

const (
	consequencesUnconfigured = "AI predictions unavailable (API key not configured)"
	consequencesInvalid      = "AI couldn't generate a valid prediction"

	personalityUnconfigured = "AI personality analysis unavailable (API key not configured)."
	personalityNoInput      = "Not enough decisions to analyze personality."
	personalityFailed       = "Unable to generate personality analysis at this time. Please try again later."

	consensusUnconfigured = "AI consensus analysis unavailable (API key not configured)."
	consensusNoInput      = "Not enough similar decisions to analyze consensus."
	consensusFailed       = "Unable to generate consensus analysis at this time. Please try again later."

	lifeAreasUnconfigured = "AI analysis unavailable (API key not configured)"
	lifeAreasNoInput      = "Not enough decisions to analyze - start making decisions!"
	lifeAreasFailed       = "Unable to generate personalized recommendation at this time."

	consensusPromptLimit = 10
	defaultAITimeout     = 20 * time.Second
)

type Consequences struct {
	Good  string `json:"good"`
	Bad   string `json:"bad"`
	Weird string `json:"weird"`
}

type LifeAreaAnalysis struct {
	LifeAreas       map[string]int    `json:"life_areas"`
	Recommendations map[string]string `json:"recommendations"`
}

// AIService 对生成模型的封装。所有方法都不返回错误，失败时降级为固定文案
type AIService struct {
	gen     Generator
	timeout time.Duration
	cache   *utils.Cache[string]
}

// NewAIService gen 为 nil 表示未配置 API Key
func NewAIService(gen Generator, timeout time.Duration) *AIService {
	if timeout <= 0 {
		timeout = defaultAITimeout
	}
	return &AIService{gen: gen, timeout: timeout}
}

// WithCache 缓存人格分析和生活领域分析的成功结果，键为 prompt 摘要
func (s *AIService) WithCache(cache *utils.Cache[string]) *AIService {
	s.cache = cache
	return s
}

func cacheKey(op, prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return op + ":" + hex.EncodeToString(sum[:])
}

func (s *AIService) cached(op, prompt string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	return s.cache.Get(cacheKey(op, prompt))
}

func (s *AIService) remember(op, prompt, text string) {
	if s.cache != nil {
		s.cache.Set(cacheKey(op, prompt), text)
	}
}

func (s *AIService) Enabled() bool {
	return s != nil && s.gen != nil
}

func (s *AIService) generate(ctx context.Context, op, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		logrus.WithError(err).WithField("op", op).Warn("AI generation failed")
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (s *AIService) PredictConsequences(ctx context.Context, decisionText string) Consequences {
	if !s.Enabled() {
		return Consequences{consequencesUnconfigured, consequencesUnconfigured, consequencesUnconfigured}
	}

	generic := Consequences{
		Good:  "Unexpected outcome awaits",
		Bad:   "There may be unforeseen challenges",
		Weird: "Something unusual might happen",
	}

	prompt := fmt.Sprintf(`A user is considering this decision: "%s".
Predict 3 consequences: 1 good, 1 bad, and 1 weird/bizarre.
Return ONLY a raw JSON object (no markdown, no code blocks) with keys: "good", "bad", "weird".
Each value should be a single sentence.`, decisionText)

	text, err := s.generate(ctx, "predict_consequences", prompt)
	if err != nil {
		return generic
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(utils.StripCodeFence(text)), &raw); err != nil {
		logrus.WithError(err).WithField("op", "predict_consequences").Warn("AI returned invalid JSON")
		return Consequences{consequencesInvalid, consequencesInvalid, consequencesInvalid}
	}

	var out Consequences
	for key, dst := range map[string]*string{"good": &out.Good, "bad": &out.Bad, "weird": &out.Weird} {
		v, ok := raw[key]
		if !ok || v == nil {
			logrus.WithField("op", "predict_consequences").Warnf("AI response missing key %q", key)
			return generic
		}
		if str, ok := v.(string); ok {
			*dst = strings.TrimSpace(str)
		} else {
			*dst = fmt.Sprint(v)
		}
	}
	return out
}

func (s *AIService) PredictPersonality(ctx context.Context, decisionTexts []string) string {
	if !s.Enabled() {
		return personalityUnconfigured
	}
	if len(decisionTexts) == 0 {
		return personalityNoInput
	}

	prompt := fmt.Sprintf(`Analyze this user's decision-making patterns based on their posted decisions:

%s

Provide a personality and character analysis. Consider:
- Risk-taking vs caution
- Impulsiveness vs deliberation
- Self-interest vs altruism
- Creativity vs practicality
- Decision-making style
- Any other notable traits

Write a concise, engaging, and positive personality report (2-3 paragraphs).
Be constructive and insightful.`, bulletList(decisionTexts))

	if text, ok := s.cached("predict_personality", prompt); ok {
		return text
	}

	text, err := s.generate(ctx, "predict_personality", prompt)
	if err != nil {
		return personalityFailed
	}
	if text == "" {
		return "Unable to generate personality analysis from the provided decisions."
	}
	s.remember("predict_personality", prompt, text)
	return text
}

func (s *AIService) GenerateConsensusRecommendation(ctx context.Context, decisionText string, similar []SimilarDecision) string {
	if !s.Enabled() {
		return consensusUnconfigured
	}
	if len(similar) == 0 {
		return consensusNoInput
	}

	prompt := fmt.Sprintf(`A user is considering this decision: "%s"

Here are similar decisions made by other users and how the community voted:

%s
Based on the community's voting patterns on these similar decisions, provide a recommendation for the user.
Consider:
- Overall community consensus
- Strength of the consensus (how lopsided the votes are)
- Any patterns in the types of decisions that get similar outcomes
- Whether this decision aligns with commonly accepted or rejected decision types

Provide a helpful, balanced recommendation (2-3 sentences) that considers both the consensus and individual circumstances.
Be encouraging and constructive.`, decisionText, FormatConsensusContext(similar))

	text, err := s.generate(ctx, "generate_consensus_recommendation", prompt)
	if err != nil {
		return consensusFailed
	}
	if text == "" {
		return "Unable to generate consensus-based recommendation."
	}
	return text
}

// FormatConsensusContext 最多取前 10 条，附带票数、多数方向与置信度
func FormatConsensusContext(similar []SimilarDecision) string {
	var sb strings.Builder
	for i, sd := range similar {
		if i >= consensusPromptLimit {
			break
		}
		a, b := sd.OptionACount, sd.OptionBCount
		labelA, labelB := sd.Decision.Label(models.ChoiceOptionA), sd.Decision.Label(models.ChoiceOptionB)

		consensus := "community was evenly split"
		switch {
		case a > b:
			consensus = fmt.Sprintf("community chose %q", labelA)
		case b > a:
			consensus = fmt.Sprintf("community chose %q", labelB)
		}

		confidence := 0.0
		if a+b > 0 {
			confidence = math.Abs(float64(a-b)) / float64(a+b) * 100
		}

		fmt.Fprintf(&sb, "%d. Decision: '%s'\n   Votes: %d %s, %d %s\n   Consensus: %s (%.1f%% confidence)\n\n",
			i+1, sd.Decision.Content, a, labelA, b, labelB, consensus, confidence)
	}
	return sb.String()
}

func (s *AIService) AnalyzeLifeAreas(ctx context.Context, decisionTexts []string) LifeAreaAnalysis {
	if !s.Enabled() {
		return uniformLifeAreas(50, lifeAreasUnconfigured)
	}
	if len(decisionTexts) == 0 {
		return uniformLifeAreas(0, lifeAreasNoInput)
	}

	prompt := fmt.Sprintf(`Analyze this user's decision-making history and provide insights about four key life areas.
Return ONLY a valid JSON object with this exact structure:

{
    "life_areas": {
        "career": <percentage 0-100>,
        "relationships": <percentage 0-100>,
        "future": <percentage 0-100>,
        "personal_growth": <percentage 0-100>
    },
    "recommendations": {
        "career": "<2-3 sentence recommendation>",
        "relationships": "<2-3 sentence recommendation>",
        "future": "<2-3 sentence recommendation>",
        "personal_growth": "<2-3 sentence recommendation>"
    }
}

User's decisions:
%s

For the percentages: Rate how well-developed/considered each area appears based on their decisions (0-100).
For recommendations: Provide personalized, actionable advice for each area based on their decision patterns.`, bulletList(decisionTexts))

	if text, ok := s.cached("analyze_life_areas", prompt); ok {
		if analysis, err := parseLifeAreas(text); err == nil {
			return analysis
		}
	}

	text, err := s.generate(ctx, "analyze_life_areas", prompt)
	if err != nil {
		return uniformLifeAreas(50, lifeAreasFailed)
	}

	analysis, err := parseLifeAreas(text)
	if err != nil {
		logrus.WithError(err).WithField("op", "analyze_life_areas").Warn("AI returned unusable analysis")
		return uniformLifeAreas(50, lifeAreasFailed)
	}
	s.remember("analyze_life_areas", prompt, text)
	return analysis
}

func parseLifeAreas(text string) (LifeAreaAnalysis, error) {
	var raw struct {
		LifeAreas       map[string]float64 `json:"life_areas"`
		Recommendations map[string]string  `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(utils.StripCodeFence(text)), &raw); err != nil {
		return LifeAreaAnalysis{}, err
	}
	if raw.LifeAreas == nil || raw.Recommendations == nil {
		return LifeAreaAnalysis{}, errors.New("missing life_areas or recommendations")
	}

	out := LifeAreaAnalysis{
		LifeAreas:       make(map[string]int, len(LifeAreaKeys)),
		Recommendations: make(map[string]string, len(LifeAreaKeys)),
	}
	for _, area := range LifeAreaKeys {
		score, ok := raw.LifeAreas[area]
		if !ok {
			score = 50
		}
		out.LifeAreas[area] = clampScore(score)

		rec := strings.TrimSpace(raw.Recommendations[area])
		if rec == "" {
			rec = fmt.Sprintf("No specific recommendation available for %s.", strings.ReplaceAll(area, "_", " "))
		}
		out.Recommendations[area] = rec
	}
	return out, nil
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 50
	}
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

func uniformLifeAreas(score int, rec string) LifeAreaAnalysis {
	out := LifeAreaAnalysis{
		LifeAreas:       make(map[string]int, len(LifeAreaKeys)),
		Recommendations: make(map[string]string, len(LifeAreaKeys)),
	}
	for _, area := range LifeAreaKeys {
		out.LifeAreas[area] = score
		out.Recommendations[area] = rec
	}
	return out
}

func bulletList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}
