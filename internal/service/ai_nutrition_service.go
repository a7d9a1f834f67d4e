package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/macrolog/internal/locale"
	"github.com/macrolog/internal/logging"
	"github.com/macrolog/internal/metrics"
	"github.com/macrolog/internal/nutrition"
	"go.uber.org/zap"
)

const (
	AIActionAnalyze  = "analyze"
	AIActionRecipes  = "recipes"
	AIActionMealPlan = "mealplan"
	AIActionChat     = "chat"

	maxChatTurns        = 20
	maxChatMessageRunes = 4000
)

var (
	// ErrAIRequestInProgress 同类请求尚未完成
	ErrAIRequestInProgress = errors.New("ai request already in progress")
	// ErrAIMalformedResponse 模型输出无法解析为期望的结构
	ErrAIMalformedResponse = errors.New("ai response is malformed")
)

const analyzeSystemPrompt = `你是一名营养师。识别图片中的每一种食物并估算该份量的营养。
只输出 JSON：{"items":[{"name":string,"calories":number,"protein":number,"carbs":number,"fat":number,"sugar":number}]}。
克数与热量均为非负数，看不到食物时返回空数组。`

const recipesSystemPrompt = `你是一名营养师与厨师。根据用户的文字或图片推荐 3 到 5 道食谱。
只输出 JSON：{"recipes":[{"name":string,"description":string,"ingredients":[string],"instructions":[string],"calories":number,"protein":number,"carbs":number,"fat":number,"prepMinutes":number}]}。
营养数值按每份估算。`

const mealPlanSystemPrompt = `你是一名营养师。根据用户档案制定 3 天的膳食计划，每天包含早餐、午餐、晚餐，可加零食。
只输出 JSON：{"days":[{"day":string,"meals":[{"slot":string,"name":string,"calories":number,"protein":number}]}],"notes":string}。
days 必须正好 3 项。`

const chatSystemPrompt = `You are a friendly, evidence-based nutritionist. Answer concisely in Markdown.
You do not diagnose medical conditions; suggest seeing a professional when appropriate.`

// RecipeQuery 描述食谱推荐请求，Query 与 Image 至少提供一个
type RecipeQuery struct {
	Query string
	Image []byte
	Diet  nutrition.DietaryPreference
}

// ChatMessage 是一条对话记录
type ChatMessage struct {
	Role    string `json:"role" validate:"oneof=user assistant"`
	Content string `json:"content" validate:"notblank"`
}

// ChatReply 是模型回复的原文与净化后的 HTML
type ChatReply struct {
	Content string `json:"content"`
	HTML    string `json:"html"`
}

// AINutritionService 封装图片识别、食谱推荐、膳食计划与对话
type AINutritionService struct {
	client *aiChatClient
	guard  *inflightGuard
	now    func() time.Time
}

// NewAINutritionService 构造 AINutritionService
func NewAINutritionService(cfg AIClientConfig) *AINutritionService {
	return &AINutritionService{
		client: newAIChatClient(cfg),
		guard:  newInflightGuard(),
		now:    time.Now,
	}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (s *AINutritionService) SetHTTPClient(client httpDoer) {
	s.client.SetHTTPClient(client)
}

// AnalyzeMealImage 识别餐食图片，返回每种食物的营养估算
func (s *AINutritionService) AnalyzeMealImage(ctx context.Context, image []byte) ([]nutrition.MacroEntry, error) {
	normalized, err := normalizeMealImage(image)
	if err != nil {
		return nil, err
	}

	content, err := s.run(ctx, AIActionAnalyze, aiChatRequest{
		SystemPrompt: analyzeSystemPrompt,
		Turns:        []aiTurn{{Role: "user", Text: "Estimate the nutrition of this meal.", Image: normalized}},
		MaxTokens:    800,
		Temperature:  0.2,
		JSON:         true,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Items []nutrition.MacroEntry `json:"items"`
	}
	if err := decodeModelJSON(content, &parsed); err != nil {
		return nil, s.malformed(AIActionAnalyze, err)
	}

	items := make([]nutrition.MacroEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		item.Name = strings.TrimSpace(item.Name)
		if err := item.Validate(); err != nil {
			return nil, s.malformed(AIActionAnalyze, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// SuggestRecipes 根据文字或图片推荐食谱
func (s *AINutritionService) SuggestRecipes(ctx context.Context, query RecipeQuery) ([]nutrition.Recipe, error) {
	text := strings.TrimSpace(query.Query)
	if text == "" && len(query.Image) == 0 {
		return nil, fmt.Errorf("%w: query or image is required", ErrValidation)
	}

	var image []byte
	if len(query.Image) > 0 {
		normalized, err := normalizeMealImage(query.Image)
		if err != nil {
			return nil, err
		}
		image = normalized
	}

	prompt := text
	if prompt == "" {
		prompt = "Suggest recipes using the ingredients in this photo."
	}
	if query.Diet != "" && query.Diet != nutrition.DietNoPreference {
		prompt += fmt.Sprintf("\nDietary preference: %s.", query.Diet)
	}

	content, err := s.run(ctx, AIActionRecipes, aiChatRequest{
		SystemPrompt: recipesSystemPrompt,
		Turns:        []aiTurn{{Role: "user", Text: prompt, Image: image}},
		MaxTokens:    1500,
		Temperature:  0.7,
		JSON:         true,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Recipes []nutrition.Recipe `json:"recipes"`
	}
	if err := decodeModelJSON(content, &parsed); err != nil {
		return nil, s.malformed(AIActionRecipes, err)
	}

	recipes := make([]nutrition.Recipe, 0, len(parsed.Recipes))
	for _, recipe := range parsed.Recipes {
		recipe.ID = uuid.NewString()
		recipe.Name = strings.TrimSpace(recipe.Name)
		recipe.Source = nutrition.RecipeSourceAI
		if err := recipe.Validate(); err != nil {
			return nil, s.malformed(AIActionRecipes, err)
		}
		recipes = append(recipes, recipe)
	}
	return recipes, nil
}

// GenerateMealPlan 根据档案生成三日膳食计划，结果尚未保存
func (s *AINutritionService) GenerateMealPlan(ctx context.Context, profile nutrition.Profile) (nutrition.MealPlan, error) {
	content, err := s.run(ctx, AIActionMealPlan, aiChatRequest{
		SystemPrompt: mealPlanSystemPrompt,
		Turns:        []aiTurn{{Role: "user", Text: describeProfile(profile)}},
		MaxTokens:    1500,
		Temperature:  0.6,
		JSON:         true,
	})
	if err != nil {
		return nutrition.MealPlan{}, err
	}

	var parsed struct {
		Days  []nutrition.PlanDay `json:"days"`
		Notes string              `json:"notes"`
	}
	if err := decodeModelJSON(content, &parsed); err != nil {
		return nutrition.MealPlan{}, s.malformed(AIActionMealPlan, err)
	}

	plan := nutrition.MealPlan{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
		Days:      parsed.Days,
		Notes:     strings.TrimSpace(parsed.Notes),
	}
	if err := plan.Validate(); err != nil {
		return nutrition.MealPlan{}, s.malformed(AIActionMealPlan, err)
	}
	return plan, nil
}

// Chat 继续一段对话，history 的最后一条必须是用户消息
func (s *AINutritionService) Chat(ctx context.Context, history []ChatMessage) (ChatReply, error) {
	if len(history) == 0 {
		return ChatReply{}, fmt.Errorf("%w: message is required", ErrValidation)
	}
	for _, msg := range history {
		if err := validateInput(msg); err != nil {
			return ChatReply{}, err
		}
	}
	if history[len(history)-1].Role != "user" {
		return ChatReply{}, fmt.Errorf("%w: last message must come from the user", ErrValidation)
	}
	if len(history) > maxChatTurns {
		history = history[len(history)-maxChatTurns:]
	}

	turns := make([]aiTurn, 0, len(history))
	for _, msg := range history {
		text := strings.TrimSpace(msg.Content)
		if runes := []rune(text); len(runes) > maxChatMessageRunes {
			text = string(runes[:maxChatMessageRunes])
		}
		turns = append(turns, aiTurn{Role: msg.Role, Text: text})
	}

	content, err := s.run(ctx, AIActionChat, aiChatRequest{
		SystemPrompt: chatSystemPrompt,
		Turns:        turns,
		MaxTokens:    800,
		Temperature:  0.7,
	})
	if err != nil {
		return ChatReply{}, err
	}
	if content == "" {
		return ChatReply{}, s.malformed(AIActionChat, errors.New("empty reply"))
	}

	html, err := renderMarkdown(content)
	if err != nil {
		return ChatReply{}, fmt.Errorf("render reply: %w", err)
	}
	return ChatReply{Content: content, HTML: html}, nil
}

func (s *AINutritionService) run(ctx context.Context, action string, req aiChatRequest) (string, error) {
	release, ok := s.guard.acquire(action)
	if !ok {
		metrics.AIRequests.WithLabelValues(action, "busy").Inc()
		return "", ErrAIRequestInProgress
	}
	defer release()

	req.SystemPrompt = strings.TrimSpace(req.SystemPrompt) + "\n" + locale.ReplyInstruction(locale.FromContext(ctx))

	if n := len(req.Turns); n > 0 {
		logAIExchange(action, "request", req.Turns[n-1].Text)
	}

	resp, err := s.client.call(ctx, req)
	if err != nil {
		metrics.AIRequests.WithLabelValues(action, "error").Inc()
		logging.Logger.Warn("ai_request_failed", zap.String("action", action), zap.Error(err))
		return "", err
	}

	logAIExchange(action, "response", resp.Content)
	metrics.AIRequests.WithLabelValues(action, "ok").Inc()
	logging.Logger.Info("ai_request_completed",
		zap.String("action", action),
		zap.Int("prompt_tokens", resp.PromptTokens),
		zap.Int("completion_tokens", resp.CompletionTokens),
	)
	return resp.Content, nil
}

func (s *AINutritionService) malformed(action string, err error) error {
	metrics.AIRequests.WithLabelValues(action, "malformed").Inc()
	return fmt.Errorf("%w: %v", ErrAIMalformedResponse, err)
}

// decodeModelJSON 去掉代码块围栏后截取第一个 JSON 对象并解码
func decodeModelJSON(content string, v any) error {
	raw := extractJSON(content)
	if raw == "" {
		return errors.New("no json object in reply")
	}
	return json.Unmarshal([]byte(raw), v)
}

func extractJSON(content string) string {
	text := strings.TrimSpace(content)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if newline := strings.IndexByte(text, '\n'); newline >= 0 {
			// 去掉 ```json 之类的语言标记
			text = text[newline+1:]
		}
		if end := strings.LastIndex(text, "```"); end >= 0 {
			text = text[:end]
		}
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}

func describeProfile(p nutrition.Profile) string {
	var b strings.Builder
	b.WriteString("Create a 3-day meal plan for me.\n")
	if p.Age > 0 {
		fmt.Fprintf(&b, "Age: %d\n", p.Age)
	}
	if p.HeightCm > 0 {
		fmt.Fprintf(&b, "Height: %.0f cm\n", p.HeightCm)
	}
	if p.CurrentWeightKg > 0 {
		fmt.Fprintf(&b, "Weight: %.1f kg\n", p.CurrentWeightKg)
	}
	if p.GoalWeightKg > 0 {
		fmt.Fprintf(&b, "Goal weight: %.1f kg\n", p.GoalWeightKg)
	}
	if p.ActivityLevel != "" {
		fmt.Fprintf(&b, "Activity level: %s\n", p.ActivityLevel)
	}
	if p.FitnessGoal != "" {
		fmt.Fprintf(&b, "Fitness goal: %s\n", p.FitnessGoal)
	}
	if p.DietaryPreference != "" {
		fmt.Fprintf(&b, "Dietary preference: %s\n", p.DietaryPreference)
	}
	if goal := p.EffectiveCalorieGoal(); goal > 0 {
		fmt.Fprintf(&b, "Daily calorie target: %d kcal\n", goal)
	}
	return b.String()
}
