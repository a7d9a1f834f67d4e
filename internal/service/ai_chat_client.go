package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// AIProviderOpenAI 表示使用 OpenAI 能力。
	AIProviderOpenAI = "openai"
	// AIProviderDeepSeek 表示使用 DeepSeek 能力。
	AIProviderDeepSeek = "deepseek"

	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultDeepSeekBaseURL = "https://api.deepseek.com/v1"
	defaultDeepSeekModel   = "deepseek-chat"

	// AIRequestTimeout 单次 AI 请求的上限，HTTP 服务的 WriteTimeout 需大于该值
	AIRequestTimeout = 75 * time.Second
)

var (
	// ErrAIAPIKeyMissing 表示未提供必需的 AI 平台 API Key。
	ErrAIAPIKeyMissing = errors.New("api key is required")
	// ErrAIVisionUnsupported 当前服务商不支持图片输入
	ErrAIVisionUnsupported = errors.New("ai provider does not accept images")
	// ErrAIUpstream AI 接口调用失败（网络、状态码或响应格式）
	ErrAIUpstream = errors.New("ai upstream failure")
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// AIClientConfig 描述 AI 服务商与模型配置
type AIClientConfig struct {
	Provider        string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	DeepSeekAPIKey  string
	DeepSeekBaseURL string
	DeepSeekModel   string
}

type chatImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

// chatMessage.Content 为纯文本 string 或多模态 []chatContentPart
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Temperature    float64             `json:"temperature,omitempty"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// aiTurn 是一轮对话，Image 为 JPEG 字节，可为空
type aiTurn struct {
	Role  string
	Text  string
	Image []byte
}

type aiChatRequest struct {
	SystemPrompt string
	Turns        []aiTurn
	MaxTokens    int
	Temperature  float64
	JSON         bool
}

type aiChatResponse struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

type aiChatClient struct {
	cfg  AIClientConfig
	http httpDoer
}

func newAIChatClient(cfg AIClientConfig) *aiChatClient {
	cfg.Provider = normalizeAIProvider(cfg.Provider)
	cfg.OpenAIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/")
	cfg.DeepSeekBaseURL = strings.TrimRight(strings.TrimSpace(cfg.DeepSeekBaseURL), "/")
	return &aiChatClient{
		cfg:  cfg,
		http: &http.Client{Timeout: AIRequestTimeout},
	}
}

func (c *aiChatClient) SetHTTPClient(client httpDoer) {
	if client == nil {
		c.http = &http.Client{Timeout: AIRequestTimeout}
		return
	}
	c.http = client
}

func normalizeAIProvider(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case AIProviderDeepSeek:
		return AIProviderDeepSeek
	default:
		return AIProviderOpenAI
	}
}

type aiEndpoint struct {
	apiKey string
	base   string
	model  string
	label  string
	vision bool
}

func (c *aiChatClient) endpoint() aiEndpoint {
	if c.cfg.Provider == AIProviderDeepSeek {
		return aiEndpoint{
			apiKey: strings.TrimSpace(c.cfg.DeepSeekAPIKey),
			base:   firstNonEmpty(c.cfg.DeepSeekBaseURL, defaultDeepSeekBaseURL),
			model:  firstNonEmpty(c.cfg.DeepSeekModel, defaultDeepSeekModel),
			label:  "DeepSeek",
		}
	}
	return aiEndpoint{
		apiKey: strings.TrimSpace(c.cfg.OpenAIAPIKey),
		base:   firstNonEmpty(c.cfg.OpenAIBaseURL, defaultOpenAIBaseURL),
		model:  firstNonEmpty(c.cfg.OpenAIModel, defaultOpenAIModel),
		label:  "OpenAI",
		vision: true,
	}
}

func (c *aiChatClient) call(ctx context.Context, req aiChatRequest) (aiChatResponse, error) {
	ep := c.endpoint()
	if ep.apiKey == "" {
		return aiChatResponse{}, ErrAIAPIKeyMissing
	}

	messages := make([]chatMessage, 0, len(req.Turns)+1)
	if prompt := strings.TrimSpace(req.SystemPrompt); prompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: prompt})
	}
	for _, turn := range req.Turns {
		if len(turn.Image) == 0 {
			messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Text})
			continue
		}
		if !ep.vision {
			return aiChatResponse{}, ErrAIVisionUnsupported
		}
		parts := []chatContentPart{}
		if strings.TrimSpace(turn.Text) != "" {
			parts = append(parts, chatContentPart{Type: "text", Text: turn.Text})
		}
		parts = append(parts, chatContentPart{
			Type: "image_url",
			ImageURL: &chatImageURL{
				URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(turn.Image),
				Detail: "auto",
			},
		})
		messages = append(messages, chatMessage{Role: turn.Role, Content: parts})
	}

	maxTokens := req.MaxTokens
	if maxTokens < 0 {
		maxTokens = 0
	}

	payload := chatCompletionRequest{
		Model:       ep.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}
	if req.JSON {
		payload.ResponseFormat = &chatResponseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return aiChatResponse{}, fmt.Errorf("构造请求失败: %w", err)
	}

	client := c.http
	if client == nil {
		client = http.DefaultClient
	}

	endpoint := ep.base + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return aiChatResponse{}, fmt.Errorf("创建 %s 请求失败: %w", ep.label, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+ep.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "macrolog-ai/1.0")

	resp, err := client.Do(httpReq)
	if err != nil {
		return aiChatResponse{}, fmt.Errorf("%w: 请求 %s 接口失败: %w", ErrAIUpstream, ep.label, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return aiChatResponse{}, fmt.Errorf("%w: 读取 %s 响应失败: %w", ErrAIUpstream, ep.label, err)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return aiChatResponse{}, fmt.Errorf("%w: %s 接口返回错误：%s", ErrAIUpstream, ep.label, resp.Status)
		}
		return aiChatResponse{}, fmt.Errorf("%w: 解析 %s 响应失败: %w", ErrAIUpstream, ep.label, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		errMsg := strings.TrimSpace(completion.Error.Message)
		if errMsg == "" {
			errMsg = strings.TrimSpace(string(respBody))
		}
		if errMsg == "" {
			errMsg = resp.Status
		}
		return aiChatResponse{}, fmt.Errorf("%w: %s 接口返回错误：%s", ErrAIUpstream, ep.label, errMsg)
	}

	if len(completion.Choices) == 0 {
		return aiChatResponse{}, fmt.Errorf("%w: %s 接口未返回结果", ErrAIUpstream, ep.label)
	}

	return aiChatResponse{
		Content:          strings.TrimSpace(completion.Choices[0].Message.Content),
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
