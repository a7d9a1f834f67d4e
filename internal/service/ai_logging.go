package service

import (
	"strings"
	"unicode/utf8"

	"github.com/macrolog/internal/logging"
	"go.uber.org/zap"
)

const maxAILogSnippetRunes = 1024

// logAIExchange 用于输出 AI 请求与响应的关键信息，方便排查模型行为。
func logAIExchange(kind, phase, content string) {
	trimmed := strings.TrimSpace(content)
	runeCount := utf8.RuneCountInString(trimmed)
	snippet := trimmed
	if runeCount > maxAILogSnippetRunes {
		snippet = string([]rune(trimmed)[:maxAILogSnippetRunes]) + "…(truncated)"
	}
	if snippet == "" {
		snippet = "<empty>"
	}
	logging.Logger.Debug("ai_exchange",
		zap.String("kind", kind),
		zap.String("phase", phase),
		zap.Int("runes", runeCount),
		zap.String("content", snippet),
	)
}
