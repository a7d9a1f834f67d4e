package locale

import (
	"context"
	"strings"
)

const (
	LanguageChinese = "zh"
	LanguageEnglish = "en"
)

type contextKey struct{}

func NormalizeLanguage(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "zh") || trimmed == "cn" {
		return LanguageChinese
	}
	if strings.HasPrefix(trimmed, "en") {
		return LanguageEnglish
	}
	return ""
}

// LanguageFromAcceptLanguage 取 Accept-Language 中第一个可识别的语言
func LanguageFromAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag, _, _ := strings.Cut(part, ";")
		if lang := NormalizeLanguage(tag); lang != "" {
			return lang
		}
	}
	return ""
}

// Resolve 显式参数优先，其次 Accept-Language，默认中文
func Resolve(explicit, acceptLanguage string) string {
	if lang := NormalizeLanguage(explicit); lang != "" {
		return lang
	}
	if lang := LanguageFromAcceptLanguage(acceptLanguage); lang != "" {
		return lang
	}
	return LanguageChinese
}

// WithLanguage 把请求语言写入 context，供 AI 提示词选择回复语言
func WithLanguage(ctx context.Context, language string) context.Context {
	return context.WithValue(ctx, contextKey{}, NormalizeLanguage(language))
}

func FromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(contextKey{}).(string); ok && lang != "" {
		return lang
	}
	return LanguageChinese
}
