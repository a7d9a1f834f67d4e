package locale

// Pick 按语言返回对应文本，缺失时回退到另一种语言
func Pick(language, english, chinese string) string {
	if NormalizeLanguage(language) == LanguageEnglish {
		if english != "" {
			return english
		}
		return chinese
	}
	if chinese != "" {
		return chinese
	}
	return english
}

// ReplyInstruction 追加到系统提示词末尾，约束模型的输出语言
func ReplyInstruction(language string) string {
	return Pick(language,
		"Write every user-facing text field (names, descriptions, notes, replies) in English.",
		"所有面向用户的文字（名称、描述、备注、回复）都使用简体中文。",
	)
}
