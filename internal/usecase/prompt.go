package usecase

import (
	"strings"

	"bilingual-tutor/internal/domain"
)

const (
	completionModel       = "deepseek-chat"
	completionMaxTokens   = 1500
	completionTemperature = 0.7
)

// buildCompletionRequest places the tutoring prompt first and the caller's
// message, unmodified, second.
func buildCompletionRequest(message string) domain.CompletionRequest {
	return domain.CompletionRequest{
		Model: completionModel,
		Messages: []domain.ChatMessage{
			{Role: "system", Content: systemPrompt()},
			{Role: "user", Content: message},
		},
		MaxTokens:   completionMaxTokens,
		Temperature: completionTemperature,
		Stream:      false,
	}
}

func systemPrompt() string {
	return strings.Join([]string{
		"你是一位专业的英语AI教师助手。你的任务是帮助用户学习英语。",
		"",
		"重要规则：",
		tutoringRules(),
		"",
		"回复格式：",
		"- 首先用用户使用的语言（中文或英文）详细回答问题",
		"- 然后提供另一种语言的翻译",
		"- 可以包含例句、语法说明、使用场景等",
		"",
		"例如：",
		promptExamples(),
	}, "\n")
}

func tutoringRules() string {
	return strings.Join([]string{
		"1. 用户可以用中文或英文向你提问",
		"2. 如果用户用中文提问，你需要用中文回答，并提供英文翻译",
		"3. 如果用户用英文提问，你需要用英文回答，并提供中文翻译",
		"4. 提供详细、有帮助的英语学习内容（词汇、语法、写作、发音等）",
		"5. 给出具体例句和使用场景",
		"6. 保持鼓励和教育性的语气",
		"7. 每次回答尽量控制在500字以内",
	}, "\n")
}

func promptExamples() string {
	return strings.Join([]string{
		"如果用户问：\"apple是什么意思？\"",
		"你应该回答：\"apple的意思是苹果，是一种常见的水果。例句：I eat an apple every day.（我每天吃一个苹果。）\"",
		"",
		"如果用户问：\"What does 'hello' mean?\"",
		"你应该回答：\"'Hello' is a common greeting used when meeting someone. Example: Hello, how are you?",
		"中文翻译：'Hello'是见面时常用的问候语。例句：你好，你好吗？\"",
	}, "\n")
}
