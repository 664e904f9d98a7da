package openai

import (
	"strings"

	"github.com/leofalp/draftly/internal/utils"
	"github.com/leofalp/draftly/providers/ai"
)

/*
	CHAT COMPLETIONS API - INPUT
*/

type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	Temperature    *float64            `json:"temperature,omitempty"`
	MaxTokens      *int                `json:"max_tokens,omitempty"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"` // "text" or "json_object"
}

/*
	CHAT COMPLETIONS API - OUTPUT
*/

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int                 `json:"index"`
	Message      chatResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"` // "stop", "length", "content_filter"
}

type chatResponseMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content,omitempty"`
	Refusal   string `json:"refusal,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

/*
	CONVERSION FUNCTIONS
*/

// requestToChatCompletion converts ai.ChatRequest to chat completions format
func requestToChatCompletion(request ai.ChatRequest) chatCompletionRequest {
	req := chatCompletionRequest{
		Model:    request.Model,
		Messages: make([]chatMessage, 0, len(request.Messages)),
	}

	for _, msg := range request.Messages {
		req.Messages = append(req.Messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	if cfg := request.GenerationConfig; cfg != nil {
		if cfg.Temperature > 0 {
			req.Temperature = utils.Ptr(float64(cfg.Temperature))
		}
		if cfg.MaxTokens > 0 {
			req.MaxTokens = utils.Ptr(cfg.MaxTokens)
		}
	}

	if request.ResponseFormat != nil && request.ResponseFormat.Type != "" {
		req.ResponseFormat = &chatResponseFormat{Type: request.ResponseFormat.Type}
	}

	return req
}

// chatCompletionToGeneric converts the first choice into an ai.ChatResponse.
// Reasoning models sometimes wrap their chain of thought in <think> tags or
// leave the answer in the reasoning field; both are folded into Content.
func chatCompletionToGeneric(resp chatCompletionResponse) *ai.ChatResponse {
	choice := resp.Choices[0]

	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		content = strings.TrimSpace(choice.Message.Reasoning)
	}

	chatResp := &ai.ChatResponse{
		Id:           resp.ID,
		Model:        resp.Model,
		Content:      cleanThinkTags(content),
		Refusal:      choice.Message.Refusal,
		FinishReason: choice.FinishReason,
	}

	if resp.Usage != nil {
		chatResp.Usage = &ai.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	return chatResp
}

// cleanThinkTags removes a leading <think>...</think> block. The closing tag
// is mandatory; without it the content is returned untouched.
func cleanThinkTags(content string) string {
	const startTag, endTag = "<think>", "</think>"

	start := strings.Index(content, startTag)
	if start == -1 {
		start = 0
	}

	end := strings.Index(content, endTag)
	if end == -1 || end < start {
		return content
	}

	return strings.TrimSpace(content[:start] + content[end+len(endTag):])
}
