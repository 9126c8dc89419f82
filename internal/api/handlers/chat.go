package handlers

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Sepheus7/dataforge-studio/internal/llm"
	"github.com/Sepheus7/dataforge-studio/internal/memory"
)

const chatSystemPrompt = "You are a helpful assistant for a synthetic data " +
	"platform. Answer questions about schemas, data generation, and datasets. " +
	"Be concise."

type ChatHandler struct {
	llm llm.Client
	mem *memory.Log
}

func NewChatHandler(client llm.Client, mem *memory.Log) *ChatHandler {
	return &ChatHandler{llm: client, mem: mem}
}

type ChatInput struct {
	Body struct {
		Message  string `json:"message" minLength:"1" doc:"User message"`
		ThreadID string `json:"thread_id,omitempty" doc:"Thread to continue; new thread when omitted"`
	}
}

type ChatBody struct {
	ThreadID string `json:"thread_id" doc:"Thread ID for follow-ups"`
	Reply    string `json:"reply" doc:"Assistant reply"`
}

type ChatOutput struct {
	Body ChatBody
}

// Chat answers one conversational turn with thread continuity. It never
// starts generation jobs; it only talks.
func (h *ChatHandler) Chat(ctx context.Context, input *ChatInput) (*ChatOutput, error) {
	threadID := input.Body.ThreadID
	if threadID == "" {
		threadID = "thread_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}

	history, err := h.mem.History(ctx, threadID)
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: input.Body.Message})

	reply, err := h.llm.Chat(ctx, chatSystemPrompt, messages)
	if err != nil {
		return nil, huma.Error502BadGateway("model call failed: " + err.Error())
	}

	if err := h.mem.Append(ctx, threadID, memory.Message{Role: llm.RoleUser, Content: input.Body.Message}); err != nil {
		log.Warn().Err(err).Str("thread_id", threadID).Msg("could not persist user message")
	}
	if err := h.mem.Append(ctx, threadID, memory.Message{Role: llm.RoleAssistant, Content: reply}); err != nil {
		log.Warn().Err(err).Str("thread_id", threadID).Msg("could not persist reply")
	}

	return &ChatOutput{Body: ChatBody{ThreadID: threadID, Reply: reply}}, nil
}
