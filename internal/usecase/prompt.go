package usecase

import (
	"context"
	"strings"

	"panda-assistant/internal/domain"
)

func (s *CommandService) fallback(ctx context.Context, req request) (reply, error) {
	if s.cfg.OpenAIModel == "" {
		return reply{text: FallbackReply}, nil
	}

	flagged, err := s.deps.LLM.Moderate(ctx, req.command)
	if err != nil {
		s.logger.Warn("moderation failed", "err", err)
		return reply{text: FallbackReply}, nil
	}
	if flagged {
		return reply{text: FallbackReply}, nil
	}

	history, err := s.deps.Log.GetHistory(ctx, req.sessionID, s.cfg.MaxContextItems)
	if err != nil {
		return reply{}, newError(ErrorInternal, "dynamodb_history_error", err)
	}

	answer, err := s.deps.LLM.Chat(ctx, s.cfg.OpenAIModel, buildPromptMessages(req.command, history))
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok {
			s.logger.Warn("llm fallback failed", "status", status, "err", err)
		} else {
			s.logger.Warn("llm fallback failed", "err", err)
		}
		return reply{text: FallbackReply}, nil
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return reply{text: FallbackReply}, nil
	}
	return reply{text: answer}, nil
}

func buildPromptMessages(command string, history []domain.CommandRecord) []domain.ChatMessage {
	messages := []domain.ChatMessage{
		{Role: "system", Content: systemPrompt()},
	}
	for _, rec := range history {
		messages = append(messages, historyToPromptMessages(rec)...)
	}
	return append(messages, domain.ChatMessage{Role: "user", Content: command})
}

func systemPrompt() string {
	return strings.Join([]string{
		"You are Panda Virtual Assistant, a friendly voice assistant created by Ashish Vishwakarma.",
		"Answer the user's latest command in one or two short sentences.",
		"Your answer is read aloud, so reply in plain text without markdown, lists or links.",
		"If you cannot help, say so briefly.",
	}, "\n")
}

// historyToPromptMessages skips exchanges that ended in the fixed fallback so
// the model is not primed to repeat it.
func historyToPromptMessages(rec domain.CommandRecord) []domain.ChatMessage {
	command := strings.TrimSpace(rec.Command)
	response := strings.TrimSpace(rec.Response)
	if command == "" || response == "" || response == FallbackReply {
		return nil
	}
	return []domain.ChatMessage{
		{Role: "user", Content: command},
		{Role: "assistant", Content: response},
	}
}
