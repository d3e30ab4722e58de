package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/ytakeda/execpersona/backend/internal/model/chat"
)

// TextModel runs prompt contexts through a compiled eino chain.
type TextModel struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewTextModel compiles the persona chat chain around the supplied model.
func NewTextModel(ctx context.Context, chatModel model.ChatModel) (*TextModel, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile chat chain: %w", err)
	}
	return &TextModel{chain: runnable}, nil
}

// Generate produces one reply for the assembled context.
func (m *TextModel) Generate(ctx context.Context, pc PromptContext) (string, error) {
	input := map[string]any{
		"system":  pc.System,
		"history": historyMessages(pc.History),
		"query":   pc.Query,
	}

	response, err := m.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("run chat chain: %w", err)
	}
	return response.Content, nil
}

func historyMessages(turns []chat.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}
