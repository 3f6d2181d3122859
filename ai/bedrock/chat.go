package bedrock

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/llms"
	lcbedrock "github.com/tmc/langchaingo/llms/bedrock"

	"github.com/lexrag/lexrag/ai"
	"github.com/lexrag/lexrag/core"
)

// Generation parameters match the original deployment: low temperature for
// grounded answers, short replies.
const (
	chatTemperature = 0.3
	chatMaxTokens   = 512
)

// ChatModel implements ai.ChatModel using a Bedrock chat model.
type ChatModel struct {
	model  llms.Model
	logger *slog.Logger
}

func newChatModel(client *bedrockruntime.Client, modelID string) (*ChatModel, error) {
	model, err := lcbedrock.New(
		lcbedrock.WithClient(client),
		lcbedrock.WithModel(modelID),
	)
	if err != nil {
		return nil, err
	}

	return &ChatModel{
		model:  model,
		logger: slog.Default().With("component", "bedrock-chat", "model", modelID),
	}, nil
}

// Generate invokes the chat model with the prompt sequence and returns the
// first choice's text content.
func (c *ChatModel) Generate(ctx context.Context, messages []core.Message) (string, error) {
	content := toMessageContent(messages)

	response, err := c.model.GenerateContent(ctx, content,
		llms.WithTemperature(chatTemperature),
		llms.WithMaxTokens(chatMaxTokens),
	)
	if err != nil {
		c.logger.Error("chat generation failed", "err", err)
		return "", err
	}

	if len(response.Choices) == 0 {
		c.logger.Warn("model returned no choices")
		return "", nil
	}
	return response.Choices[0].Content, nil
}

// toMessageContent converts domain messages to langchaingo message content.
func toMessageContent(messages []core.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		var role llms.ChatMessageType
		switch m.Role {
		case core.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case core.RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		content = append(content, llms.TextParts(role, m.Content))
	}
	return content
}

var _ ai.ChatModel = (*ChatModel)(nil)
