package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/rs/zerolog/log"
)

// BedrockClient talks to AWS Bedrock through the Converse API. Throttling
// errors surface with their provider message intact so the retry layer can
// classify them.
type BedrockClient struct {
	client      *bedrockruntime.Client
	modelID     string
	maxTokens   int32
	temperature float32
}

type BedrockOptions struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float64
}

func NewBedrock(ctx context.Context, opts BedrockOptions) (*BedrockClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &BedrockClient{
		client:      bedrockruntime.NewFromConfig(cfg),
		modelID:     opts.ModelID,
		maxTokens:   int32(opts.MaxTokens),
		temperature: float32(opts.Temperature),
	}, nil
}

func (b *BedrockClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	return b.Chat(ctx, system, []Message{{Role: RoleUser, Content: prompt}})
}

func (b *BedrockClient) Chat(ctx context.Context, system string, messages []Message) (string, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(b.modelID),
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(b.maxTokens),
			Temperature: aws.Float32(b.temperature),
		},
	}
	if system != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: system},
		}
	}
	for _, m := range messages {
		role := types.ConversationRoleUser
		if m.Role == RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		input.Messages = append(input.Messages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}

	out, err := b.client.Converse(ctx, input)
	if err != nil {
		return "", fmt.Errorf("bedrock converse: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("bedrock converse: unexpected output type %T", out.Output)
	}

	var parts []string
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			parts = append(parts, text.Value)
		}
	}
	if len(parts) == 0 {
		log.Warn().Str("model", b.modelID).Msg("model returned no text blocks")
	}
	return strings.Join(parts, " "), nil
}
