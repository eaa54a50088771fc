package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"fallout/internal/domain/fallout"
	"fallout/internal/errs"
	"fallout/internal/ports"
)

const systemPrompt = `You classify telecom order activation fallouts.
Answer with exactly one label and nothing else:
NOT_SENT_FOR_ACTIVATION, ESIM_ISSUE, SWITCH_ISSUE, OTHER_ISSUE.
Use OTHER_ISSUE when the evidence does not clearly point to one of the others.`

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIClassifier asks a chat model for the label. The caller bounds the
// call with a context deadline; the client does not retry on its own.
type OpenAIClassifier struct {
	client openai.Client
	model  string
}

var _ ports.Classifier = (*OpenAIClassifier)(nil)

func NewOpenAIClassifier(cfg OpenAIConfig) (*OpenAIClassifier, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("classifier.openai.api_key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIClassifier{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (c *OpenAIClassifier) Name() string {
	return "openai"
}

func (c *OpenAIClassifier) Classify(ctx context.Context, state fallout.RemediationState) (fallout.Category, error) {
	if ctx == nil {
		return fallout.CategoryNone, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return fallout.CategoryNone, errs.Wrap(err, "check context")
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(describeState(state)),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return fallout.CategoryNone, errs.Wrap(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return fallout.CategoryNone, errors.New("chat completion returned no choices")
	}

	label := strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), "`\"'.")
	category, _ := fallout.ParseCategory(label)
	return category, nil
}

func describeState(state fallout.RemediationState) string {
	var b strings.Builder
	order := state.Order
	fmt.Fprintf(&b, "order_id: %s\n", order.OrderID)
	fmt.Fprintf(&b, "service_type: %s\n", order.ServiceType)
	fmt.Fprintf(&b, "status: %s\n", order.Status)
	fmt.Fprintf(&b, "reported_category: %s\n", order.Category)

	if state.ESim == nil {
		b.WriteString("esim: none\n")
	} else {
		fmt.Fprintf(&b, "esim: id=%s status=%s profile_status=%s\n", state.ESim.AttachmentID, state.ESim.Status, state.ESim.ProfileStatus)
	}
	if state.Switch == nil {
		b.WriteString("switch: none\n")
	} else {
		fmt.Fprintf(&b, "switch: id=%s name=%s port=%s config_status=%s\n", state.Switch.AttachmentID, state.Switch.SwitchName, state.Switch.PortID, state.Switch.Status)
	}
	return b.String()
}
