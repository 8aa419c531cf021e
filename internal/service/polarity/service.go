package polarity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/convo-eval/internal/observability"
)

var (
	ErrModelRequired = errors.New("chat model is required")
	ErrEmptyResponse = errors.New("classifier returned an empty response")
	ErrMalformed     = errors.New("classifier output is not a polarity object")
)

// Service 使用大模型为文本给出 [-1, 1] 区间的情感极性。
// 与启发式词典不同，调用失败时直接返回错误，不做降级。
type Service struct {
	classifier compose.Runnable[map[string]any, *schema.Message]
}

// NewService 编译 "提示词模板 -> 聊天模型" 链。chatModel 由调用方创建并持有。
func NewService(ctx context.Context, chatModel model.ChatModel) (*Service, error) {
	if chatModel == nil {
		return nil, ErrModelRequired
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(polaritySystemPrompt),
		schema.UserMessage(polarityUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile polarity classifier chain: %w", err)
	}

	return &Service{classifier: runnable}, nil
}

// Polarity implements sentiment.Scorer. Blank text is neutral and never
// reaches the model.
func (s *Service) Polarity(ctx context.Context, text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, nil
	}

	msg, err := s.classifier.Invoke(ctx, map[string]any{"text": trimmed})
	if err != nil {
		return 0, fmt.Errorf("polarity classifier invoke: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return 0, ErrEmptyResponse
	}

	payload, err := parseClassifierOutput(msg.Content)
	if err != nil {
		return 0, err
	}

	observability.FromContext(ctx, "polarity").
		WithField("polarity", payload.Polarity).
		WithField("chars", len(trimmed)).
		Debugf("classified text: %s", payload.Reason)

	return clampPolarity(*payload.Polarity), nil
}

// parseClassifierOutput 从模型回复中截取 JSON 对象并解析。
func parseClassifierOutput(content string) (*classifierPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("%w: missing json object", ErrMalformed)
	}

	payload := &classifierPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if payload.Polarity == nil {
		return nil, fmt.Errorf("%w: polarity field missing", ErrMalformed)
	}
	return payload, nil
}

func clampPolarity(val float64) float64 {
	if val < -1 {
		return -1
	}
	if val > 1 {
		return 1
	}
	return val
}

type classifierPayload struct {
	Polarity *float64 `json:"polarity"`
	Reason   string   `json:"reason"`
}

const polaritySystemPrompt = "You rate the emotional tone of customer-service agent replies. Read the text and return only a JSON object with two fields: polarity (a number between -1.0 and 1.0, where -1 is very negative, 0 is neutral and 1 is very positive) and reason (one short sentence). Do not output anything else."

const polarityUserPrompt = "Agent replies:\n{text}\n\nReturn the JSON object."
