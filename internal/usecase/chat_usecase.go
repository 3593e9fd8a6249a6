package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-console/internal/domain"
	"storefront-console/pkg/logger"
)

const (
	chatGroundingProducts = 5
	chatMaxHistory        = 20
	chatMaxMessageLength  = 2000
)

// ChatUsecase answers storefront questions with a hosted model, grounded on the
// products that match the latest question.
type ChatUsecase struct {
	model   domain.ChatModel
	catalog *CatalogUsecase
}

// NewChatUsecase accepts a nil model; Reply then fails with ErrChatDisabled.
func NewChatUsecase(model domain.ChatModel, catalog *CatalogUsecase) *ChatUsecase {
	return &ChatUsecase{model: model, catalog: catalog}
}

func (u *ChatUsecase) Enabled() bool {
	return u.model != nil
}

// Reply produces the model's next message for a conversation that ends with a user
// message. Model failures come back as a model message, not as an error.
func (u *ChatUsecase) Reply(ctx context.Context, history []domain.ChatMessage) (domain.ChatMessage, error) {
	if u.model == nil {
		chatRequestsTotal.WithLabelValues("disabled").Inc()
		return domain.ChatMessage{}, domain.ErrChatDisabled
	}
	if err := validateConversation(history); err != nil {
		return domain.ChatMessage{}, err
	}
	if len(history) > chatMaxHistory {
		history = history[len(history)-chatMaxHistory:]
	}
	question := history[len(history)-1].Text

	products := u.groundingProducts(ctx, question)
	messages := make([]domain.ChatMessage, 0, len(history)+1)
	messages = append(messages, domain.ChatMessage{Role: domain.ChatRoleUser, Text: groundingPreamble(products)})
	messages = append(messages, history...)

	reply, err := u.model.Generate(ctx, messages)
	if err != nil {
		if errors.Is(err, domain.ErrChatDisabled) {
			chatRequestsTotal.WithLabelValues("disabled").Inc()
			return domain.ChatMessage{}, err
		}
		chatRequestsTotal.WithLabelValues("model_error").Inc()
		logger.WithContext(ctx).Warn().Err(err).Msg("Chat model call failed")
		return domain.ChatMessage{
			Role: domain.ChatRoleModel,
			Text: fmt.Sprintf("Sorry, the assistant could not answer right now (%v).", err),
		}, nil
	}

	chatRequestsTotal.WithLabelValues("ok").Inc()
	return domain.ChatMessage{Role: domain.ChatRoleModel, Text: reply}, nil
}

func validateConversation(history []domain.ChatMessage) error {
	v := domain.NewValidationError()
	if len(history) == 0 {
		v.Add("messages", "at least one message is required")
		return v
	}
	for i, m := range history {
		if m.Role != domain.ChatRoleUser && m.Role != domain.ChatRoleModel {
			v.Add(fmt.Sprintf("messages[%d].role", i), "role must be user or model")
		}
		if len(m.Text) > chatMaxMessageLength {
			v.Add(fmt.Sprintf("messages[%d].text", i), fmt.Sprintf("at most %d characters", chatMaxMessageLength))
		}
	}
	last := history[len(history)-1]
	if last.Role != domain.ChatRoleUser || strings.TrimSpace(last.Text) == "" {
		v.Add("messages", "the conversation must end with a non-empty user message")
	}
	return v.OrNil()
}

// groundingProducts prefers products named in the question and falls back to the
// best sellers. Catalog failures only cost the grounding.
func (u *ChatUsecase) groundingProducts(ctx context.Context, question string) []domain.Product {
	if u.catalog == nil {
		return nil
	}
	products, err := u.catalog.SearchProducts(ctx, question, chatGroundingProducts)
	if err == nil && len(products) == 0 {
		products, err = u.catalog.SearchProducts(ctx, "", chatGroundingProducts)
	}
	if err != nil {
		logger.WithContext(ctx).Warn().Err(err).Msg("Chat grounding unavailable")
		return nil
	}
	return products
}

func groundingPreamble(products []domain.Product) string {
	var sb strings.Builder
	sb.WriteString("You are the assistant of an online store. Answer briefly and only about the store's products and orders.\n")
	if len(products) == 0 {
		sb.WriteString("No product data is available right now.")
		return sb.String()
	}
	sb.WriteString("Products you can refer to:\n")
	for _, p := range products {
		fmt.Fprintf(&sb, "- %s: %s, price %s, %d in stock", p.Name, oneLine(p.MainText), p.Price.String(), p.Quantity)
		for _, v := range p.Variants {
			fmt.Fprintf(&sb, "; %s at %s (%d left)", v.Label(), v.Price.String(), v.Quantity)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 160 {
		s = s[:160] + "..."
	}
	return s
}
