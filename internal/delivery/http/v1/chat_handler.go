package v1

import (
	"net/http"

	"storefront-console/internal/domain"
	"storefront-console/internal/usecase"
)

type ChatHandler struct {
	responder
	chatUC *usecase.ChatUsecase
}

func NewChatHandler(chatUC *usecase.ChatUsecase) *ChatHandler {
	return &ChatHandler{chatUC: chatUC}
}

// Reply answers the last user message of the posted conversation.
func (h *ChatHandler) Reply(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []domain.ChatMessage `json:"messages"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	msg, err := h.chatUC.Reply(r.Context(), req.Messages)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, msg)
}

func (h *ChatHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.ok(w, map[string]bool{"enabled": h.chatUC.Enabled()})
}
