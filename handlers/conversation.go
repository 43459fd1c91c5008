package handlers

import (
	"net/http"

	"github.com/akinalp/destek/pkg"
	"github.com/akinalp/destek/services"
)

// ConversationHandler, konuşma endpoint'lerini yöneten struct.
//
// Konsolun canlı yüzeyi WebSocket'tedir; buradaki endpoint'ler
// snapshot okuma içindir (sayfa ilk yüklenirken ve araçlar için).
type ConversationHandler struct {
	chatService services.ChatService
}

// NewConversationHandler, constructor.
func NewConversationHandler(chatService services.ChatService) *ConversationHandler {
	return &ConversationHandler{chatService: chatService}
}

// List godoc
// GET /api/conversations
// Tüm konuşmaları son aktiviteye göre yeniden eskiye döner. Operatör gerektirir.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	convs, err := h.chatService.ListConversations(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, convs)
}

// Messages godoc
// GET /api/conversations/{id}/messages
// Bir konuşmanın tam mesaj geçmişini eskiden yeniye döner. Operatör gerektirir.
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")
	if conversationID == "" {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "conversation id is required")
		return
	}

	msgs, err := h.chatService.ListMessages(r.Context(), conversationID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, msgs)
}
