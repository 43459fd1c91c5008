package handlers

import (
	"net/http"

	"github.com/akinalp/destek/pkg"
)

// OnlineLister, bağlı kullanıcı ID'lerini veren yüzey — ws.Hub karşılar.
type OnlineLister interface {
	OnlineUserIDs() []string
}

// PresenceHandler, operatör konsoluna hangi ziyaretçilerin şu anda
// bağlı olduğunu gösterir. Canlı bir abonelik değildir — konsol dizin
// yenilemelerinde snapshot olarak çeker.
type PresenceHandler struct {
	hub OnlineLister
}

// NewPresenceHandler, constructor.
func NewPresenceHandler(hub OnlineLister) *PresenceHandler {
	return &PresenceHandler{hub: hub}
}

// Online godoc
// GET /api/presence
// Bağlı kullanıcı ID'lerini döner. Operatör gerektirir.
func (h *PresenceHandler) Online(w http.ResponseWriter, r *http.Request) {
	ids := h.hub.OnlineUserIDs()
	if ids == nil {
		ids = []string{}
	}

	pkg.JSON(w, http.StatusOK, map[string][]string{"online_user_ids": ids})
}
