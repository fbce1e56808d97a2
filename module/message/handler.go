package message

import (
	"net/http"

	"QChat/middleware"
	midsec "QChat/middleware/security"
	msgmodel "QChat/module/message/model"
	"QChat/module/message/service"

	"github.com/gin-gonic/gin"
)

// Handler exposes the message store gateway over gin. All routes are behind
// the auth middleware; the viewer identity comes from the request context.
type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// HandlerUsers GET /api/messages/users returns the sidebar peers + unseen counts.
func (h *Handler) HandlerUsers(c *gin.Context) {
	peers, unseen, err := h.svc.ListPeers(c.Request.Context(), midsec.UserID(c))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"users":          peers,
		"unseenMessages": unseen,
	})
}

// HandlerMessages GET /api/messages/:id returns the full conversation with peer :id,
// marking their messages seen.
func (h *Handler) HandlerMessages(c *gin.Context) {
	msgs, err := h.svc.ListMessages(c.Request.Context(), midsec.UserID(c), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": msgs})
}

// HandlerSend POST /api/messages/send/:id sends to peer :id, returns the
// canonical stored message.
func (h *Handler) HandlerSend(c *gin.Context) {
	var content msgmodel.Content
	if err := c.ShouldBindJSON(&content); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "malformed body"})
		return
	}
	m, err := h.svc.Send(c.Request.Context(), midsec.UserID(c), c.Param("id"), content)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "newMessage": m})
}

// HandlerMarkSeen PUT /api/messages/mark/:id marks a single message seen.
func (h *Handler) HandlerMarkSeen(c *gin.Context) {
	if err := h.svc.MarkSeen(c.Request.Context(), midsec.UserID(c), c.Param("id")); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
