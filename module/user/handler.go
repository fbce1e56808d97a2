package user

import (
	"net/http"

	"QChat/middleware"
	midsec "QChat/middleware/security"
	"QChat/module/user/service"

	"github.com/gin-gonic/gin"
)

// Handler exposes the auth routes over gin.
type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// HandlerSignup POST /api/auth/signup
func (h *Handler) HandlerSignup(c *gin.Context) {
	var in service.SignupParams
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "malformed body"})
		return
	}
	u, token, err := h.svc.Signup(c.Request.Context(), in)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "userData": u, "token": token})
}

// HandlerLogin POST /api/auth/login
func (h *Handler) HandlerLogin(c *gin.Context) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "malformed body"})
		return
	}
	u, token, err := h.svc.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "userData": u, "token": token})
}

// HandlerCheck GET /api/auth/check validates the token and returns the account.
func (h *Handler) HandlerCheck(c *gin.Context) {
	u, err := h.svc.GetByID(c.Request.Context(), midsec.UserID(c))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

// HandlerUpdateProfile PUT /api/auth/update-profile
func (h *Handler) HandlerUpdateProfile(c *gin.Context) {
	var in service.ProfileUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "malformed body"})
		return
	}
	u, err := h.svc.UpdateProfile(c.Request.Context(), midsec.UserID(c), in)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

// HandlerLogout POST /api/auth/logout
func (h *Handler) HandlerLogout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), midsec.UserID(c)); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
