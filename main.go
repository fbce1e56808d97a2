package main

import (
	"context"
	"net/http"
	"time"

	"QChat/global"
	"QChat/logger"
	"QChat/middleware"
	midsec "QChat/middleware/security"
	message "QChat/module/message"
	msgservice "QChat/module/message/service"
	user "QChat/module/user"
	userservice "QChat/module/user/service"
	"QChat/service/chat"

	"github.com/gin-gonic/gin"
)

func main() {
	conf, err := global.Load()
	if err != nil {
		logger.Errorf("[main] config load failed: %v", err)
		return
	}

	global.ConfigIds()
	global.ConfigRedis()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := global.ConfigMgo(ctx); err != nil {
		logger.Errorf("[main] mongo connect failed: %v", err)
		return
	}
	db := global.Mongo().GetDB()

	userSvc := userservice.NewService(db, global.JWTOptions())
	userHandler := user.NewHandler(userSvc)

	msgSvc := msgservice.NewService(db, conf.MaxMessageBytes)
	msgHandler := message.NewHandler(msgSvc)

	chatSrv := chat.NewServer()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Origin(), bodyLimit(int64(conf.MaxMessageBytes)))

	r.GET("/api/status", func(c *gin.Context) {
		c.String(http.StatusOK, "Server is Live")
	})

	authOpts := midsec.DefaultOptions(global.JWTOptions())
	authed := middleware.RouteOpt{IsAuth: true, Auth: authOpts}
	public := middleware.RouteOpt{}

	middleware.POST(r, "/api/auth/signup", userHandler.HandlerSignup, public)
	middleware.POST(r, "/api/auth/login", userHandler.HandlerLogin, public)
	middleware.GET(r, "/api/auth/check", userHandler.HandlerCheck, authed)
	middleware.PUT(r, "/api/auth/update-profile", userHandler.HandlerUpdateProfile, authed)
	middleware.POST(r, "/api/auth/logout", userHandler.HandlerLogout, authed)

	middleware.GET(r, "/api/messages/users", msgHandler.HandlerUsers, authed)
	middleware.GET(r, "/api/messages/:id", msgHandler.HandlerMessages, authed)
	middleware.POST(r, "/api/messages/send/:id", msgHandler.HandlerSend, authed)
	middleware.PUT(r, "/api/messages/mark/:id", msgHandler.HandlerMarkSeen, authed)

	// Push channel. Auth rides the handshake query, not a header, because
	// browser websocket clients cannot set custom headers.
	r.GET("/ws", chatSrv.HandleWS)

	logger.Infof("[main] listening on %s", conf.HTTPAddr)
	if err := r.Run(conf.HTTPAddr); err != nil {
		logger.Errorf("[main] server stopped: %v", err)
	}
}

// bodyLimit caps request bodies; oversized payloads fail at read time inside
// the JSON binder instead of buffering unbounded input.
func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
