package middleware

import (
	"net/http"

	midsec "QChat/middleware/security"
	"QChat/tools/errs"

	"github.com/gin-gonic/gin"
)

type RouteOpt struct {
	IsAuth bool
	Auth   *midsec.Options
}

// POST registers a POST route, optionally behind the auth middleware.
func POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.POST(path, midsec.Middleware(opt.Auth), handler)
	} else {
		r.POST(path, handler)
	}
}

// GET registers a GET route, optionally behind the auth middleware.
func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.GET(path, midsec.Middleware(opt.Auth), handler)
	} else {
		r.GET(path, handler)
	}
}

// PUT registers a PUT route, optionally behind the auth middleware.
func PUT(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.PUT(path, midsec.Middleware(opt.Auth), handler)
	} else {
		r.PUT(path, handler)
	}
}

// AbortWithError maps a taxonomy error onto an HTTP response.
func AbortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errs.CodeOf(err) {
	case errs.CodeUnauthorized:
		status = http.StatusUnauthorized
	case errs.CodeNotFound:
		status = http.StatusNotFound
	case errs.CodeInvalidContent:
		status = http.StatusUnprocessableEntity
	case errs.CodeUnavailable:
		status = http.StatusServiceUnavailable
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": err.Error()})
}
