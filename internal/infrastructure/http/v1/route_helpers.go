package v1

import (
	"github.com/gin-gonic/gin"

	"pharmaledger/internal/core/security"
	"pharmaledger/internal/infrastructure/http/v1/middleware"
)

// DocumentRouteHandler is implemented by handlers of numbered documents that
// are created, listed and read the same way.
type DocumentRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
}

// Action is a document state transition, registered as POST /:id/<Name>.
type Action struct {
	Name       string
	Handler    gin.HandlerFunc
	Permission security.Permission
}

// RegisterDocumentRoutes registers the standard list/create/get routes for a
// document plus its state transitions.
//
// Usage:
//
//	RegisterDocumentRoutes(rg.Group("/purchase-orders"), handler,
//	    security.PermPurchaseOrderRead, security.PermPurchaseOrderWrite,
//	    Action{Name: "approve", Handler: handler.Approve},
//	)
//
// An action without a Permission uses write.
func RegisterDocumentRoutes(group *gin.RouterGroup, handler DocumentRouteHandler, read, write security.Permission, actions ...Action) {
	group.GET("", middleware.RequirePermission(read), handler.List)
	group.POST("", middleware.RequirePermission(write), handler.Create)
	group.GET("/:id", middleware.RequirePermission(read), handler.Get)

	for _, a := range actions {
		perm := a.Permission
		if perm == "" {
			perm = write
		}
		group.POST("/:id/"+a.Name, middleware.RequirePermission(perm), a.Handler)
	}
}
