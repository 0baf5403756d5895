package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mohamadalijomaa25/lezedora/internal/handlers"
	orderhttp "github.com/mohamadalijomaa25/lezedora/internal/handlers/order"
	authmw "github.com/mohamadalijomaa25/lezedora/internal/middleware/auth"
)

type Deps struct {
	DB                *gorm.DB
	Auth              *authmw.Middleware
	AuthHandler       *handlers.AuthHandler
	CollectionHandler *handlers.CollectionHandler
	ProductHandler    *handlers.ProductHandler
	SearchHandler     *handlers.SearchHandler
	OrderHandler      *orderhttp.OrderHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", d.AuthHandler.Signup)
	auth.POST("/login", d.AuthHandler.Login)
	auth.GET("/me", d.AuthHandler.Me, d.Auth.RequireAuth)

	collections := api.Group("/collections")
	collections.GET("", d.CollectionHandler.GetCollections)
	collections.GET("/:id", d.CollectionHandler.GetCollection)
	collections.POST("", d.CollectionHandler.CreateCollection, d.Auth.RequireAuth, d.Auth.RequireAdmin)
	collections.PUT("/:id", d.CollectionHandler.UpdateCollection, d.Auth.RequireAuth, d.Auth.RequireAdmin)
	collections.DELETE("/:id", d.CollectionHandler.DeleteCollection, d.Auth.RequireAuth, d.Auth.RequireAdmin)

	products := api.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.POST("", d.ProductHandler.CreateProduct, d.Auth.RequireAuth, d.Auth.RequireAdmin)
	products.PUT("/:id", d.ProductHandler.UpdateProduct, d.Auth.RequireAuth, d.Auth.RequireAdmin)
	products.DELETE("/:id", d.ProductHandler.DeleteProduct, d.Auth.RequireAuth, d.Auth.RequireAdmin)

	if d.SearchHandler != nil {
		api.GET("/search", d.SearchHandler.Search)
	}

	orders := api.Group("/orders", d.Auth.RequireAuth)
	orders.GET("", d.OrderHandler.GetAllOrders, d.Auth.RequireAdmin)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("/my", d.OrderHandler.GetMyOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.PUT("/:id/status", d.OrderHandler.UpdateStatus, d.Auth.RequireAdmin)
}
