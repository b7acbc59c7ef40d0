package main

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"shabu-order/internal/auth"
	"shabu-order/internal/httpx"
	"shabu-order/internal/menu"
	"shabu-order/internal/order"
	"shabu-order/internal/realtime"
)

func newRouter(menuSvc *menu.Service, ledger *order.Ledger, gate *auth.Gate, hub *realtime.Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/ws", func(c *gin.Context) {
		hub.Serve(c.Writer, c.Request)
	})

	r.POST("/admin/login", loginHandler(gate))
	r.GET("/admin/logout", logoutHandler(gate))
	r.GET("/admin/check-auth", checkAuthHandler(gate))

	api := r.Group("/api")
	api.GET("/menu", listMenuHandler(menuSvc))
	api.POST("/orders", createOrderHandler(ledger))
	api.GET("/orders", listOrdersHandler(ledger))
	api.GET("/orders/session", sessionOrdersHandler(ledger))
	api.PUT("/orders/:id", setOrderStatusHandler(ledger))

	admin := api.Group("", gate.RequireAdmin())
	admin.POST("/menu", createMenuHandler(menuSvc))
	admin.PUT("/menu/:id", updateMenuHandler(menuSvc))
	admin.DELETE("/menu/:id", deleteMenuHandler(menuSvc))
	admin.PUT("/menu/:id/toggle", toggleMenuHandler(menuSvc))
	// deprecated alias kept for old clients, same contract
	admin.PUT("/menu/:id/toggle-availability", toggleMenuHandler(menuSvc))
	admin.DELETE("/orders", clearOrdersHandler(ledger))

	// legacy route shape for the customer page
	r.GET("/orders/by-table", sessionOrdersHandler(ledger))

	return r
}

// formImage reads the optional multipart "image" field; absent is not an
// error.
func formImage(c *gin.Context) (*menu.Upload, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &menu.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func listMenuHandler(svc *menu.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if items == nil {
			items = []menu.Item{}
		}
		c.JSON(http.StatusOK, items)
	}
}

func createMenuHandler(svc *menu.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		image, err := formImage(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image upload"})
			return
		}
		item, err := svc.Create(c.Request.Context(), c.PostForm("name"), c.PostForm("category"), image)
		if err != nil {
			var ve *menu.ValidationError
			if errors.As(err, &ve) {
				c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "item": item})
	}
}

func updateMenuHandler(svc *menu.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		image, err := formImage(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image upload"})
			return
		}
		item, err := svc.Update(c.Request.Context(), c.Param("id"), c.PostForm("name"), c.PostForm("category"), image)
		if err != nil {
			if errors.Is(err, menu.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "menu item not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "item": item})
	}
}

func toggleMenuHandler(svc *menu.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, err := svc.Toggle(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, menu.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "menu item not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "item": item})
	}
}

func deleteMenuHandler(svc *menu.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			if errors.Is(err, menu.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "menu item not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "menu item deleted"})
	}
}

type createOrderRequest struct {
	Table string         `json:"table"`
	Items map[string]int `json:"items"`
}

func createOrderHandler(ledger *order.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		o, err := ledger.Place(c.Request.Context(), req.Table, req.Items)
		if err != nil {
			var ve *order.ValidationError
			var oos *order.OutOfStockError
			switch {
			case errors.As(err, &ve), errors.As(err, &oos):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "stock check failed"})
			}
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "order": o})
	}
}

func listOrdersHandler(ledger *order.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		out := ledger.List(c.Query("status"), c.Query("table"))
		if out == nil {
			out = []order.Order{}
		}
		c.JSON(http.StatusOK, out)
	}
}

func sessionOrdersHandler(ledger *order.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		table := c.Query("table")
		if table == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "table is required"})
			return
		}
		out := ledger.ListSession(table)
		if out == nil {
			out = []order.Order{}
		}
		c.JSON(http.StatusOK, out)
	}
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func setOrderStatusHandler(ledger *order.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		o, err := ledger.SetStatus(c.Param("id"), req.Status)
		if err != nil {
			var ve *order.ValidationError
			switch {
			case errors.Is(err, order.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			case errors.As(err, &ve), errors.Is(err, order.ErrCompleted):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "order": o})
	}
}

func clearOrdersHandler(ledger *order.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := c.Query("status")
		if status == "" {
			status = order.StatusDone
		}
		deleted, err := ledger.ClearDone(c.Query("table"), status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted})
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func loginHandler(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		if !gate.Authenticate(req.Username, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid credentials"})
			return
		}
		if err := gate.SignIn(c); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not start session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "login successful"})
	}
}

func logoutHandler(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := gate.SignOut(c); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "could not log out"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out successfully"})
	}
}

func checkAuthHandler(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"isAuthenticated": gate.IsAuthenticated(c)})
	}
}
