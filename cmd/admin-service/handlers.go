package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/doughsido/bakeshop/internal/auth"
	"github.com/doughsido/bakeshop/internal/httpx"
	"github.com/doughsido/bakeshop/internal/order"
	"github.com/doughsido/bakeshop/internal/product"
	"github.com/doughsido/bakeshop/internal/storage"
)

const (
	adminCookie   = "admin_session"
	recentLimit   = 10
	pendingLimit  = 20
	adminCookieMA = int(auth.SessionTTL / time.Second)
)

// authenticator is the slice of auth.Admin the handlers need.
type authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	Verify(ctx context.Context, token string) error
	Logout(ctx context.Context, token string) error
}

type admin struct {
	auth     authenticator
	products product.Repository
	orders   order.Repository
	images   storage.ObjectStore
}

func newRouter(a *admin) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	r.POST("/admin/login", a.login)
	r.POST("/admin/logout", a.logout)

	authed := r.Group("/admin", a.requireSession)
	authed.GET("/products", a.listProducts)
	authed.POST("/products", a.createProduct)
	authed.DELETE("/products/:id", a.deleteProduct)
	authed.POST("/products/:id/images", a.uploadImages)
	authed.GET("/orders", a.listPendingOrders)
	authed.PUT("/orders/:id/complete", a.completeOrder)

	return r
}

func (a *admin) requireSession(c *gin.Context) {
	token, _ := c.Cookie(adminCookie)
	if err := a.auth.Verify(c.Request.Context(), token); err != nil {
		if !errors.Is(err, auth.ErrNoSession) {
			log.Printf("[admin] session verify: %v", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, product.HTTPError{Error: "not authenticated"})
		return
	}
	c.Next()
}

func (a *admin) login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, product.HTTPError{Error: "username and password are required"})
		return
	}

	token, err := a.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, product.HTTPError{Error: err.Error()})
			return
		}
		log.Printf("[admin] login: %v", err)
		c.JSON(http.StatusInternalServerError, product.HTTPError{Error: "login failed, please try again"})
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(adminCookie, token, adminCookieMA, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged in"})
}

func (a *admin) logout(c *gin.Context) {
	token, _ := c.Cookie(adminCookie)
	if err := a.auth.Logout(c.Request.Context(), token); err != nil {
		log.Printf("[admin] logout: %v", err)
	}
	c.SetCookie(adminCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (a *admin) listProducts(c *gin.Context) {
	items, err := a.products.List(c.Request.Context(), product.Query{
		OrderBy: product.OrderByRecent,
		Limit:   recentLimit,
	})
	if err != nil {
		log.Printf("[admin] list products: %v", err)
		c.JSON(http.StatusBadGateway, product.HTTPError{Error: "failed to load products"})
		return
	}
	if items == nil {
		items = []product.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (a *admin) createProduct(c *gin.Context) {
	var req product.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, product.HTTPError{Error: "invalid json"})
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Price) == "" {
		c.JSON(http.StatusBadRequest, product.HTTPError{Error: "please fill in all required fields"})
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || !price.IsPositive() {
		c.JSON(http.StatusBadRequest, product.HTTPError{Error: "price must be greater than 0"})
		return
	}

	p := &product.Product{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       price.String(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.products.Create(c.Request.Context(), p); err != nil {
		log.Printf("[admin] create product: %v", err)
		c.JSON(http.StatusBadGateway, product.HTTPError{Error: "failed to add product, please try again"})
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (a *admin) deleteProduct(c *gin.Context) {
	id := c.Param("id")

	p, err := a.products.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, product.HTTPError{Error: "not found"})
		return
	}

	ok, err := a.products.Delete(c.Request.Context(), id)
	if err != nil {
		log.Printf("[admin] delete product: %v", err)
		c.JSON(http.StatusBadGateway, product.HTTPError{Error: "failed to delete product"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, product.HTTPError{Error: "not found"})
		return
	}

	// stored image objects go best-effort: a storage failure is logged,
	// never surfaced
	for _, url := range p.Images {
		path, ok := a.images.ObjectPath(url)
		if !ok {
			continue
		}
		if err := a.images.Remove(c.Request.Context(), path); err != nil {
			log.Printf("[admin] delete image %s: %v", path, err)
		}
	}
	c.Status(http.StatusNoContent)
}

func (a *admin) uploadImages(c *gin.Context) {
	id := c.Param("id")

	p, err := a.products.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, product.HTTPError{Error: "not found"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, product.HTTPError{Error: "invalid upload"})
		return
	}
	files := form.File["images"]

	batch := make([]product.Upload, 0, len(files))
	for _, fh := range files {
		batch = append(batch, product.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
		})
	}
	// validated as a whole before a single byte is uploaded
	if err := product.ValidateBatch(len(p.Images), batch); err != nil {
		c.JSON(http.StatusBadRequest, product.HTTPError{Error: err.Error()})
		return
	}

	uploaded := make([]string, 0, len(files))
	paths := make([]string, 0, len(files))
	for i, fh := range files {
		f, err := fh.Open()
		if err != nil {
			a.undoUploads(c.Request.Context(), paths)
			c.JSON(http.StatusBadRequest, product.HTTPError{Error: "could not read " + fh.Filename})
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, product.MaxImageBytes))
		f.Close()
		if err != nil {
			a.undoUploads(c.Request.Context(), paths)
			c.JSON(http.StatusBadRequest, product.HTTPError{Error: "could not read " + fh.Filename})
			return
		}

		path := product.ImagePath(p.ID, len(p.Images)+i, batch[i].ContentType)
		url, err := a.images.Upload(c.Request.Context(), path, batch[i].ContentType, data)
		if err != nil {
			log.Printf("[admin] upload image %s: %v", path, err)
			a.undoUploads(c.Request.Context(), paths)
			c.JSON(http.StatusBadGateway, product.HTTPError{Error: "image upload failed, please try again"})
			return
		}
		uploaded = append(uploaded, url)
		paths = append(paths, path)
	}

	images := append(append([]string(nil), p.Images...), uploaded...)
	if err := a.products.UpdateImages(c.Request.Context(), p.ID, images); err != nil {
		log.Printf("[admin] update image list: %v", err)
		a.undoUploads(c.Request.Context(), paths)
		c.JSON(http.StatusBadGateway, product.HTTPError{Error: "image upload failed, please try again"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

// undoUploads removes objects of a half-done batch so a failed upload
// leaves nothing applied.
func (a *admin) undoUploads(ctx context.Context, paths []string) {
	for _, path := range paths {
		if err := a.images.Remove(ctx, path); err != nil {
			log.Printf("[admin] rollback image %s: %v", path, err)
		}
	}
}

func (a *admin) listPendingOrders(c *gin.Context) {
	pending, err := a.orders.ListPending(c.Request.Context(), pendingLimit)
	if err != nil {
		log.Printf("[admin] list orders: %v", err)
		c.JSON(http.StatusBadGateway, product.HTTPError{Error: "failed to load orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": order.Group(pending)})
}

func (a *admin) completeOrder(c *gin.Context) {
	err := a.orders.MarkCompleted(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "order marked as completed"})
	case errors.Is(err, order.ErrNotFound):
		c.JSON(http.StatusNotFound, product.HTTPError{Error: "order not found"})
	default:
		log.Printf("[admin] complete order: %v", err)
		c.JSON(http.StatusBadGateway, product.HTTPError{Error: "failed to mark order as completed"})
	}
}
