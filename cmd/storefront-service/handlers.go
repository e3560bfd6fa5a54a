package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/doughsido/bakeshop/internal/checkout"
	"github.com/doughsido/bakeshop/internal/httpx"
	"github.com/doughsido/bakeshop/internal/product"
)

const (
	sessionCookie = "bakeshop_session"
	sessionMaxAge = 24 * time.Hour
)

type storefront struct {
	products product.Repository
	sessions checkout.Store
	flow     *checkout.Orchestrator
	// payCfg is what the payment widget needs to bootstrap itself:
	// client id, currency, intent and funding hints
	payCfg gin.H
}

func newRouter(s *storefront) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	r.GET("/products", s.listProducts)

	r.GET("/cart", s.showCart)
	r.POST("/cart/items", s.addItem)
	r.PUT("/cart/items/:productID", s.setQuantity)
	r.DELETE("/cart/items/:productID", s.removeItem)

	r.GET("/checkout/config", s.paymentConfig)
	r.PUT("/checkout/contact", s.setContact)
	r.POST("/checkout/payment", s.proceedToPayment)
	r.POST("/checkout/payment/capture", s.capturePayment)
	r.POST("/checkout/payment/cancel", s.cancelPayment)
	r.POST("/checkout/back", s.backToCart)

	return r
}

// cartView is what every cart/checkout endpoint answers with, so the
// client always sees the state it must render next.
type cartView struct {
	State checkout.State `json:"state"`
	Lines []lineView     `json:"lines"`
	Total string         `json:"total"`
}

type lineView struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	LineTotal   string `json:"line_total"`
}

func viewOf(sess *checkout.Session) cartView {
	v := cartView{
		State: sess.State,
		Lines: make([]lineView, 0, sess.Cart.Len()),
		Total: sess.Cart.Total().StringFixed(2),
	}
	for _, l := range sess.Cart.Lines {
		v.Lines = append(v.Lines, lineView{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice.StringFixed(2),
			Quantity:    l.Quantity,
			LineTotal:   l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).StringFixed(2),
		})
	}
	return v
}

// session loads the shopper's checkout session, minting a cookie-backed
// token on first contact.
func (s *storefront) session(c *gin.Context) (string, *checkout.Session, bool) {
	token := httpx.SessionToken(c, sessionCookie, sessionMaxAge)
	sess, err := s.sessions.Load(c.Request.Context(), token)
	if err != nil {
		log.Printf("[storefront] session load: %v", err)
		c.JSON(http.StatusInternalServerError, product.HTTPError{Error: "something went wrong, please try again"})
		return "", nil, false
	}
	return token, sess, true
}

func (s *storefront) save(c *gin.Context, token string, sess *checkout.Session) bool {
	if err := s.sessions.Save(c.Request.Context(), token, sess); err != nil {
		log.Printf("[storefront] session save: %v", err)
		c.JSON(http.StatusInternalServerError, product.HTTPError{Error: "something went wrong, please try again"})
		return false
	}
	return true
}

func (s *storefront) listProducts(c *gin.Context) {
	var q struct {
		Limit int `form:"limit"`
	}
	_ = c.ShouldBindQuery(&q)

	items, err := s.products.List(c.Request.Context(), product.Query{OrderBy: product.OrderByName, Limit: q.Limit})
	if err != nil {
		log.Printf("[storefront] list products: %v", err)
		c.JSON(http.StatusBadGateway, product.HTTPError{Error: "failed to load products"})
		return
	}
	if items == nil {
		items = []product.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *storefront) showCart(c *gin.Context) {
	_, sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (s *storefront) addItem(c *gin.Context) {
	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ProductID == "" {
		c.JSON(http.StatusBadRequest, product.HTTPError{Error: "product_id is required"})
		return
	}

	p, err := s.products.GetByID(c.Request.Context(), req.ProductID)
	if err != nil {
		c.JSON(http.StatusNotFound, product.HTTPError{Error: "product not found"})
		return
	}
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		log.Printf("[storefront] bad price on product %s: %q", p.ID, p.Price)
		c.JSON(http.StatusInternalServerError, product.HTTPError{Error: "something went wrong, please try again"})
		return
	}

	token, sess, ok := s.session(c)
	if !ok {
		return
	}
	sess.AddItem(p.ID, p.Name, price)
	if !s.save(c, token, sess) {
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (s *storefront) setQuantity(c *gin.Context) {
	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		c.JSON(http.StatusBadRequest, product.HTTPError{Error: "quantity is required"})
		return
	}

	token, sess, ok := s.session(c)
	if !ok {
		return
	}
	sess.SetQuantity(c.Param("productID"), *req.Quantity)
	if !s.save(c, token, sess) {
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (s *storefront) removeItem(c *gin.Context) {
	token, sess, ok := s.session(c)
	if !ok {
		return
	}
	sess.RemoveItem(c.Param("productID"))
	if !s.save(c, token, sess) {
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (s *storefront) paymentConfig(c *gin.Context) {
	if s.payCfg == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s.payCfg)
}

func (s *storefront) setContact(c *gin.Context) {
	var req checkout.CustomerInfo
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, product.HTTPError{Error: "invalid contact info"})
		return
	}

	token, sess, ok := s.session(c)
	if !ok {
		return
	}
	sess.SetCustomer(req)
	if !s.save(c, token, sess) {
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (s *storefront) proceedToPayment(c *gin.Context) {
	token, sess, ok := s.session(c)
	if !ok {
		return
	}

	err := s.flow.ProceedToPayment(c.Request.Context(), sess)
	switch {
	case err == nil:
	case errors.Is(err, checkout.ErrNameRequired),
		errors.Is(err, checkout.ErrPhoneRequired),
		errors.Is(err, checkout.ErrCartEmpty),
		errors.Is(err, checkout.ErrPaymentNotReady):
		c.JSON(http.StatusBadRequest, product.HTTPError{Error: err.Error()})
		return
	default:
		log.Printf("[storefront] proceed to payment: %v", err)
		c.JSON(http.StatusBadGateway, product.HTTPError{Error: "could not start payment, please try again"})
		return
	}

	if !s.save(c, token, sess) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":            sess.State,
		"payment_order_id": sess.PaymentOrderID,
		"total":            sess.Cart.Total().StringFixed(2),
	})
}

func (s *storefront) capturePayment(c *gin.Context) {
	// Take the per-session capture lock before even loading the session:
	// two concurrent captures would otherwise each load a PaymentReady
	// copy and both fan out order rows for the same payment.
	token := httpx.SessionToken(c, sessionCookie, sessionMaxAge)
	got, err := s.sessions.AcquireCapture(c.Request.Context(), token)
	if err != nil {
		log.Printf("[storefront] capture lock: %v", err)
		c.JSON(http.StatusInternalServerError, product.HTTPError{Error: "something went wrong, please try again"})
		return
	}
	if !got {
		c.JSON(http.StatusConflict, product.HTTPError{Error: "your payment is already being processed"})
		return
	}
	defer func() {
		if err := s.sessions.ReleaseCapture(c.Request.Context(), token); err != nil {
			log.Printf("[storefront] capture unlock: %v", err)
		}
	}()

	sess, err := s.sessions.Load(c.Request.Context(), token)
	if err != nil {
		log.Printf("[storefront] session load: %v", err)
		c.JSON(http.StatusInternalServerError, product.HTTPError{Error: "something went wrong, please try again"})
		return
	}

	itemCount := sess.Cart.Len()
	cap, err := s.flow.Approve(c.Request.Context(), sess)

	var partial *checkout.PartialRecordError
	switch {
	case err == nil:
		if !s.save(c, token, sess) {
			return
		}
		plural := ""
		if itemCount != 1 {
			plural = "s"
		}
		c.JSON(http.StatusOK, gin.H{
			"message":    fmt.Sprintf("Payment successful! Order placed for %d item%s. We will contact you soon.", itemCount, plural),
			"payment_id": cap.ID,
		})
	case errors.Is(err, checkout.ErrNoPaymentInProgress):
		c.JSON(http.StatusConflict, product.HTTPError{Error: err.Error()})
	case errors.As(err, &partial):
		// the charge went through; never report this as a plain failure
		if !s.save(c, token, sess) {
			return
		}
		log.Printf("[storefront] partial order recording: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      err.Error(),
			"payment_id": partial.PaymentID,
		})
	default:
		if !s.save(c, token, sess) {
			return
		}
		log.Printf("[storefront] capture: %v", err)
		c.JSON(http.StatusBadGateway, product.HTTPError{Error: "payment processing failed, please try again"})
	}
}

func (s *storefront) cancelPayment(c *gin.Context) {
	token, sess, ok := s.session(c)
	if !ok {
		return
	}
	if err := s.flow.CancelPayment(sess); err != nil {
		c.JSON(http.StatusConflict, product.HTTPError{Error: err.Error()})
		return
	}
	if !s.save(c, token, sess) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment was cancelled.", "state": sess.State})
}

func (s *storefront) backToCart(c *gin.Context) {
	token, sess, ok := s.session(c)
	if !ok {
		return
	}
	sess.BackToCart()
	if !s.save(c, token, sess) {
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}
