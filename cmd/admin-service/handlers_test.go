package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/doughsido/bakeshop/internal/auth"
	ord "github.com/doughsido/bakeshop/internal/order"
	prod "github.com/doughsido/bakeshop/internal/product"
)

//
// ---------- STUBS & FAKES ----------
//

type fakeAuth struct{}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (string, error) {
	if username == "admin" && password == "secret" {
		return "tok-1", nil
	}
	return "", auth.ErrInvalidCredentials
}

func (f *fakeAuth) Verify(ctx context.Context, token string) error {
	if token == "tok-1" {
		return nil
	}
	return auth.ErrNoSession
}

func (f *fakeAuth) Logout(ctx context.Context, token string) error { return nil }

type stubProducts struct {
	byID      map[string]*prod.Product
	lastQuery prod.Query
}

func newStubProducts() *stubProducts {
	return &stubProducts{byID: map[string]*prod.Product{}}
}

func (s *stubProducts) Create(ctx context.Context, p *prod.Product) error {
	cp := *p
	s.byID[p.ID] = &cp
	return nil
}

func (s *stubProducts) GetByID(ctx context.Context, id string) (*prod.Product, error) {
	if p, ok := s.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, prod.ErrNotFound
}

func (s *stubProducts) List(ctx context.Context, q prod.Query) ([]prod.Product, error) {
	s.lastQuery = q
	out := make([]prod.Product, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (s *stubProducts) UpdateImages(ctx context.Context, id string, images []string) error {
	p, ok := s.byID[id]
	if !ok {
		return prod.ErrNotFound
	}
	p.Images = images
	return nil
}

func (s *stubProducts) Delete(ctx context.Context, id string) (bool, error) {
	if _, ok := s.byID[id]; !ok {
		return false, nil
	}
	delete(s.byID, id)
	return true, nil
}

type stubOrders struct {
	pending   []ord.Order
	completed []string
}

func (s *stubOrders) Create(ctx context.Context, o *ord.Order) error { return nil }

func (s *stubOrders) ListPending(ctx context.Context, limit int) ([]ord.Order, error) {
	return s.pending, nil
}

func (s *stubOrders) MarkCompleted(ctx context.Context, id string) error {
	for _, o := range s.pending {
		if o.ID == id {
			s.completed = append(s.completed, id)
			return nil
		}
	}
	return ord.ErrNotFound
}

const fakePublicPrefix = "https://cdn.test/storage/v1/object/public/product-images/"

type fakeStore struct {
	uploads    []string
	removed    []string
	failUpload bool
	failRemove bool
}

func (f *fakeStore) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	if f.failUpload {
		return "", fmt.Errorf("storage down")
	}
	f.uploads = append(f.uploads, path)
	return fakePublicPrefix + path, nil
}

func (f *fakeStore) Remove(ctx context.Context, path string) error {
	f.removed = append(f.removed, path)
	if f.failRemove {
		return fmt.Errorf("storage down")
	}
	return nil
}

func (f *fakeStore) ObjectPath(publicURL string) (string, bool) {
	if !strings.HasPrefix(publicURL, fakePublicPrefix) {
		return "", false
	}
	return strings.TrimPrefix(publicURL, fakePublicPrefix), true
}

func newTestAdmin() (*admin, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	a := &admin{
		auth:     &fakeAuth{},
		products: newStubProducts(),
		orders:   &stubOrders{},
		images:   &fakeStore{},
	}
	return a, newRouter(a)
}

func authed(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: adminCookie, Value: "tok-1"})
	return req
}

func doJSON(r *gin.Engine, method, path, body string, withSession bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if withSession {
		req = authed(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// multipartBody builds an "images" upload; sizes are faked with repeated
// bytes since only length matters to validation.
func multipartBody(t *testing.T, files []struct {
	name, ctype string
	size        int
}) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, f.name))
		h.Set("Content-Type", f.ctype)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(bytes.Repeat([]byte{0xAB}, f.size)); err != nil {
			t.Fatal(err)
		}
	}
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

//
// ---------- TESTS ----------
//

func TestLogin_And_SessionGate(t *testing.T) {
	_, r := newTestAdmin()

	// without a session, everything behind the gate is 401
	w := doJSON(r, http.MethodGet, "/admin/products", "", false)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("esperaba 401, got %d", w.Code)
	}

	// bad credentials
	w = doJSON(r, http.MethodPost, "/admin/login", `{"username":"admin","password":"wrong"}`, false)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("esperaba 401, got %d body=%s", w.Code, w.Body.String())
	}

	// good credentials set the session cookie
	w = doJSON(r, http.MethodPost, "/admin/login", `{"username":"admin","password":"secret"}`, false)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var got bool
	for _, ck := range w.Result().Cookies() {
		if ck.Name == adminCookie && ck.Value == "tok-1" {
			got = true
		}
	}
	if !got {
		t.Fatal("cookie de sesión no seteada")
	}

	// with the session the gate opens
	w = doJSON(r, http.MethodGet, "/admin/products", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestCreateProduct_Valid_And_Invalid(t *testing.T) {
	a, r := newTestAdmin()

	valid := `{"name":"Sourdough Loaf","description":"24h fermented","price":"8.50"}`
	w := doJSON(r, http.MethodPost, "/admin/products", valid, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var created prod.Product
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("respuesta sin id/timestamp: %+v", created)
	}
	if _, err := a.products.GetByID(context.Background(), created.ID); err != nil {
		t.Fatalf("producto no persistido: %v", err)
	}

	for name, body := range map[string]string{
		"missing name":  `{"price":"8.50"}`,
		"missing price": `{"name":"Loaf"}`,
		"zero price":    `{"name":"Loaf","price":"0"}`,
		"neg price":     `{"name":"Loaf","price":"-2.00"}`,
		"bad price":     `{"name":"Loaf","price":"abc"}`,
	} {
		w := doJSON(r, http.MethodPost, "/admin/products", body, true)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: esperaba 400, got %d body=%s", name, w.Code, w.Body.String())
		}
	}
}

func TestDeleteProduct_CascadesImagesBestEffort(t *testing.T) {
	a, r := newTestAdmin()
	store := a.images.(*fakeStore)

	p := &prod.Product{
		ID:    "p1",
		Name:  "Baguette",
		Price: "7.25",
		Images: []string{
			fakePublicPrefix + "products/p1/0-x.jpg",
			"https://elsewhere.example/not-ours.jpg",
		},
	}
	_ = a.products.Create(context.Background(), p)

	w := doJSON(r, http.MethodDelete, "/admin/products/p1", "", true)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if len(store.removed) != 1 || store.removed[0] != "products/p1/0-x.jpg" {
		t.Fatalf("removed=%+v", store.removed)
	}

	// a storage failure on cascade is logged, not surfaced
	store.failRemove = true
	_ = a.products.Create(context.Background(), &prod.Product{
		ID: "p2", Name: "X", Price: "1.00",
		Images: []string{fakePublicPrefix + "products/p2/0-y.jpg"},
	})
	w = doJSON(r, http.MethodDelete, "/admin/products/p2", "", true)
	if w.Code != http.StatusNoContent {
		t.Fatalf("fallo de storage no debe cambiar el status: %d", w.Code)
	}

	// 404
	w = doJSON(r, http.MethodDelete, "/admin/products/nope", "", true)
	if w.Code != http.StatusNotFound {
		t.Fatalf("esperaba 404, got %d", w.Code)
	}
}

func uploadReq(t *testing.T, path string, files []struct {
	name, ctype string
	size        int
}) *http.Request {
	t.Helper()
	body, ctype := multipartBody(t, files)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ctype)
	return authed(req)
}

func TestUploadImages_Valid(t *testing.T) {
	a, r := newTestAdmin()
	store := a.images.(*fakeStore)
	_ = a.products.Create(context.Background(), &prod.Product{ID: "p1", Name: "Loaf", Price: "8.50"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadReq(t, "/admin/products/p1/images", []struct {
		name, ctype string
		size        int
	}{
		{"front.jpg", "image/jpeg", 2048},
		{"side.png", "image/png", 1024},
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if len(store.uploads) != 2 {
		t.Fatalf("uploads=%+v", store.uploads)
	}
	p, _ := a.products.GetByID(context.Background(), "p1")
	if len(p.Images) != 2 || !strings.HasPrefix(p.Images[0], fakePublicPrefix) {
		t.Fatalf("images=%+v", p.Images)
	}
}

func TestUploadImages_OverLimitBatchRejectedWhole(t *testing.T) {
	a, r := newTestAdmin()
	store := a.images.(*fakeStore)
	_ = a.products.Create(context.Background(), &prod.Product{
		ID: "p1", Name: "Loaf", Price: "8.50",
		Images: []string{fakePublicPrefix + "products/p1/0-a.jpg", fakePublicPrefix + "products/p1/1-b.jpg",
			fakePublicPrefix + "products/p1/2-c.jpg", fakePublicPrefix + "products/p1/3-d.jpg"},
	})

	// 4 existing + 2 new > 5: the whole batch bounces, nothing is uploaded
	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadReq(t, "/admin/products/p1/images", []struct {
		name, ctype string
		size        int
	}{
		{"a.jpg", "image/jpeg", 100},
		{"b.jpg", "image/jpeg", 100},
	}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "4 of 5") {
		t.Fatalf("mensaje sin conteo: %s", w.Body.String())
	}
	if len(store.uploads) != 0 {
		t.Fatalf("no debió subir nada: %+v", store.uploads)
	}
}

func TestUploadImages_BadTypeRejectedBeforeUpload(t *testing.T) {
	a, r := newTestAdmin()
	store := a.images.(*fakeStore)
	_ = a.products.Create(context.Background(), &prod.Product{ID: "p1", Name: "Loaf", Price: "8.50"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadReq(t, "/admin/products/p1/images", []struct {
		name, ctype string
		size        int
	}{
		{"ok.jpg", "image/jpeg", 100},
		{"doc.pdf", "application/pdf", 100},
	}))
	if w.Code != http.StatusBadRequest || len(store.uploads) != 0 {
		t.Fatalf("status=%d uploads=%+v", w.Code, store.uploads)
	}
}

func TestUploadImages_StorageFailureRollsBack(t *testing.T) {
	a, r := newTestAdmin()
	store := a.images.(*fakeStore)
	store.failUpload = true
	_ = a.products.Create(context.Background(), &prod.Product{ID: "p1", Name: "Loaf", Price: "8.50"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadReq(t, "/admin/products/p1/images", []struct {
		name, ctype string
		size        int
	}{
		{"a.jpg", "image/jpeg", 100},
	}))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	p, _ := a.products.GetByID(context.Background(), "p1")
	if len(p.Images) != 0 {
		t.Fatalf("lista no debe cambiar: %+v", p.Images)
	}
}

func TestListPendingOrders_Grouped(t *testing.T) {
	a, r := newTestAdmin()
	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	a.orders.(*stubOrders).pending = []ord.Order{
		{ID: "o1", CustomerName: "Alice", PhoneNumber: "555-0100",
			TotalPrice: decimal.RequireFromString("12.50"), CreatedAt: day},
		{ID: "o2", CustomerName: "Alice", PhoneNumber: "555-0100",
			TotalPrice: decimal.RequireFromString("7.25"), CreatedAt: day.Add(time.Hour)},
		{ID: "o3", CustomerName: "Bob", PhoneNumber: "555-0199",
			TotalPrice: decimal.RequireFromString("3.00"), CreatedAt: day.AddDate(0, 0, 1)},
	}

	w := doJSON(r, http.MethodGet, "/admin/orders", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var got struct {
		Groups []struct {
			CustomerName string `json:"customer_name"`
			Total        string `json:"total"`
			Orders       []ord.Order
		} `json:"groups"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v body=%s", err, w.Body.String())
	}
	if len(got.Groups) != 2 {
		t.Fatalf("grupos=%+v", got.Groups)
	}
	if got.Groups[0].CustomerName != "Alice" || got.Groups[0].Total != "19.75" {
		t.Fatalf("grupo Alice=%+v", got.Groups[0])
	}
}

func TestCompleteOrder_OK_And_NotFound(t *testing.T) {
	a, r := newTestAdmin()
	orders := a.orders.(*stubOrders)
	orders.pending = []ord.Order{{ID: "o1", CustomerName: "Alice"}}

	w := doJSON(r, http.MethodPut, "/admin/orders/o1/complete", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if len(orders.completed) != 1 || orders.completed[0] != "o1" {
		t.Fatalf("completed=%+v", orders.completed)
	}

	w = doJSON(r, http.MethodPut, "/admin/orders/nope/complete", "", true)
	if w.Code != http.StatusNotFound {
		t.Fatalf("esperaba 404, got %d", w.Code)
	}
}
