package order_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mohamadalijomaa25/lezedora/internal/handlers"
	orderhandlers "github.com/mohamadalijomaa25/lezedora/internal/handlers/order"
	"github.com/mohamadalijomaa25/lezedora/internal/httpserver"
	authmw "github.com/mohamadalijomaa25/lezedora/internal/middleware/auth"
	"github.com/mohamadalijomaa25/lezedora/internal/models"
	"github.com/mohamadalijomaa25/lezedora/internal/mykafka"
	"github.com/mohamadalijomaa25/lezedora/internal/order"
)

var jwtSecret = []byte("test-jwt-secret")

type testEnv struct {
	T  *testing.T
	E  *echo.Echo
	DB *gorm.DB
}

// newTestEnv wires the full router so the auth middleware chain is exercised
// the way real requests hit it.
func newTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Collection{}, &models.Product{}, &models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	prod := &mykafka.Producer{}
	e := echo.New()
	httpserver.Register(e, &httpserver.Deps{
		DB:                db,
		Auth:              &authmw.Middleware{JWTSecret: jwtSecret},
		AuthHandler:       &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, Producer: prod},
		CollectionHandler: &handlers.CollectionHandler{DB: db, Producer: prod},
		ProductHandler:    &handlers.ProductHandler{DB: db, Producer: prod},
		OrderHandler:      &orderhandlers.OrderHandler{Svc: &order.Service{DB: db}, Producer: prod},
	})

	return &testEnv{T: t, E: e, DB: db}
}

func (env *testEnv) seedUser(name, email, role string) models.User {
	user := models.User{Name: name, Email: email, PasswordHash: "x", Role: role}
	require.NoError(env.T, env.DB.Create(&user).Error)
	return user
}

func (env *testEnv) seedProduct(price float64, stock int) models.Product {
	collection := models.Collection{Title: "test_collection"}
	require.NoError(env.T, env.DB.FirstOrCreate(&collection, models.Collection{Title: "test_collection"}).Error)
	product := models.Product{
		CollectionID: collection.ID,
		Name:         "test_product",
		Price:        price,
		StockQty:     stock,
		IsActive:     true,
	}
	require.NoError(env.T, env.DB.Create(&product).Error)
	return product
}

func (env *testEnv) token(user models.User) string {
	token, err := authmw.SignToken(user.ID, user.Role, jwtSecret)
	require.NoError(env.T, err)
	return token
}

func (env *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	env.T.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func placeBody(productID uint, quantity int) map[string]any {
	return map[string]any{
		"delivery_address": "12 Main Street",
		"phone":            "+96170123456",
		"items":            []map[string]any{{"product_id": productID, "quantity": quantity}},
	}
}

func TestCreateOrderEndpoint(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedUser("Customer", "customer@example.com", "customer")
	product := env.seedProduct(9.99, 5)

	rec := env.do(http.MethodPost, "/api/orders", env.token(customer), placeBody(product.ID, 2))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, customer.ID, resp.UserID)
	require.Equal(t, models.OrderStatusPending, resp.Status)
	require.Equal(t, 19.98, resp.TotalAmount)
}

func TestCreateOrderEndpoint_Errors(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedUser("Customer", "customer@example.com", "customer")
	product := env.seedProduct(9.99, 1)

	// no token
	rec := env.do(http.MethodPost, "/api/orders", "", placeBody(product.ID, 1))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// unknown product
	rec = env.do(http.MethodPost, "/api/orders", env.token(customer), placeBody(9999, 1))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// insufficient stock
	rec = env.do(http.MethodPost, "/api/orders", env.token(customer), placeBody(product.ID, 3))
	require.Equal(t, http.StatusConflict, rec.Code)

	// empty address
	body := placeBody(product.ID, 1)
	body["delivery_address"] = "  "
	rec = env.do(http.MethodPost, "/api/orders", env.token(customer), body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrderEndpoint_AccessMatrix(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser("Owner", "owner@example.com", "customer")
	other := env.seedUser("Other", "other@example.com", "customer")
	admin := env.seedUser("Admin", "admin@example.com", "admin")
	product := env.seedProduct(5.00, 10)

	rec := env.do(http.MethodPost, "/api/orders", env.token(owner), placeBody(product.ID, 1))
	require.Equal(t, http.StatusCreated, rec.Code)

	var placed models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))

	// owner sees full item detail
	rec = env.do(http.MethodGet, "/api/orders/1", env.token(owner), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view order.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Len(t, view.Items, 1)
	require.Equal(t, "test_product", view.Items[0].ProductName)

	// a different customer is rejected
	rec = env.do(http.MethodGet, "/api/orders/1", env.token(other), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// admin may read anyone's order
	rec = env.do(http.MethodGet, "/api/orders/1", env.token(admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// absent order
	rec = env.do(http.MethodGet, "/api/orders/999", env.token(owner), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMyOrdersEndpoint(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedUser("Customer", "customer@example.com", "customer")
	other := env.seedUser("Other", "other@example.com", "customer")
	product := env.seedProduct(5.00, 10)

	require.Equal(t, http.StatusCreated,
		env.do(http.MethodPost, "/api/orders", env.token(customer), placeBody(product.ID, 1)).Code)
	require.Equal(t, http.StatusCreated,
		env.do(http.MethodPost, "/api/orders", env.token(other), placeBody(product.ID, 1)).Code)

	rec := env.do(http.MethodGet, "/api/orders/my", env.token(customer), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var mine []order.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	require.Equal(t, customer.ID, mine[0].UserID)
	require.Len(t, mine[0].Items, 1)
}

func TestAllOrdersEndpoint_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedUser("Customer", "customer@example.com", "customer")
	admin := env.seedUser("Admin", "admin@example.com", "admin")
	product := env.seedProduct(5.00, 10)

	require.Equal(t, http.StatusCreated,
		env.do(http.MethodPost, "/api/orders", env.token(customer), placeBody(product.ID, 1)).Code)

	rec := env.do(http.MethodGet, "/api/orders", env.token(customer), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodGet, "/api/orders", env.token(admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var all []order.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 1)
	require.Equal(t, "Customer", all[0].UserName)
	require.Equal(t, "customer@example.com", all[0].UserEmail)
}

func TestUpdateStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedUser("Customer", "customer@example.com", "customer")
	admin := env.seedUser("Admin", "admin@example.com", "admin")
	product := env.seedProduct(5.00, 10)

	require.Equal(t, http.StatusCreated,
		env.do(http.MethodPost, "/api/orders", env.token(customer), placeBody(product.ID, 1)).Code)

	// customers cannot change status
	rec := env.do(http.MethodPut, "/api/orders/1/status", env.token(customer), map[string]string{"status": "paid"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// value outside the enumeration
	rec = env.do(http.MethodPut, "/api/orders/1/status", env.token(admin), map[string]string{"status": "refunded"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPut, "/api/orders/1/status", env.token(admin), map[string]string{"status": "paid"})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, models.OrderStatusPaid, updated.Status)

	// legal value, illegal transition from paid
	rec = env.do(http.MethodPut, "/api/orders/1/status", env.token(admin), map[string]string{"status": "pending"})
	require.Equal(t, http.StatusConflict, rec.Code)
}
