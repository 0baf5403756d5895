package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mohamadalijomaa25/lezedora/internal/models"
	"github.com/mohamadalijomaa25/lezedora/internal/mykafka"
)

func newProductHandler(t *testing.T) (*ProductHandler, *gorm.DB) {
	db := initTestDB(t)
	return &ProductHandler{DB: db, Producer: &mykafka.Producer{}}, db
}

func seedCollection(t *testing.T, db *gorm.DB, title string) models.Collection {
	t.Helper()
	collection := models.Collection{Title: title}
	require.NoError(t, db.Create(&collection).Error)
	return collection
}

func TestCreateProduct(t *testing.T) {
	h, db := newProductHandler(t)
	e := echo.New()
	collection := seedCollection(t, db, "Soaps")

	rec, c := doJSONRequest(t, e, http.MethodPost, "/api/products", map[string]any{
		"collection_id": collection.ID,
		"name":          "Lavender Soap",
		"description":   "Hand made",
		"price":         9.99,
		"stock_qty":     5,
	})
	require.NoError(t, h.CreateProduct(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp ProductView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Lavender Soap", resp.Name)
	require.Equal(t, "Soaps", resp.CollectionTitle)
	require.Equal(t, 5, resp.StockQty)
	require.True(t, resp.IsActive)
}

func TestCreateProduct_InvalidCollection(t *testing.T) {
	h, _ := newProductHandler(t)
	e := echo.New()

	_, c := doJSONRequest(t, e, http.MethodPost, "/api/products", map[string]any{
		"collection_id": 9999,
		"name":          "Lavender Soap",
		"price":         9.99,
	})
	err := h.CreateProduct(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestCreateProduct_Validation(t *testing.T) {
	h, db := newProductHandler(t)
	e := echo.New()
	collection := seedCollection(t, db, "Soaps")

	rec, c := doJSONRequest(t, e, http.MethodPost, "/api/products", map[string]any{
		"collection_id": collection.ID,
		"name":          "  ",
		"price":         0.0,
	})
	require.NoError(t, h.CreateProduct(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Message string       `json:"message"`
		Details []FieldError `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Details, 2)
}

func TestGetProduct_HidesInactive(t *testing.T) {
	h, db := newProductHandler(t)
	e := echo.New()
	collection := seedCollection(t, db, "Soaps")

	product := models.Product{
		CollectionID: collection.ID,
		Name:         "Retired Soap",
		Price:        4.50,
		StockQty:     3,
		IsActive:     false,
	}
	require.NoError(t, db.Create(&product).Error)

	_, c := doJSONRequest(t, e, http.MethodGet, "/api/products/1", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	err := h.GetProduct(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusNotFound, he.Code)
}

func TestGetProducts_Filters(t *testing.T) {
	h, db := newProductHandler(t)
	e := echo.New()
	soaps := seedCollection(t, db, "Soaps")
	candles := seedCollection(t, db, "Candles")

	require.NoError(t, db.Create(&models.Product{
		CollectionID: soaps.ID, Name: "Lavender Soap", Description: "calming", Price: 9.99, StockQty: 5, IsActive: true,
	}).Error)
	require.NoError(t, db.Create(&models.Product{
		CollectionID: candles.ID, Name: "Beeswax Candle", Description: "warm", Price: 14.00, StockQty: 2, IsActive: true,
	}).Error)
	require.NoError(t, db.Create(&models.Product{
		CollectionID: soaps.ID, Name: "Hidden Soap", Price: 1.00, StockQty: 1, IsActive: false,
	}).Error)

	rec, c := doJSONRequest(t, e, http.MethodGet, "/api/products", nil)
	require.NoError(t, h.GetProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)
	var all []ProductView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 2, "inactive products are hidden")

	rec, c = doJSONRequest(t, e, http.MethodGet, "/api/products", nil)
	c.QueryParams().Set("search", "Lavender")
	require.NoError(t, h.GetProducts(c))
	var found []ProductView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	require.Len(t, found, 1)
	require.Equal(t, "Lavender Soap", found[0].Name)

	rec, c = doJSONRequest(t, e, http.MethodGet, "/api/products", nil)
	c.QueryParams().Set("collection_id", "2")
	require.NoError(t, h.GetProducts(c))
	var byCollection []ProductView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &byCollection))
	require.Len(t, byCollection, 1)
	require.Equal(t, "Beeswax Candle", byCollection[0].Name)
}

func TestUpdateProduct(t *testing.T) {
	h, db := newProductHandler(t)
	e := echo.New()
	collection := seedCollection(t, db, "Soaps")

	product := models.Product{
		CollectionID: collection.ID,
		Name:         "Lavender Soap",
		Price:        9.99,
		StockQty:     5,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&product).Error)

	inactive := false
	rec, c := doJSONRequest(t, e, http.MethodPut, "/api/products/1", map[string]any{
		"collection_id": collection.ID,
		"name":          "Lavender Soap XL",
		"price":         12.99,
		"stock_qty":     8,
		"is_active":     inactive,
	})
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.UpdateProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProductView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Lavender Soap XL", resp.Name)
	require.Equal(t, 12.99, resp.Price)
	require.Equal(t, 8, resp.StockQty)
	require.False(t, resp.IsActive)
}

func TestDeleteProduct(t *testing.T) {
	h, db := newProductHandler(t)
	e := echo.New()
	collection := seedCollection(t, db, "Soaps")

	require.NoError(t, db.Create(&models.Product{
		CollectionID: collection.ID, Name: "Lavender Soap", Price: 9.99, StockQty: 5, IsActive: true,
	}).Error)

	rec, c := doJSONRequest(t, e, http.MethodDelete, "/api/products/1", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.DeleteProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, db.Model(&models.Product{}).Count(&count).Error)
	require.Zero(t, count)

	// deleting again is a 404
	_, c = doJSONRequest(t, e, http.MethodDelete, "/api/products/1", nil)
	c.SetParamNames("id")
	c.SetParamValues("1")
	err := h.DeleteProduct(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusNotFound, he.Code)
}
