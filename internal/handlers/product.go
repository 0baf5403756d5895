package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mohamadalijomaa25/lezedora/internal/models"
	"github.com/mohamadalijomaa25/lezedora/internal/mykafka"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

// ProductView carries the product together with its collection title, the
// shape the storefront renders.
type ProductView struct {
	models.Product
	CollectionTitle string `json:"collection_title"`
}

type productRequest struct {
	CollectionID uint    `json:"collection_id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	ImageURL     string  `json:"image_url"`
	StockQty     *int    `json:"stock_qty"`
	IsActive     *bool   `json:"is_active"`
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *ProductHandler) validate(c echo.Context, req *productRequest) error {
	var details []FieldError
	if strings.TrimSpace(req.Name) == "" {
		details = append(details, FieldError{Field: "name", Message: "name is required"})
	}
	if req.Price < 0.01 {
		details = append(details, FieldError{Field: "price", Message: "price must be >= 0.01"})
	}
	if req.StockQty != nil && *req.StockQty < 0 {
		details = append(details, FieldError{Field: "stock_qty", Message: "stock_qty must be >= 0"})
	}
	if len(details) > 0 {
		return validationError(c, details...)
	}
	return nil
}

func (h *ProductHandler) collectionExists(id uint) (bool, error) {
	var count int64
	err := h.DB.Model(&models.Collection{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (h *ProductHandler) view(id uint) (*ProductView, error) {
	var v ProductView
	err := h.DB.Model(&models.Product{}).
		Select("products.*, collections.title AS collection_title").
		Joins("JOIN collections ON collections.id = products.collection_id").
		Where("products.id = ?", id).
		Scan(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &v, nil
}

// GetProducts lists active products, optionally filtered by collection and a
// name/description substring.
func (h *ProductHandler) GetProducts(c echo.Context) error {
	q := h.DB.Model(&models.Product{}).
		Select("products.*, collections.title AS collection_title").
		Joins("JOIN collections ON collections.id = products.collection_id").
		Where("products.is_active = ?", true)

	if raw := c.QueryParam("collection_id"); raw != "" {
		collectionID, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid collection_id")
		}
		q = q.Where("products.collection_id = ?", collectionID)
	}
	if search := c.QueryParam("search"); search != "" {
		pattern := "%" + search + "%"
		q = q.Where("products.name LIKE ? OR products.description LIKE ?", pattern, pattern)
	}

	var views []ProductView
	if err := q.Order("products.created_at DESC").Scan(&views).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	if views == nil {
		views = []ProductView{}
	}
	return c.JSON(http.StatusOK, views)
}

// GetProduct returns one product. Inactive products are hidden from the
// public read path.
func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	v, err := h.view(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	if !v.IsActive {
		return echo.NewHTTPError(http.StatusNotFound, "Product not found")
	}
	return c.JSON(http.StatusOK, v)
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := h.validate(c, &req); err != nil {
		return err
	}

	ok, err := h.collectionExists(req.CollectionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid collection_id")
	}

	product := models.Product{
		CollectionID: req.CollectionID,
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Price:        req.Price,
		ImageURL:     req.ImageURL,
		IsActive:     true,
	}
	if req.StockQty != nil {
		product.StockQty = *req.StockQty
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.DB.Create(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": product.ID,
		"name":      product.Name,
	})

	v, err := h.view(product.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := h.validate(c, &req); err != nil {
		return err
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	ok, err := h.collectionExists(req.CollectionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid collection_id")
	}

	product.CollectionID = req.CollectionID
	product.Name = strings.TrimSpace(req.Name)
	product.Description = req.Description
	product.Price = req.Price
	product.ImageURL = req.ImageURL
	if req.StockQty != nil {
		product.StockQty = *req.StockQty
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.DB.Save(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": product.ID,
		"name":      product.Name,
	})

	v, err := h.view(product.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	return c.JSON(http.StatusOK, v)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	if err := h.DB.Delete(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "Product deleted"})
}
