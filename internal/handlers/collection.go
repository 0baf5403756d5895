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

type CollectionHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *CollectionHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "catalog_events", fmt.Sprint(event["collectionID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

type collectionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

func (h *CollectionHandler) GetCollections(c echo.Context) error {
	var collections []models.Collection
	if err := h.DB.Order("created_at DESC").Find(&collections).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	return c.JSON(http.StatusOK, collections)
}

func (h *CollectionHandler) GetCollection(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var collection models.Collection
	if err := h.DB.First(&collection, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Collection not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	return c.JSON(http.StatusOK, collection)
}

func (h *CollectionHandler) CreateCollection(c echo.Context) error {
	var req collectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return validationError(c, FieldError{Field: "title", Message: "Title is required"})
	}

	collection := models.Collection{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
	if err := h.DB.Create(&collection).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	h.publish(c, map[string]any{
		"type":         "collection_created",
		"collectionID": collection.ID,
		"title":        collection.Title,
	})

	return c.JSON(http.StatusCreated, collection)
}

func (h *CollectionHandler) UpdateCollection(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req collectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return validationError(c, FieldError{Field: "title", Message: "Title is required"})
	}

	var collection models.Collection
	if err := h.DB.First(&collection, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Collection not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	collection.Title = strings.TrimSpace(req.Title)
	collection.Description = req.Description
	collection.ImageURL = req.ImageURL
	if err := h.DB.Save(&collection).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	h.publish(c, map[string]any{
		"type":         "collection_updated",
		"collectionID": collection.ID,
		"title":        collection.Title,
	})

	return c.JSON(http.StatusOK, collection)
}

func (h *CollectionHandler) DeleteCollection(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var collection models.Collection
	if err := h.DB.First(&collection, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Collection not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	var productCount int64
	if err := h.DB.Model(&models.Product{}).Where("collection_id = ?", id).Count(&productCount).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	if productCount > 0 {
		return echo.NewHTTPError(http.StatusConflict,
			"Cannot delete this collection because it has products. Delete products first.")
	}

	if err := h.DB.Delete(&collection).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	h.publish(c, map[string]any{
		"type":         "collection_deleted",
		"collectionID": id,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "Collection deleted"})
}
