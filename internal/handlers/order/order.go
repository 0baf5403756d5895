package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohamadalijomaa25/lezedora/internal/logging"
	authmw "github.com/mohamadalijomaa25/lezedora/internal/middleware/auth"
	"github.com/mohamadalijomaa25/lezedora/internal/models"
	"github.com/mohamadalijomaa25/lezedora/internal/mykafka"
	"github.com/mohamadalijomaa25/lezedora/internal/order"
)

type OrderHandler struct {
	Svc      *order.Service
	Producer *mykafka.Producer
}

func (h *OrderHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["orderID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func httpError(err error) error {
	switch {
	case errors.Is(err, order.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
}

func isBusinessError(err error) bool {
	return errors.Is(err, order.ErrValidation) ||
		errors.Is(err, order.ErrNotFound) ||
		errors.Is(err, order.ErrForbidden) ||
		errors.Is(err, order.ErrConflict)
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	var req order.PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	placed, err := h.Svc.PlaceOrder(ctx, userID, req)
	if err != nil {
		l.Warn("create_order_error", "user_id", userID, "error", err)
		if !isBusinessError(err) {
			return echo.NewHTTPError(http.StatusInternalServerError, "order placement failed")
		}
		return httpError(err)
	}

	l.Info("create_order_success", "user_id", userID, "order_id", placed.ID, "total", placed.TotalAmount)
	h.publish(c, map[string]any{
		"type":    "order_created",
		"orderID": placed.ID,
		"userID":  userID,
		"total":   placed.TotalAmount,
	})

	return c.JSON(http.StatusCreated, placed)
}

func (h *OrderHandler) GetMyOrders(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	views, err := h.Svc.MyOrders(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, views)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	userID, err := authmw.UserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	view, err := h.Svc.OrderByID(c.Request().Context(), uint(id), userID, authmw.Role(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *OrderHandler) GetAllOrders(c echo.Context) error {
	views, err := h.Svc.AllOrders(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, views)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	updated, err := h.Svc.UpdateStatus(ctx, uint(id), req.Status)
	if err != nil {
		l.Warn("update_status_error", "order_id", id, "status", req.Status, "error", err)
		return httpError(err)
	}

	l.Info("update_status_success", "order_id", updated.ID, "status", updated.Status)
	h.publish(c, map[string]any{
		"type":    "order_status_updated",
		"orderID": updated.ID,
		"status":  updated.Status,
	})

	return c.JSON(http.StatusOK, updated)
}
