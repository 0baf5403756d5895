package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mohamadalijomaa25/lezedora/internal/models"
)

var (
	ErrValidation = errors.New("validation") // 400
	ErrNotFound   = errors.New("not found")  // 404
	ErrForbidden  = errors.New("forbidden")  // 403
	ErrConflict   = errors.New("conflict")   // 409
)

type PlaceOrderItem struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type PlaceOrderRequest struct {
	DeliveryAddress string           `json:"delivery_address"`
	Phone           string           `json:"phone"`
	Items           []PlaceOrderItem `json:"items"`
}

type ItemView struct {
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type View struct {
	models.Order
	UserName  string     `json:"user_name,omitempty"`
	UserEmail string     `json:"user_email,omitempty"`
	Items     []ItemView `json:"items"`
}

// Service holds the placement engine and the order read paths. The DB handle
// is injected so tests can substitute their own store.
type Service struct {
	DB *gorm.DB
}

// PlaceOrder validates the proposed cart against the current catalog and
// converts it into a persisted order, decrementing stock for every line, all
// inside one transaction. Validation runs against a single batch fetch before
// anything is written; the stock decrement is conditional on remaining stock
// so concurrent placements cannot oversell.
func (s *Service) PlaceOrder(ctx context.Context, userID uint, req PlaceOrderRequest) (*models.Order, error) {
	req.DeliveryAddress = strings.TrimSpace(req.DeliveryAddress)
	req.Phone = strings.TrimSpace(req.Phone)

	if req.DeliveryAddress == "" {
		return nil, fmt.Errorf("%w: delivery_address is required", ErrValidation)
	}
	if req.Phone == "" {
		return nil, fmt.Errorf("%w: phone is required", ErrValidation)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: items must be a non-empty array", ErrValidation)
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: each item quantity must be a positive integer", ErrValidation)
		}
	}

	ids := make([]uint, 0, len(req.Items))
	seen := make(map[uint]struct{}, len(req.Items))
	for _, it := range req.Items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}

	var products []models.Product
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	if len(products) != len(ids) {
		return nil, fmt.Errorf("%w: one or more products are invalid", ErrValidation)
	}

	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	total := decimal.Zero
	for _, it := range req.Items {
		p := byID[it.ProductID]
		if !p.IsActive {
			return nil, fmt.Errorf("%w: product %d is not available", ErrValidation, p.ID)
		}
		if p.StockQty < it.Quantity {
			return nil, fmt.Errorf("%w: not enough stock for product %d", ErrConflict, p.ID)
		}
		line := decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(line)
	}
	totalAmount, _ := total.Round(2).Float64()

	order := models.Order{
		UserID:          userID,
		Status:          models.OrderStatusPending,
		TotalAmount:     totalAmount,
		DeliveryAddress: req.DeliveryAddress,
		Phone:           req.Phone,
	}

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for _, it := range req.Items {
			item := models.OrderItem{
				OrderID:   order.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				UnitPrice: byID[it.ProductID].Price,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}

			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock_qty >= ?", it.ProductID, it.Quantity).
				UpdateColumn("stock_qty", gorm.Expr("stock_qty - ?", it.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: not enough stock for product %d", ErrConflict, it.ProductID)
			}
		}
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, ErrConflict) {
			return nil, txErr
		}
		return nil, fmt.Errorf("order placement failed: %w", txErr)
	}

	return &order, nil
}

// MyOrders returns the caller's orders with nested items, newest first.
func (s *Service) MyOrders(ctx context.Context, userID uint) ([]View, error) {
	var orders []models.Order
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return s.attachItems(ctx, orders, false)
}

// OrderByID returns one order with items. Only the owner or an admin may
// read it.
func (s *Service) OrderByID(ctx context.Context, orderID, requesterID uint, requesterRole string) (*View, error) {
	var order models.Order
	if err := s.DB.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order not found", ErrNotFound)
		}
		return nil, err
	}

	if order.UserID != requesterID && requesterRole != "admin" {
		return nil, fmt.Errorf("%w: not allowed to view this order", ErrForbidden)
	}

	views, err := s.attachItems(ctx, []models.Order{order}, false)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// AllOrders returns every order with items and the requester's name and
// email, newest first. Admin only (enforced at the route).
func (s *Service) AllOrders(ctx context.Context) ([]View, error) {
	var orders []models.Order
	if err := s.DB.WithContext(ctx).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return s.attachItems(ctx, orders, true)
}

// UpdateStatus moves an order along the status graph. Values outside the
// enumeration are a validation error; legal values arriving in an illegal
// state are a conflict.
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status value", ErrValidation)
	}

	var order models.Order
	if err := s.DB.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order not found", ErrNotFound)
		}
		return nil, err
	}

	if !order.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: cannot move order from %s to %s", ErrConflict, order.Status, status)
	}

	if err := s.DB.WithContext(ctx).Model(&order).Update("status", status).Error; err != nil {
		return nil, err
	}
	order.Status = status
	return &order, nil
}

type itemRow struct {
	OrderID     uint
	ProductID   uint
	ProductName string
	Quantity    int
	UnitPrice   float64
}

type userRow struct {
	ID    uint
	Name  string
	Email string
}

func (s *Service) attachItems(ctx context.Context, orders []models.Order, withUsers bool) ([]View, error) {
	views := make([]View, len(orders))
	if len(orders) == 0 {
		return views, nil
	}

	orderIDs := make([]uint, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
	}

	var rows []itemRow
	if err := s.DB.WithContext(ctx).
		Model(&models.OrderItem{}).
		Select("order_items.order_id, order_items.product_id, products.name AS product_name, order_items.quantity, order_items.unit_price").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("order_items.order_id IN ?", orderIDs).
		Order("order_items.order_id DESC, order_items.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	itemsByOrder := make(map[uint][]ItemView, len(orders))
	for _, r := range rows {
		itemsByOrder[r.OrderID] = append(itemsByOrder[r.OrderID], ItemView{
			ProductID:   r.ProductID,
			ProductName: r.ProductName,
			Quantity:    r.Quantity,
			UnitPrice:   r.UnitPrice,
		})
	}

	usersByID := map[uint]userRow{}
	if withUsers {
		userIDs := make([]uint, 0, len(orders))
		for _, o := range orders {
			userIDs = append(userIDs, o.UserID)
		}
		var users []userRow
		if err := s.DB.WithContext(ctx).
			Model(&models.User{}).
			Select("id, name, email").
			Where("id IN ?", userIDs).
			Scan(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			usersByID[u.ID] = u
		}
	}

	for i, o := range orders {
		items := itemsByOrder[o.ID]
		if items == nil {
			items = []ItemView{}
		}
		views[i] = View{Order: o, Items: items}
		if withUsers {
			u := usersByID[o.UserID]
			views[i].UserName = u.Name
			views[i].UserEmail = u.Email
		}
	}
	return views, nil
}
