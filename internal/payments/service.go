package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/angelmondragon/bookstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/payos"
)

const providerPayOS = "payos"

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type linkCreator interface {
	CreatePaymentLink(ctx context.Context, req payos.PaymentRequest) (*payos.PaymentLink, error)
}

// Service creates hosted payment links for online orders.
type Service interface {
	CreateLink(ctx context.Context, userID, orderID uuid.UUID) (*Link, error)
}

// Link is returned to the client to redirect the buyer to PayOS.
type Link struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderCode     int64     `json:"order_code"`
	Amount        int64     `json:"amount"`
	CheckoutURL   string    `json:"checkout_url"`
	PaymentLinkID string    `json:"payment_link_id"`
}

// ServiceParams wires the payments service.
type ServiceParams struct {
	Repo      Repository
	Orders    orderLoader
	Client    linkCreator
	ReturnURL string
	CancelURL string
}

type service struct {
	repo      Repository
	orders    orderLoader
	client    linkCreator
	returnURL string
	cancelURL string
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if params.Client == nil {
		return nil, fmt.Errorf("payos client required")
	}
	return &service{
		repo:      params.Repo,
		orders:    params.Orders,
		client:    params.Client,
		returnURL: params.ReturnURL,
		cancelURL: params.CancelURL,
	}, nil
}

// CreateLink asks PayOS for a checkout page for the caller's own unpaid
// online order and records a pending transaction.
func (s *service) CreateLink(ctx context.Context, userID, orderID uuid.UUID) (*Link, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !order.PaymentMethod.PaidOnline() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid online")
	}
	if order.PaymentStatus.IsSettled() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
	}

	amount := order.Total.Round(0).IntPart()
	if amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has nothing to pay")
	}

	link, err := s.client.CreatePaymentLink(ctx, payos.PaymentRequest{
		OrderCode:   order.OrderCode,
		Amount:      amount,
		Description: fmt.Sprintf("Order %d", order.OrderCode),
		ReturnURL:   s.returnURL,
		CancelURL:   s.cancelURL,
		Items:       paymentItems(order.Items),
	})
	if err != nil {
		return nil, err
	}

	txn := &models.PaymentTransaction{
		OrderID:       order.ID,
		OrderCode:     order.OrderCode,
		Provider:      providerPayOS,
		Amount:        order.Total,
		Status:        enums.TransactionStatusPending,
		PaymentLinkID: &link.PaymentLinkID,
		CheckoutURL:   &link.CheckoutURL,
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment transaction")
	}

	return &Link{
		OrderID:       order.ID,
		OrderCode:     order.OrderCode,
		Amount:        amount,
		CheckoutURL:   link.CheckoutURL,
		PaymentLinkID: link.PaymentLinkID,
	}, nil
}

func paymentItems(items []models.OrderItem) []payos.PaymentItem {
	out := make([]payos.PaymentItem, 0, len(items))
	for _, item := range items {
		out = append(out, payos.PaymentItem{
			Name:     item.Title,
			Quantity: item.Quantity,
			Price:    item.UnitPrice.Round(0).IntPart(),
		})
	}
	return out
}
