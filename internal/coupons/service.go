package coupons

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstore-backend/pkg/db"
	"github.com/angelmondragon/bookstore-backend/pkg/db/models"
	"github.com/angelmondragon/bookstore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstore-backend/pkg/errors"
	"github.com/angelmondragon/bookstore-backend/pkg/pagination"
)

const maxCodeLength = 32

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]+$`)

// Service is the admin surface for coupon definitions.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Coupon, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Coupon, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	List(ctx context.Context, activeOnly bool, params pagination.Params) (*ListResult, error)
}

// CreateInput carries a new coupon definition.
type CreateInput struct {
	Code              string
	Description       *string
	Type              enums.CouponType
	Value             decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	MinSubtotal       *decimal.Decimal
	StartsAt          *time.Time
	EndsAt            *time.Time
	IsActive          *bool
	UsageLimitTotal   *int
	UsageLimitPerUser *int
	ProductIDs        []uuid.UUID
	Categories        []string
}

// UpdateInput patches a coupon; nil fields are left untouched. Clear* flags
// drop optional limits.
type UpdateInput struct {
	Description       *string
	Type              *enums.CouponType
	Value             *decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	MinSubtotal       *decimal.Decimal
	StartsAt          *time.Time
	EndsAt            *time.Time
	IsActive          *bool
	UsageLimitTotal   *int
	UsageLimitPerUser *int
	ProductIDs        *[]uuid.UUID
	Categories        *[]string
	ClearMaxDiscount  bool
	ClearMinSubtotal  bool
	ClearWindow       bool
	ClearUsageLimits  bool
}

type ListResult struct {
	Coupons    []models.Coupon
	NextCursor string
}

type service struct {
	repo Repository
}

// NewService wires the admin coupon service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Coupon, error) {
	code := NormalizeCode(input.Code)
	if err := validateCode(code); err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	coupon := &models.Coupon{
		Code:              code,
		Description:       trimmedOrNil(input.Description),
		Type:              input.Type,
		Value:             input.Value,
		MaxDiscountAmount: input.MaxDiscountAmount,
		MinSubtotal:       input.MinSubtotal,
		StartsAt:          utcOrNil(input.StartsAt),
		EndsAt:            utcOrNil(input.EndsAt),
		IsActive:          active,
		UsageLimitTotal:   input.UsageLimitTotal,
		UsageLimitPerUser: input.UsageLimitPerUser,
		ProductIDs:        input.ProductIDs,
		Categories:        cleanCategories(input.Categories),
	}
	if err := validateTerms(coupon); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "coupon code %s already exists", code)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	return coupon, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Coupon, error) {
	coupon, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Description != nil {
		coupon.Description = trimmedOrNil(input.Description)
	}
	if input.Type != nil {
		coupon.Type = *input.Type
	}
	if input.Value != nil {
		coupon.Value = *input.Value
	}
	if input.ClearMaxDiscount {
		coupon.MaxDiscountAmount = nil
	} else if input.MaxDiscountAmount != nil {
		coupon.MaxDiscountAmount = input.MaxDiscountAmount
	}
	if input.ClearMinSubtotal {
		coupon.MinSubtotal = nil
	} else if input.MinSubtotal != nil {
		coupon.MinSubtotal = input.MinSubtotal
	}
	if input.ClearWindow {
		coupon.StartsAt, coupon.EndsAt = nil, nil
	}
	if input.StartsAt != nil {
		coupon.StartsAt = utcOrNil(input.StartsAt)
	}
	if input.EndsAt != nil {
		coupon.EndsAt = utcOrNil(input.EndsAt)
	}
	if input.IsActive != nil {
		coupon.IsActive = *input.IsActive
	}
	if input.ClearUsageLimits {
		coupon.UsageLimitTotal, coupon.UsageLimitPerUser = nil, nil
	}
	if input.UsageLimitTotal != nil {
		coupon.UsageLimitTotal = input.UsageLimitTotal
	}
	if input.UsageLimitPerUser != nil {
		coupon.UsageLimitPerUser = input.UsageLimitPerUser
	}
	if input.ProductIDs != nil {
		coupon.ProductIDs = *input.ProductIDs
	}
	if input.Categories != nil {
		coupon.Categories = cleanCategories(*input.Categories)
	}

	if err := validateTerms(coupon); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, coupon); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update coupon")
	}
	return coupon, nil
}

// Deactivate is the only removal path; redemption rows keep referencing the coupon.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !coupon.IsActive {
		return coupon, nil
	}
	coupon.IsActive = false
	if err := s.repo.Save(ctx, coupon); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate coupon")
	}
	return coupon, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return coupon, nil
}

func (s *service) List(ctx context.Context, activeOnly bool, params pagination.Params) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, ListFilter{ActiveOnly: activeOnly, Limit: limit, Cursor: cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}

	result := &ListResult{Coupons: rows}
	if len(rows) > limit {
		result.Coupons = rows[:limit]
		last := result.Coupons[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return result, nil
}

func validateCode(code string) error {
	switch {
	case code == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	case len(code) > maxCodeLength:
		return pkgerrors.Newf(pkgerrors.CodeValidation, "coupon code must be at most %d characters", maxCodeLength)
	case !codePattern.MatchString(code):
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon code may only contain letters, digits, dashes and underscores")
	}
	return nil
}

func validateTerms(c *models.Coupon) error {
	if !c.Type.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid coupon type %q", c.Type)
	}
	if c.Value.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon value must be non-negative")
	}
	if c.Type == enums.CouponTypePercent && c.Value.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percent coupon value must be between 0 and 100")
	}
	if c.MaxDiscountAmount != nil && c.MaxDiscountAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "max discount amount must be non-negative")
	}
	if c.MinSubtotal != nil && c.MinSubtotal.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "min subtotal must be non-negative")
	}
	if c.StartsAt != nil && c.EndsAt != nil && !c.EndsAt.After(*c.StartsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "ends_at must be after starts_at")
	}
	if c.UsageLimitTotal != nil && *c.UsageLimitTotal < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "usage limit total must be non-negative")
	}
	if c.UsageLimitPerUser != nil && *c.UsageLimitPerUser < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "usage limit per user must be non-negative")
	}
	return nil
}

func cleanCategories(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if c == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func utcOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
