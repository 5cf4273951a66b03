package service

import (
	"context"

	"storefront/model"
)

func (s *Service) GetCart(ctx context.Context, userID string) (model.Cart, error) {
	if err := requireUser(userID); err != nil {
		return model.Cart{}, err
	}
	return s.store.GetOrCreateCart(ctx, userID)
}

func (s *Service) AddToCart(ctx context.Context, userID string, productID int64, qty int) (model.Cart, error) {
	if err := requireUser(userID); err != nil {
		return model.Cart{}, err
	}
	if qty <= 0 {
		return model.Cart{}, model.ErrInvalidQuantity
	}
	if err := s.store.AddCartItem(ctx, userID, productID, qty); err != nil {
		return model.Cart{}, err
	}
	return s.store.GetOrCreateCart(ctx, userID)
}

func (s *Service) RemoveFromCart(ctx context.Context, userID string, productID int64) (model.Cart, error) {
	if err := requireUser(userID); err != nil {
		return model.Cart{}, err
	}
	if err := s.store.RemoveCartItem(ctx, userID, productID); err != nil {
		return model.Cart{}, err
	}
	return s.store.GetOrCreateCart(ctx, userID)
}

func (s *Service) UpdateCartQuantity(ctx context.Context, userID string, productID int64, qty int) (model.Cart, error) {
	if err := requireUser(userID); err != nil {
		return model.Cart{}, err
	}
	if qty <= 0 {
		return model.Cart{}, model.ErrInvalidQuantity
	}
	if err := s.store.SetCartItemQuantity(ctx, userID, productID, qty); err != nil {
		return model.Cart{}, err
	}
	return s.store.GetOrCreateCart(ctx, userID)
}
