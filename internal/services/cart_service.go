package services

import (
	"context"
	"fmt"

	"HBMartAPI/internal/model"
	"HBMartAPI/internal/repository"
)

type CartService struct {
	Repo     *repository.CartRepository
	Products *repository.ProductRepository
}

func NewCartService(repo *repository.CartRepository, products *repository.ProductRepository) *CartService {
	return &CartService{Repo: repo, Products: products}
}

func (s *CartService) Get(ctx context.Context, userID int64) (*model.CartResponse, error) {
	items, total, err := s.Repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.CartItem{}
	}
	return &model.CartResponse{Items: items, Total: total}, nil
}

func (s *CartService) Add(ctx context.Context, userID, productID int64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	p, err := s.Products.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNotFound
	}
	if p.Quantity < qty {
		return fmt.Errorf("only %d of %s in stock", p.Quantity, p.Name)
	}
	return s.Repo.AddOrIncrement(ctx, userID, productID, qty)
}

func (s *CartService) SetQuantity(ctx context.Context, userID, productID int64, qty int) error {
	if qty <= 0 {
		return s.Repo.Remove(ctx, userID, productID)
	}
	return s.Repo.SetQuantity(ctx, userID, productID, qty)
}

func (s *CartService) Remove(ctx context.Context, userID, productID int64) error {
	return s.Repo.Remove(ctx, userID, productID)
}

func (s *CartService) Clear(ctx context.Context, userID int64) error {
	return s.Repo.Clear(ctx, userID)
}
