package service

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidPhone     = errors.New("invalid phone number")
	ErrUserDisabled     = errors.New("user disabled")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidCartItem  = errors.New("invalid cart item")
	ErrCartTooLarge     = errors.New("cart exceeds item limit")
	ErrCartEmpty        = errors.New("cart is empty")
	ErrCheckoutConflict = errors.New("cart changed during checkout")
)
