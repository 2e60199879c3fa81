package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrEmptyFeed           = errors.New("empty tick table")
	ErrMissingColumn       = errors.New("missing required column")
	ErrInvalidOrder        = errors.New("invalid order parameters")
	ErrInsufficientHistory = errors.New("not enough data to annualize")
)
