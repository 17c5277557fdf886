package models

import "github.com/pkg/errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrServer              = errors.New("server error")
)
