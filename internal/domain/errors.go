package domain

import "errors"

var (
	ErrInvalidTenantID = errors.New("invalid tenant id")
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrRoomOffline     = errors.New("live room is offline")
	ErrPoolClosed      = errors.New("connection pool is closed")
)
