package model

import "fmt"

// Refresh token rejections. All of them are unauthorized.
var (
	ErrTokenRevoked  = fmt.Errorf("refresh token revoked: %w", ErrUnauthorized)
	ErrTokenExpired  = fmt.Errorf("refresh token expired: %w", ErrUnauthorized)
	ErrTokenMismatch = fmt.Errorf("refresh token mismatch: %w", ErrUnauthorized)
)
