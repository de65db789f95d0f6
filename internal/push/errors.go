package push

import "errors"

var (
	// ErrGatewayUnavailable means no gateway is configured for the token kind
	ErrGatewayUnavailable = errors.New("push gateway not configured")
	// ErrInvalidToken means the gateway rejected the device token as unknown or expired
	ErrInvalidToken = errors.New("push token rejected by gateway")
)
