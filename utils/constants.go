package utils

import (
	"time"
)

// ContextKey is the type for request-scoped context values.
type ContextKey string

// Request context keys set by handlers for flows and audit logging.
const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Pricing constants
const (
	// RuleCacheTTL bounds staleness of the per-tenant rule-set cache.
	RuleCacheTTL = 2 * time.Minute

	// MaxRulesPerTenant caps how many rules a single tenant may define
	// for one service type.
	MaxRulesPerTenant = 200
)
