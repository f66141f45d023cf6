// Package common contains shared constants, sentinel errors and small helpers
// used across webmail server components.
package common

// AuthorizationHeader carries the bearer access token on API requests.
const AuthorizationHeader = "Authorization"

// BearerPrefix precedes the token inside AuthorizationHeader.
const BearerPrefix = "Bearer "

// DefaultStorageQuota is the per-user attachment quota in bytes (100 MiB).
const DefaultStorageQuota int64 = 104857600
