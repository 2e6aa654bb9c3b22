// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides DeviceID, which resolves the caller's device identity.
// Every diner action is attributed to a device rather than an account: the
// client persists a stable identifier locally and sends it on each request.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// deviceIDKey is the Gin context key under which the device id is stored.
	deviceIDKey = "deviceID"
	// HeaderDeviceID carries the client's stable device identifier.
	HeaderDeviceID = "X-Device-ID"
	// maxDeviceIDLen bounds the accepted identifier length.
	maxDeviceIDLen = 128
)

// DeviceID extracts the caller's device identifier from X-Device-ID and
// stores it in the Gin context. When the header is absent or oversized the
// client IP is used so that anonymous requests still get a stable-ish
// identity for rate limiting and logging.
//
// Place this early in the chain, after RequestID.
func DeviceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderDeviceID))
		if id == "" || len(id) > maxDeviceIDLen {
			id = "ip:" + c.ClientIP()
		}
		c.Set(deviceIDKey, id)
		c.Next()
	}
}

// DeviceFrom returns the device identity resolved by DeviceID, or "" when the
// middleware did not run.
func DeviceFrom(c *gin.Context) string {
	if v, ok := c.Get(deviceIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
