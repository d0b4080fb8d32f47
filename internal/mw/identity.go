package mw

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const userKey = "ccstock.user"

// Identity copies the acting user's email from header into the request context.
// Authentication happens upstream; an absent header leaves the user empty.
func Identity(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := strings.TrimSpace(c.GetHeader(header)); user != "" {
			c.Set(userKey, user)
		}
		c.Next()
	}
}

// User returns the acting user set by Identity, or "".
func User(c *gin.Context) string {
	return c.GetString(userKey)
}
