package middleware

import (
	"github.com/gin-gonic/gin"
)

// abortJSON stops the chain with the API error envelope. Handlers write the
// same shape through handlers.Fail.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"requestId":  c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
		"statusCode": status,
	})
}
