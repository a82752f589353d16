package middlewares

import "github.com/gin-gonic/gin"

// abortError stops the chain with the same envelope the handlers package
// produces, so clients see one error shape regardless of which layer failed.
func abortError(c *gin.Context, status int, code, message string) {
	requestID := ""

	if v, ok := c.Get(CtxRequestID); ok {
		requestID, _ = v.(string)
	}

	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":      code,
			"message":   message,
			"requestId": requestID,
		},
	})
}
