package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// GenerateSignature 生成 HMAC 签名：method + path + body + timestamp
func GenerateSignature(method, path, body, timestamp, secretKey string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(fmt.Sprintf("%s%s%s", method, path, body+timestamp)))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignVerifyMiddleware API 签名验证中间件，maxSkew>0 时拒绝过期的时间戳
func SignVerifyMiddleware(secretKey string, maxSkew time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretKey == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Signed endpoints are disabled"})
			return
		}

		signature := c.GetHeader("Signature")
		if signature == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Signature is missing"})
			return
		}

		timestamp := c.DefaultQuery("timestamp", "")
		if timestamp == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Timestamp is missing"})
			return
		}
		if maxSkew > 0 {
			ts, err := strconv.ParseInt(timestamp, 10, 64)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Timestamp is invalid"})
				return
			}
			skew := time.Since(time.Unix(ts, 0))
			if skew > maxSkew || skew < -maxSkew {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Timestamp expired"})
				return
			}
		}

		// 读取请求体后需要放回，后续 handler 还要绑定
		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		expected := GenerateSignature(c.Request.Method, c.Request.URL.Path, string(body), timestamp, secretKey)
		if !hmac.Equal([]byte(signature), []byte(expected)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}

		c.Next()
	}
}
