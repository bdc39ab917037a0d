package middleware

import (
	"net/http"
	"strings"

	"booklog/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const IdentityKey = "identity"

const (
	sessionUID     = "uid"
	sessionName    = "display_name"
	sessionPicture = "photo_url"
)

// ErrorResponse 统一的错误响应
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// identityClaims 身份提供方签发的 token
type identityClaims struct {
	UID     string `json:"uid,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// LoadIdentity 校验 Bearer token 并把身份写入 context 与 session。
// 没有 token 时从 session 中恢复（浏览器的 WebSocket 握手无法带 header）
func LoadIdentity(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			if uid, ok := session.Get(sessionUID).(string); ok && uid != "" {
				name, _ := session.Get(sessionName).(string)
				picture, _ := session.Get(sessionPicture).(string)
				c.Set(IdentityKey, models.Identity{UID: uid, DisplayName: name, PhotoURL: picture})
			}
			c.Next()
			return
		}

		identity, err := ParseIdentityToken(strings.TrimSpace(auth[7:]), secret)
		if err != nil {
			abortUnauthorized(c, "invalid identity token")
			return
		}

		c.Set(IdentityKey, identity)
		if current, _ := session.Get(sessionUID).(string); current != identity.UID {
			session.Set(sessionUID, identity.UID)
			session.Set(sessionName, identity.DisplayName)
			session.Set(sessionPicture, identity.PhotoURL)
			session.Save()
		}
		c.Next()
	}
}

// ParseIdentityToken 只接受 HS256，uid 优先，其次 sub
func ParseIdentityToken(tokenStr, secret string) (models.Identity, error) {
	if secret == "" {
		return models.Identity{}, jwt.ErrTokenUnverifiable
	}

	var claims identityClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims,
		func(t *jwt.Token) (any, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return models.Identity{}, err
	}
	if !token.Valid {
		return models.Identity{}, jwt.ErrTokenSignatureInvalid
	}

	uid := claims.UID
	if uid == "" {
		uid = claims.Subject
	}
	if uid == "" {
		return models.Identity{}, jwt.ErrTokenRequiredClaimMissing
	}
	return models.Identity{UID: uid, DisplayName: claims.Name, PhotoURL: claims.Picture}, nil
}

// ClearIdentity 退出登录，清除 session 中的身份
func ClearIdentity(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
}

// AuthRequired ensures a caller identity is present
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentIdentity(c); !ok {
			abortUnauthorized(c, "sign in required")
			return
		}
		c.Next()
	}
}

// CurrentIdentity 未登录时 ok 为 false
func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return models.Identity{}, false
	}
	identity, ok := v.(models.Identity)
	return identity, ok && identity.UID != ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
		Error:   "unauthorized",
		Message: msg,
		Code:    http.StatusUnauthorized,
	})
}
