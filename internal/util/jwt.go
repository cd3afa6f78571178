package util

import (
	"errors"
	"fmt"
	"time"

	"course_progress_backend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextUserKey 认证中间件写入 Claims 的上下文键
const ContextUserKey = "user"

var ErrInvalidToken = errors.New("invalid token")

// Claims 与认证服务签发的令牌字段一致
type Claims struct {
	UserID uint           `json:"user_id"`
	Role   model.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// GenerateJWT 签发令牌（登录由外部认证服务负责，这里用于测试与运维脚本）
func GenerateJWT(userID uint, role model.UserRole, secret string, expiration time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseJWT 只接受 HS256，允许 30 秒时钟偏差
func ParseJWT(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func GetUserFromContext(c *gin.Context) *Claims {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
