package server

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrAuth 令牌无效（格式错误、签名不符或已过期），加入请求将被拒绝
var ErrAuth = errors.New("invalid token")

// Authenticator 解析加入令牌，得到连接绑定的 UserID
// 核心对认证的契约是“解码并信任”：令牌由外部登录服务签发，
// 配置了密钥时校验 HMAC 签名，否则只解码声明；过期一律拒绝
type Authenticator struct {
	secret         []byte
	allowAnonymous atomic.Bool
}

func NewAuthenticator(secret string, allowAnonymous bool) *Authenticator {
	a := &Authenticator{}
	if secret != "" {
		a.secret = []byte(secret)
	}
	a.allowAnonymous.Store(allowAnonymous)
	return a
}

// AllowAnonymous 当前是否允许匿名加入（可由 /admin/config 热更新）
func (a *Authenticator) AllowAnonymous() bool { return a.allowAnonymous.Load() }

func (a *Authenticator) SetAllowAnonymous(v bool) { a.allowAnonymous.Store(v) }

// Authenticate 从令牌中取出 userId；空令牌仅在允许匿名时放行（分配随机访客 id）
func (a *Authenticator) Authenticate(token string) (UserID, error) {
	if token == "" {
		if a.AllowAnonymous() {
			return UserID("guest-" + uuid.NewString()), nil
		}
		return "", fmt.Errorf("empty token: %w", ErrAuth)
	}

	claims := jwt.MapClaims{}
	if len(a.secret) > 0 {
		// 校验签名与过期时间（Parse 默认检查 exp）
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return a.secret, nil
		})
		if err != nil {
			return "", fmt.Errorf("parse token: %w: %v", ErrAuth, err)
		}
	} else {
		// 未配置密钥：只解码声明，不验签；过期仍需自行检查
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return "", fmt.Errorf("decode token: %w: %v", ErrAuth, err)
		}
		exp, err := claims.GetExpirationTime()
		if err != nil {
			return "", fmt.Errorf("token exp claim: %w", ErrAuth)
		}
		if exp != nil && exp.Before(time.Now()) {
			return "", fmt.Errorf("token expired: %w", ErrAuth)
		}
	}

	sub, ok := claims["userId"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("token missing userId claim: %w", ErrAuth)
	}
	return UserID(sub), nil
}
