package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/permbase/pkg/auth"
	"github.com/permbase/pkg/logger"
	"github.com/permbase/pkg/response"
	"go.uber.org/zap"
)

// JWTAuth JWT认证中间件
func JWTAuth(jwtManager *auth.JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 从Header获取token
		token := c.Get("Authorization")
		if token == "" {
			// 尝试从query参数获取
			token = c.Query("token")
		}

		if token == "" {
			return response.Unauthorized(c, "未提供认证令牌")
		}

		// 去除Bearer前缀
		token = strings.TrimPrefix(token, "Bearer ")

		// 验证token
		claims, err := jwtManager.ParseToken(token)
		if err != nil {
			return response.Unauthorized(c, "无效的认证令牌")
		}

		// 将用户信息存入上下文
		c.Locals("userId", claims.UserID)
		c.Locals("username", claims.Username)
		c.Locals("roleId", claims.RoleID)
		c.Locals("roleName", claims.RoleName)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// RequireRole 要求调用方持有指定角色之一，否则拒绝访问
func RequireRole(roleNames ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roleNames))
	for _, name := range roleNames {
		allowed[name] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		roleName, _ := c.Locals("roleName").(string)
		if _, ok := allowed[roleName]; !ok {
			return response.Forbidden(c, "当前角色无权执行此操作")
		}
		return c.Next()
	}
}

// RequestID 请求ID中间件
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("requestId", reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// Recovery 恢复中间件
func Recovery() fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Path()),
					zap.String("method", c.Method()),
				)
				_ = response.ServerError(c, "服务器内部错误")
			}
		}()
		return c.Next()
	}
}

// Cors 跨域中间件
func Cors() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Access-Control-Allow-Origin", "*")
		c.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}
