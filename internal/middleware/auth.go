package middleware

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// Cookie lifetimes, in seconds. The access token matches the JWT expiry the
// user service issues; the refresh token matches its stored expiry.
const (
	accessTokenMaxAge  = 24 * 3600
	refreshTokenMaxAge = 7 * 24 * 3600
)

// GetJWTSecret returns the HMAC key used to sign and verify access tokens.
func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "dev_only_signing_key" // local development fallback
	}
	return []byte(secret)
}

// cookiePolicy picks the cookie flags: cross-origin deployments need
// SameSite=None with Secure, local development wants Lax without it.
func cookiePolicy() (http.SameSite, bool) {
	if os.Getenv("GIN_MODE") == "release" || os.Getenv("RENDER") != "" {
		return http.SameSiteNoneMode, true
	}
	return http.SameSiteLaxMode, false
}

// SetTokenCookies plants access_token and refresh_token as HttpOnly cookies.
func SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	sameSite, secure := cookiePolicy()
	c.SetSameSite(sameSite)
	c.SetCookie("access_token", accessToken, accessTokenMaxAge, "/", "", secure, true)
	c.SetCookie("refresh_token", refreshToken, refreshTokenMaxAge, "/", "", secure, true)
}

// ClearTokenCookies expires both token cookies on logout.
func ClearTokenCookies(c *gin.Context) {
	sameSite, secure := cookiePolicy()
	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", secure, true)
	c.SetCookie("refresh_token", "", -1, "/", "", secure, true)
}

// bearerClaims pulls the access token from the cookie (or Authorization
// header as a fallback), verifies the HMAC signature, and plants the actor
// (userID, userRole) in the request context so handlers can attribute
// transitions and audit rows. Aborts the request on failure.
func bearerClaims(c *gin.Context) (jwt.MapClaims, string, bool) {
	tokenString, err := c.Cookie("access_token")
	if err != nil || tokenString == "" {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return nil, "", false
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
			return nil, "", false
		}
		tokenString = parts[1]
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return GetJWTSecret(), nil
	})
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
		return nil, "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
		return nil, "", false
	}

	role, ok := claims["role"].(string)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
		return nil, "", false
	}

	c.Set("userID", claims["sub"])
	c.Set("userRole", role)
	return claims, role, true
}

// RequireRole admits only the named roles. Used where the gate is who the
// actor is rather than what they may do, e.g. the audit trail is restricted
// to admin and supervisor.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role, ok := bearerClaims(c)
		if !ok {
			return
		}

		for _, allowed := range allowedRoles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// --- Permission-based middleware ---

// permCacheEntry holds the permission codes granted to one role, with TTL.
type permCacheEntry struct {
	codes     []string
	expiresAt time.Time
}

var (
	permCache    sync.Map // role name -> permCacheEntry
	permCacheTTL = 5 * time.Minute
)

// permDB backs role→permission lookups; set once via InitPermissionMiddleware.
var permDB *gorm.DB

// InitPermissionMiddleware sets the DB reference for RequirePermission.
func InitPermissionMiddleware(db *gorm.DB) {
	permDB = db
}

// RequirePermission admits actors whose role carries every named permission
// code (leave.decide, ledger.reconcile, kot.settle, ...). Lookups are cached
// per role for permCacheTTL; role edits call ClearPermissionCache so the new
// grants take effect immediately.
func RequirePermission(required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role, ok := bearerClaims(c)
		if !ok {
			return
		}

		granted, err := getPermissionsForRole(role)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
			return
		}

		permSet := make(map[string]bool, len(granted))
		for _, code := range granted {
			permSet[code] = true
		}
		for _, code := range required {
			if !permSet[code] {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+code+"'"))
				return
			}
		}

		c.Next()
	}
}

// getPermissionsForRole returns the permission codes for a role, from cache
// when fresh.
func getPermissionsForRole(roleName string) ([]string, error) {
	if entry, ok := permCache.Load(roleName); ok {
		cached := entry.(permCacheEntry)
		if time.Now().Before(cached.expiresAt) {
			return cached.codes, nil
		}
	}

	if permDB == nil {
		return nil, fmt.Errorf("permission middleware not initialized")
	}

	var codes []string
	err := permDB.Raw(`
		SELECT p.code FROM permissions p
		INNER JOIN role_permissions rp ON rp.permission_id = p.id
		INNER JOIN roles r ON r.id = rp.role_id
		WHERE r.name = ?
	`, roleName).Pluck("code", &codes).Error
	if err != nil {
		return nil, err
	}

	permCache.Store(roleName, permCacheEntry{
		codes:     codes,
		expiresAt: time.Now().Add(permCacheTTL),
	})

	return codes, nil
}

// GetPermissionsForRoleFromDB exposes permission fetching for handlers
// (the /me endpoint reports the caller's effective permissions).
func GetPermissionsForRoleFromDB(roleName string) ([]string, error) {
	return getPermissionsForRole(roleName)
}

// ClearPermissionCache drops cached permissions for a role, or for all roles
// when the name is empty.
func ClearPermissionCache(roleName string) {
	if roleName == "" {
		permCache.Range(func(key, _ interface{}) bool {
			permCache.Delete(key)
			return true
		})
	} else {
		permCache.Delete(roleName)
	}
}
