package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"aquacare/database"
	"aquacare/services"
	"aquacare/utils"
)

// AuthMiddleware validates JWT tokens and extracts user information
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		if claims.FranchiseID != nil {
			c.Set("franchise_id", *claims.FranchiseID)
		}

		c.Next()
	}
}

// ViewAsMiddleware substitutes the effective identity of an admin with
// an active view-as session. The admin's real identity stays available
// under acting_admin_id so the audit trail records who actually acted.
func ViewAsMiddleware(store *services.ViewAsStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists || role.(string) != database.RoleAdmin {
			c.Next()
			return
		}

		adminID := c.GetUint("user_id")
		actor, ok := store.Resolve(adminID)
		if !ok {
			c.Next()
			return
		}

		c.Set("acting_admin_id", adminID)
		c.Set("user_id", actor.UserID)
		c.Set("role", actor.Role)
		if actor.FranchiseID != nil {
			c.Set("franchise_id", *actor.FranchiseID)
		}

		c.Next()
	}
}

// RoleAuthMiddleware restricts a route to the given roles
func RoleAuthMiddleware(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			c.Abort()
			return
		}

		userRole := role.(string)
		for _, r := range roles {
			if userRole == r {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		c.Abort()
	}
}

// AdminAuthMiddleware restricts a route to admins. View-as substitution
// runs before this, so an admin impersonating a customer is rejected
// here like a real customer would be.
func AdminAuthMiddleware() gin.HandlerFunc {
	return RoleAuthMiddleware(database.RoleAdmin)
}

// ServiceAgentAuthMiddleware restricts a route to service agents
func ServiceAgentAuthMiddleware() gin.HandlerFunc {
	return RoleAuthMiddleware(database.RoleServiceAgent)
}

// FranchiseOwnerAuthMiddleware restricts a route to franchise owners
func FranchiseOwnerAuthMiddleware() gin.HandlerFunc {
	return RoleAuthMiddleware(database.RoleFranchiseOwner)
}

// ActorFromContext builds the effective actor for the current request
func ActorFromContext(c *gin.Context) services.Actor {
	actor := services.Actor{
		UserID: c.GetUint("user_id"),
		Role:   c.GetString("role"),
	}
	if franchiseID, exists := c.Get("franchise_id"); exists {
		if id, ok := franchiseID.(uint); ok {
			actor.FranchiseID = &id
		}
	}
	return actor
}
