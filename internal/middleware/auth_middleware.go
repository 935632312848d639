package middleware

import (
	"errors"
	"net/http"
	"strings"

	"offer-moderation/internal/utils"
	"offer-moderation/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JWTClaims represents the JWT token claims. Tokens are issued elsewhere;
// this service only verifies them.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	UserType string `json:"user_type"`
	jwt.RegisteredClaims
}

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

// AuthRequired validates the bearer token and sets user_id and user_type on
// the context. An empty issuer disables the issuer check.
func AuthRequired(secret, issuer string) gin.HandlerFunc {
	parserOptions := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(parserOptions...)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		// Browsers cannot set headers on a websocket handshake
		if authHeader == "" && strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			if token := c.Query("access_token"); token != "" {
				authHeader = "Bearer " + token
			}
		}
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			abortUnauthorized(c, "Bearer token required")
			return
		}

		claims := &JWTClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errUnexpectedSigningMethod
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c, "Invalid token")
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			abortUnauthorized(c, "Invalid user ID in token")
			return
		}

		c.Set(utils.ContextUserID, userID)
		c.Set(utils.ContextUserType, claims.UserType)
		c.Request = c.Request.WithContext(logger.ContextWithActorID(c.Request.Context(), userID))

		c.Next()
	}
}

// AdminRequired middleware ensures user is an admin
func AdminRequired() gin.HandlerFunc {
	return requireUserType(utils.UserTypeAdmin, "Admin access required")
}

// DriverRequired middleware ensures user is a driver
func DriverRequired() gin.HandlerFunc {
	return requireUserType(utils.UserTypeDriver, "Driver access required")
}

func requireUserType(userType, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(utils.ContextUserType)
		if !exists {
			abortUnauthorized(c, "User type not found")
			return
		}

		if userTypeStr, ok := value.(string); !ok || userTypeStr != userType {
			utils.ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", message)
			c.Abort()
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
	c.Abort()
}
