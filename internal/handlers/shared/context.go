package shared

import (
	"time"

	"offer-moderation/internal/utils"
	"offer-moderation/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CurrentUserID returns the authenticated user id set by the auth
// middleware. It writes a 401 response when the id is missing.
func CurrentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	value, exists := c.Get(utils.ContextUserID)
	if !exists {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, false
	}

	userID, ok := value.(primitive.ObjectID)
	if !ok || userID.IsZero() {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, false
	}
	return userID, true
}

// ObjectIDParam parses a path parameter, writing a 400 response on failure.
func ObjectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	raw := c.Param(name)
	if errs := validators.ValidateObjectIDParam(name, raw); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return primitive.NilObjectID, false
	}
	id, _ := primitive.ObjectIDFromHex(raw)
	return id, true
}

// ParseDateQuery accepts RFC 3339 timestamps or plain dates. A plain date
// used as an upper bound covers the whole day.
func ParseDateQuery(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
