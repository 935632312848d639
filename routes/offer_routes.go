package routes

import (
	"offer-moderation/internal/handlers/admin"
	"offer-moderation/internal/handlers/driver"
	"offer-moderation/internal/middleware"
	"offer-moderation/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// SetupAdminOfferRoutes sets up the moderation routes. feed may be nil when
// the websocket feed is disabled.
func SetupAdminOfferRoutes(r *gin.RouterGroup, auth gin.HandlerFunc, handler *admin.OfferModerationHandler, feed *websocket.Handler) {
	offers := r.Group("/admin/offers")
	offers.Use(auth, middleware.AdminRequired())
	{
		offers.GET("", handler.ListOffers)
		offers.GET("/statistics", handler.GetStatistics)
		offers.GET("/:id", handler.GetOffer)
		offers.GET("/:id/audit", handler.GetAuditHistory)

		// Moderator actions
		offers.PATCH("/:id/approve", handler.ApproveOffer)
		offers.PATCH("/:id/reject", handler.RejectOffer)
		offers.PATCH("/:id/publish", handler.PublishOffer)
		offers.PATCH("/:id/archive", handler.ArchiveOffer)

		if feed != nil {
			offers.GET("/feed", feed.HandleWebSocket)
		}
	}
}

func SetupDriverOfferRoutes(r *gin.RouterGroup, auth gin.HandlerFunc, handler *driver.OfferHandler) {
	offers := r.Group("/driver/offers")
	offers.Use(auth, middleware.DriverRequired())
	{
		offers.POST("", handler.CreateOffer)
		offers.GET("", handler.ListOffers)
		offers.GET("/:id", handler.GetOffer)
		offers.PATCH("/:id/submit", handler.SubmitOffer)
	}
}
