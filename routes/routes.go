package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"slotline/handlers"
	"slotline/middleware"
)

// HandlerBundle carries the assembled handlers for route registration.
type HandlerBundle struct {
	Conversation *handlers.ConversationHandler
	Voice        *handlers.VoiceHandler
	Tools        *handlers.ToolsHandler
	Admin        *handlers.AdminHandler
}

// RegisterRoutes wires every endpoint group onto the router.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", handlers.HealthHandler)

	chat := r.Group("/api/conversation")
	{
		chat.POST("/message", hb.Conversation.HandleChat)
	}

	voice := r.Group("/api/voice")
	{
		voice.POST("/message", hb.Voice.HandleVoiceMessage)

		tools := voice.Group("/tools")
		tools.POST("/checkAvailability", hb.Tools.CheckAvailability)
		tools.POST("/bookAppointment", hb.Tools.BookAppointment)
		tools.POST("/rescheduleAppointment", hb.Tools.RescheduleAppointment)
		tools.POST("/cancelAppointment", hb.Tools.CancelAppointment)
	}

	admin := r.Group("/api/admin")
	admin.Use(middleware.AdminAuthMiddleware())
	{
		admin.GET("/bookings", hb.Admin.ListBookings)
		admin.GET("/bookings/:id", hb.Admin.GetBooking)
		admin.GET("/bookings/manual-sync", hb.Admin.ListManualSync)
		admin.POST("/bookings/:id/resync", hb.Admin.ForceResync)
		admin.DELETE("/bookings/:id", hb.Admin.CancelBooking)
	}
}
