package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/groupdreaming/rosca-backend/internal/config"
	"github.com/groupdreaming/rosca-backend/internal/handlers"
	"github.com/groupdreaming/rosca-backend/internal/middleware"
	"github.com/groupdreaming/rosca-backend/pkg/metrics"
)

// HandlerDependencies carries the wired handlers into the router
type HandlerDependencies struct {
	AuthHandler         *handlers.AuthHandler
	GroupHandler        *handlers.GroupHandler
	MembershipHandler   *handlers.MembershipHandler
	PaymentHandler      *handlers.PaymentHandler
	AdjudicationHandler *handlers.AdjudicationHandler
	AuctionHandler      *handlers.AuctionHandler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())

	router.GET("/metrics", metrics.Handler())

	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		auth := public.Group("/auth")
		{
			auth.POST("/login", deps.AuthHandler.Login)
		}

		groups := public.Group("/groups")
		{
			groups.GET("", deps.GroupHandler.GetGroups)
			groups.GET("/templates", deps.GroupHandler.GetTemplates)
			groups.GET("/:id", deps.GroupHandler.GetGroup)
			groups.GET("/:id/schedule", deps.GroupHandler.GetSchedule)

			groups.POST("/:id/members", deps.MembershipHandler.Join)
			groups.GET("/:id/members", deps.MembershipHandler.GetMembers)
			groups.GET("/:id/members/:memberId", deps.MembershipHandler.GetMember)
			groups.POST("/:id/members/:memberId/leave", deps.MembershipHandler.Leave)
			groups.GET("/:id/members/:memberId/payments", deps.PaymentHandler.GetPayments)
			groups.GET("/:id/members/:memberId/receipts/:installment", deps.PaymentHandler.GetReceipt)
			groups.GET("/:id/members/:memberId/listing-quote", deps.AuctionHandler.QuoteListing)
			groups.POST("/:id/members/:memberId/list", deps.AuctionHandler.ListForSale)

			groups.POST("/:id/bids", deps.AdjudicationHandler.SubmitBid)
			groups.GET("/:id/bids/minimum", deps.AdjudicationHandler.GetMinimumBid)
			groups.GET("/:id/awards", deps.AdjudicationHandler.GetAwards)
			groups.POST("/:id/awards/:memberId/accept", deps.AdjudicationHandler.AcceptAward)

			groups.GET("/:id/reserve-fund", deps.AuctionHandler.GetReserveFund)
		}

		public.POST("/schedules/preview", deps.GroupHandler.PreviewSchedule)
		public.POST("/payments", deps.PaymentHandler.RecordPayment)

		auctions := public.Group("/auctions")
		{
			auctions.GET("", deps.AuctionHandler.GetOpenListings)
			auctions.POST("/:id/bids", deps.AuctionHandler.PlaceBid)
		}
	}

	// Operator endpoints: resolution triggers, award approval and
	// settlement run behind admin auth.
	admin := router.Group("/api/v1/admin")
	admin.Use(middleware.JWTAuthMiddleware(cfg))
	{
		admin.POST("/users", deps.AuthHandler.CreateAdmin)

		admin.POST("/groups", deps.GroupHandler.CreateGroup)
		admin.POST("/groups/from-template/:name", deps.GroupHandler.CreateFromTemplate)
		admin.POST("/groups/:id/resolve", deps.AdjudicationHandler.ResolvePeriod)
		admin.POST("/groups/:id/awards/:memberId/approve", deps.AdjudicationHandler.ApproveAward)
		admin.POST("/awards/expire", deps.AdjudicationHandler.ExpireStaleAwards)

		admin.POST("/auctions/:id/close", deps.AuctionHandler.CloseBidding)
		admin.POST("/auctions/:id/settle", deps.AuctionHandler.Settle)
		admin.POST("/auctions/:id/buyer-default", deps.AuctionHandler.RecordBuyerDefault)
		admin.POST("/auctions/:id/absorb-installment", deps.AuctionHandler.AbsorbInstallment)
	}

	return router
}
