package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/groupdreaming/rosca-backend/api/routes"
	"github.com/groupdreaming/rosca-backend/internal/config"
	"github.com/groupdreaming/rosca-backend/internal/handlers"
	"github.com/groupdreaming/rosca-backend/internal/repositories"
	mongorepo "github.com/groupdreaming/rosca-backend/internal/repositories/mongodb"
	"github.com/groupdreaming/rosca-backend/internal/services"
	"github.com/groupdreaming/rosca-backend/internal/utils"
	"github.com/groupdreaming/rosca-backend/pkg/clock"
	"github.com/groupdreaming/rosca-backend/pkg/logging"
	"github.com/groupdreaming/rosca-backend/pkg/mongodb"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoClient, err := mongodb.NewClient(ctx, cfg.MongoDB.URI)
	cancel()
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			slog.Error("Error disconnecting from MongoDB", "error", err)
		}
	}()

	db := mongoClient.Database(cfg.MongoDB.Database)
	if err := mongorepo.EnsureIndexes(context.Background(), db); err != nil {
		slog.Error("Failed to ensure indexes", "error", err)
		os.Exit(1)
	}

	var groupRepo repositories.GroupRepository = mongorepo.NewGroupRepository(db)
	var memberRepo repositories.MemberRepository = mongorepo.NewMemberRepository(db)
	var awardRepo repositories.AwardRepository = mongorepo.NewAwardRepository(db)
	var bidRepo repositories.BidRepository = mongorepo.NewBidRepository(db)
	var auctionRepo repositories.AuctionRepository = mongorepo.NewAuctionRepository(db)
	var reserveRepo repositories.ReserveFundRepository = mongorepo.NewReserveFundRepository(db)
	var paymentRepo repositories.PaymentRepository = mongorepo.NewPaymentRepository(db)
	var adminUserRepo repositories.AdminUserRepository = mongorepo.NewAdminUserRepository(db)

	clk := clock.Real{}
	rng := utils.CryptoSeededRand()

	groupService := services.NewGroupService(groupRepo, cfg)
	membershipService := services.NewMembershipService(groupRepo, memberRepo, reserveRepo, cfg, clk)
	paymentService := services.NewPaymentService(groupRepo, memberRepo, paymentRepo, reserveRepo, cfg, clk)
	adjudicationService := services.NewAdjudicationService(groupRepo, memberRepo, awardRepo, bidRepo, cfg, clk, rng)
	auctionService := services.NewAuctionService(groupRepo, memberRepo, auctionRepo, reserveRepo, cfg, clk)
	reserveService := services.NewReserveFundService(reserveRepo)
	authService := services.NewAuthService(adminUserRepo, cfg)

	deps := routes.HandlerDependencies{
		AuthHandler:         handlers.NewAuthHandler(authService),
		GroupHandler:        handlers.NewGroupHandler(groupService),
		MembershipHandler:   handlers.NewMembershipHandler(membershipService),
		PaymentHandler:      handlers.NewPaymentHandler(paymentService),
		AdjudicationHandler: handlers.NewAdjudicationHandler(adjudicationService),
		AuctionHandler:      handlers.NewAuctionHandler(auctionService, reserveService),
	}

	router := routes.SetupRouter(cfg, deps)
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Forced shutdown", "error", err)
	}
	slog.Info("Server stopped")
}
