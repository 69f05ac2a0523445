// Command resolve-periods runs the monthly adjudication for active
// groups whose next installment has fallen due, and forfeits awards whose
// acceptance window closed. It is meant to run from cron.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/groupdreaming/rosca-backend/internal/config"
	"github.com/groupdreaming/rosca-backend/internal/models"
	mongorepo "github.com/groupdreaming/rosca-backend/internal/repositories/mongodb"
	"github.com/groupdreaming/rosca-backend/internal/services"
	"github.com/groupdreaming/rosca-backend/internal/utils"
	"github.com/groupdreaming/rosca-backend/pkg/clock"
	"github.com/groupdreaming/rosca-backend/pkg/logging"
	"github.com/groupdreaming/rosca-backend/pkg/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func main() {
	groupHex := flag.String("group", "", "resolve only this group (hex id)")
	dryRun := flag.Bool("dry-run", false, "report what would be resolved without resolving")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI)
	cancel()
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDB.Database)
	groupRepo := mongorepo.NewGroupRepository(db)
	memberRepo := mongorepo.NewMemberRepository(db)
	awardRepo := mongorepo.NewAwardRepository(db)
	bidRepo := mongorepo.NewBidRepository(db)

	clk := clock.Real{}
	adjudication := services.NewAdjudicationService(groupRepo, memberRepo, awardRepo, bidRepo, cfg, clk, utils.CryptoSeededRand())

	runCtx, runCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer runCancel()

	var groups []*models.Group
	if *groupHex != "" {
		id, err := primitive.ObjectIDFromHex(*groupHex)
		if err != nil {
			slog.Error("Invalid group id", "group", *groupHex)
			os.Exit(1)
		}
		group, err := groupRepo.FindByID(runCtx, id)
		if err != nil {
			slog.Error("Group not found", "group", *groupHex, "error", err)
			os.Exit(1)
		}
		groups = append(groups, group)
	} else {
		active, err := groupRepo.FindByStatus(runCtx, models.GroupStatusActive)
		if err != nil {
			slog.Error("Failed to list active groups", "error", err)
			os.Exit(1)
		}
		inAuction, err := groupRepo.FindByStatus(runCtx, models.GroupStatusInAuction)
		if err != nil {
			slog.Error("Failed to list in-auction groups", "error", err)
			os.Exit(1)
		}
		groups = append(active, inAuction...)
	}

	now := clk.Now()
	resolved := 0
	for _, group := range groups {
		if group.ActivationDate == nil || group.PeriodsResolved >= group.Term {
			continue
		}
		period := group.PeriodsResolved + 1
		// A period is due once its installment's month has started.
		due := group.ActivationDate.AddDate(0, period-1, 0)
		if now.Before(due) {
			continue
		}
		if *dryRun {
			slog.Info("Would resolve", "groupId", group.ID.Hex(), "period", period, "due", due)
			continue
		}
		awards, err := adjudication.ResolvePeriod(runCtx, group.ID, period)
		if err != nil {
			slog.Error("Resolution failed", "groupId", group.ID.Hex(), "period", period, "error", err)
			continue
		}
		slog.Info("Resolved", "groupId", group.ID.Hex(), "period", period, "awards", len(awards))
		resolved++
	}

	if !*dryRun {
		forfeited, err := adjudication.ExpireStaleAwards(runCtx)
		if err != nil {
			slog.Error("Failed to expire stale awards", "error", err)
		} else if forfeited > 0 {
			slog.Info("Forfeited stale awards", "count", forfeited)
		}
	}
	slog.Info("Done", "groups", len(groups), "resolved", resolved)
}
