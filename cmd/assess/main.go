package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	contributionapp "github.com/welfare/backend/internal/application/contribution"
	ledgerapp "github.com/welfare/backend/internal/application/ledger"
	"github.com/welfare/backend/internal/infrastructure/audit"
	"github.com/welfare/backend/internal/infrastructure/config"
	"github.com/welfare/backend/internal/infrastructure/logger"
	"github.com/welfare/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

// assess runs a penalty assessment from the command line, outside the
// HTTP server and the in-process scheduler. Useful for catch-up runs
// after downtime and for dry runs before a rate change.
func main() {
	var (
		memberFlag string
		dateFlag   string
		actorFlag  string
		logLevel   string
		force      bool
		dryRun     bool
	)

	flag.StringVar(&memberFlag, "member", "", "Assess a single member by UUID (default: all active members)")
	flag.StringVar(&dateFlag, "date", "", "Run date as YYYY-MM-DD (default: today)")
	flag.StringVar(&actorFlag, "actor", "cli", "Actor recorded on created penalties")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&force, "force", false, "Run even when the date is not the configured due day")
	flag.BoolVar(&dryRun, "dry-run", false, "Report what would be created without writing anything")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	req := contributionapp.AssessmentRequest{
		RunDate: time.Now(),
		Force:   force,
		DryRun:  dryRun,
		Actor:   actorFlag,
	}

	if dateFlag != "" {
		runDate, err := time.Parse("2006-01-02", dateFlag)
		if err != nil {
			log.Fatal("Invalid -date, expected YYYY-MM-DD", zap.String("value", dateFlag))
		}
		req.RunDate = runDate
	}
	if memberFlag != "" {
		memberID, err := uuid.Parse(memberFlag)
		if err != nil {
			log.Fatal("Invalid -member, expected a UUID", zap.String("value", memberFlag))
		}
		req.MemberID = &memberID
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	accountRepo := persistence.NewGormAccountRepository(db)
	entryRepo := persistence.NewGormJournalEntryRepository(db)
	allocationRepo := persistence.NewGormAllocationRepository(db)
	penaltyRepo := persistence.NewGormPenaltyRepository(db)
	memberDirectory := persistence.NewGormMemberDirectory(db)
	settingsStore := persistence.NewGormSettingsStore(db)
	uow := persistence.NewUnitOfWork(db)
	auditSink := audit.NewZapSink(log)

	journalService := ledgerapp.NewJournalService(entryRepo, accountRepo, uow, auditSink, log)
	penaltyService := contributionapp.NewPenaltyService(
		penaltyRepo, allocationRepo, memberDirectory, settingsStore,
		journalService, uow, auditSink, log,
	)

	result, err := penaltyService.AssessPenalties(context.Background(), req)
	if err != nil {
		log.Fatal("Assessment failed", zap.Error(err))
	}

	log.Info("Assessment finished",
		zap.Int("processed", result.Processed),
		zap.Int("created", result.Created),
		zap.Bool("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
		zap.Bool("dry_run", dryRun),
	)
	for _, memberErr := range result.Errors {
		log.Warn("Member assessment error",
			zap.String("member_id", memberErr.MemberID.String()),
			zap.String("error", memberErr.Error),
		)
	}
}
