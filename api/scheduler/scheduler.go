// Package scheduler runs the periodic reconciliation sweep. Role promotion
// and revocation write two documents without a transaction, so a crash can
// leave a user flagged driver/medic with no role record, or a role record
// whose owner is gone. The sweep repairs both directions.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/amberops/ambulance-dispatch-api/databases"
	"github.com/amberops/ambulance-dispatch-api/models"
)

const sweepTimeout = 2 * time.Minute

// Scheduler owns the cron runner and the databases the sweep touches
type Scheduler struct {
	cron    *cron.Cron
	users   databases.UserDatabase
	drivers databases.DriverDatabase
	medics  databases.MedicDatabase
}

// New creates a scheduler for the reconciliation sweep
func New(users databases.UserDatabase, drivers databases.DriverDatabase, medics databases.MedicDatabase) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		users:   users,
		drivers: drivers,
		medics:  medics,
	}
}

// Start schedules the hourly sweep and starts the cron runner
func (s *Scheduler) Start() {
	_, err := s.cron.AddFunc("@hourly", s.ReconcileRoleRecords)
	if err != nil {
		zap.S().With("error", err).Error("failed to schedule role reconciliation")
		return
	}
	s.cron.Start()
	zap.S().Info("role reconciliation sweep scheduled")
}

// Stop stops the cron runner and waits for a running sweep to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// ReconcileRoleRecords repairs the two halves of the promotion write pair
func (s *Scheduler) ReconcileRoleRecords() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	repaired := s.resetUsersWithoutRoleRecord(ctx, models.RoleDriver)
	repaired += s.resetUsersWithoutRoleRecord(ctx, models.RoleMedic)
	removed := s.removeOrphanedDrivers(ctx)
	removed += s.removeOrphanedMedics(ctx)

	zap.S().Infow("role reconciliation sweep finished",
		"usersRepaired", repaired,
		"recordsRemoved", removed,
	)
}

func (s *Scheduler) resetUsersWithoutRoleRecord(ctx context.Context, role string) int {
	users, err := s.users.Find(ctx, bson.M{"user.role": role})
	if err != nil {
		zap.S().With("error", err).Errorw("sweep failed to list users", "role", role)
		return 0
	}

	repaired := 0
	for _, user := range users {
		var count int64
		var err error
		switch role {
		case models.RoleDriver:
			count, err = s.drivers.CountDocuments(ctx, bson.M{"driver.userID": user.ID})
		case models.RoleMedic:
			count, err = s.medics.CountDocuments(ctx, bson.M{"medic.userID": user.ID})
		}
		if err != nil {
			zap.S().With("error", err).Errorw("sweep failed to count role records", "userID", user.ID.Hex())
			continue
		}
		if count > 0 {
			continue
		}
		err = s.users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{"user.role": models.RoleUser}})
		if err != nil {
			zap.S().With("error", err).Errorw("sweep failed to reset user role", "userID", user.ID.Hex())
			continue
		}
		repaired++
	}
	return repaired
}

func (s *Scheduler) removeOrphanedDrivers(ctx context.Context) int {
	drivers, err := s.drivers.Find(ctx, bson.M{})
	if err != nil {
		zap.S().With("error", err).Error("sweep failed to list drivers")
		return 0
	}

	removed := 0
	for _, driver := range drivers {
		count, err := s.users.CountDocuments(ctx, bson.M{"_id": driver.Details.UserID})
		if err != nil || count > 0 {
			continue
		}
		if err := s.drivers.DeleteOne(ctx, bson.M{"_id": driver.ID}); err != nil {
			zap.S().With("error", err).Errorw("sweep failed to delete orphaned driver", "driverID", driver.ID.Hex())
			continue
		}
		removed++
	}
	return removed
}

func (s *Scheduler) removeOrphanedMedics(ctx context.Context) int {
	medics, err := s.medics.Find(ctx, bson.M{})
	if err != nil {
		zap.S().With("error", err).Error("sweep failed to list medics")
		return 0
	}

	removed := 0
	for _, medic := range medics {
		count, err := s.users.CountDocuments(ctx, bson.M{"_id": medic.Details.UserID})
		if err != nil || count > 0 {
			continue
		}
		if err := s.medics.DeleteOne(ctx, bson.M{"_id": medic.ID}); err != nil {
			zap.S().With("error", err).Errorw("sweep failed to delete orphaned medic", "medicID", medic.ID.Hex())
			continue
		}
		removed++
	}
	return removed
}
