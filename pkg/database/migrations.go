package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const migrationsCollection = "migrations"

type Migration struct {
	Version     int
	Description string
	Up          func(context.Context, *mongo.Database) error
	Down        func(context.Context, *mongo.Database) error
}

type Migrator struct {
	db         *mongo.Database
	migrations []Migration
	log        logrus.FieldLogger
}

func NewMigrator(db *mongo.Database, log logrus.FieldLogger) *Migrator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Migrator{
		db:         db,
		migrations: getMigrations(),
		log:        log,
	}
}

func (m *Migrator) Up(ctx context.Context) error {
	if err := m.createMigrationsCollection(ctx); err != nil {
		return err
	}

	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if migration.Version <= currentVersion {
			continue
		}
		entry := m.log.WithField("migration", migration.Version)
		entry.Infof("Running migration: %s", migration.Description)

		if err := migration.Up(ctx, m.db); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		if err := m.updateVersion(ctx, migration.Version); err != nil {
			return fmt.Errorf("failed to update migration version: %w", err)
		}

		entry.Info("Migration completed")
	}

	return nil
}

func (m *Migrator) Down(ctx context.Context, targetVersion int) error {
	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return err
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		migration := m.migrations[i]
		if migration.Version > currentVersion || migration.Version <= targetVersion {
			continue
		}
		entry := m.log.WithField("migration", migration.Version)
		entry.Infof("Reverting migration: %s", migration.Description)

		if err := migration.Down(ctx, m.db); err != nil {
			return fmt.Errorf("migration %d rollback failed: %w", migration.Version, err)
		}

		previousVersion := targetVersion
		if i > 0 {
			previousVersion = m.migrations[i-1].Version
		}
		if err := m.updateVersion(ctx, previousVersion); err != nil {
			return fmt.Errorf("failed to update migration version: %w", err)
		}

		entry.Info("Migration reverted")
	}

	return nil
}

func (m *Migrator) createMigrationsCollection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	collections, err := m.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: migrationsCollection}})
	if err != nil {
		return err
	}
	if len(collections) > 0 {
		return nil
	}

	return m.db.CreateCollection(ctx, migrationsCollection)
}

func (m *Migrator) getCurrentVersion(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result struct {
		Version int `bson:"version"`
	}

	err := m.db.Collection(migrationsCollection).FindOne(ctx, bson.D{}).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, err
	}

	return result.Version, nil
}

func (m *Migrator) updateVersion(ctx context.Context, version int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := m.db.Collection(migrationsCollection).ReplaceOne(
		ctx,
		bson.D{},
		bson.D{{Key: "version", Value: version}, {Key: "updated_at", Value: time.Now()}},
		options.Replace().SetUpsert(true),
	)

	return err
}

func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create driver_offers collection with indexes",
			Up:          createOffersIndexes,
			Down: func(ctx context.Context, db *mongo.Database) error {
				return db.Collection("driver_offers").Drop(ctx)
			},
		},
		{
			Version:     2,
			Description: "Create offer_audit_logs collection with indexes",
			Up:          createAuditLogsIndexes,
			Down: func(ctx context.Context, db *mongo.Database) error {
				return db.Collection("offer_audit_logs").Drop(ctx)
			},
		},
	}
}

func createOffersIndexes(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("driver_offers")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "driver_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "start_at", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Audit entries are append-only; the compound index serves history reads in
// insertion order.
func createAuditLogsIndexes(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("offer_audit_logs")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "offer_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "action", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
