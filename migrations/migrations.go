package migrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// LedgerCollection records the migrations already applied.
const LedgerCollection = "schemaMigrations"

type Migration struct {
	ID    string
	Apply func(ctx context.Context, db *mongo.Database) (int64, error)
}

// All lists the migrations in the order they run.
var All = []Migration{
	{ID: "001_health_record_metrics", Apply: UpgradeHealthRecords},
	{ID: "002_medication_types", Apply: UpgradeMedicationTypes},
	{ID: "003_fold_elders", Apply: FoldElders},
	{ID: "004_unique_patient_codes", Apply: DedupePatientCodes},
}

/*
* Skip migrations found in the ledger
* Apply the rest in order and record each one
* Every migration only touches documents still in the old shape,
* so re-running one after a crash is safe
 */
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	ledger := db.Collection(LedgerCollection)
	for _, m := range All {
		err := ledger.FindOne(ctx, bson.M{"_id": m.ID}).Err()
		if err == nil {
			continue
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("read migration ledger: %w", err)
		}
		n, err := m.Apply(ctx, db)
		if err != nil {
			log.Error("Migration failed", zap.String("migration", m.ID), zap.Error(err))
			return fmt.Errorf("migration %s: %w", m.ID, err)
		}
		if _, err := ledger.InsertOne(ctx, bson.M{"_id": m.ID, "appliedAt": time.Now().UTC(), "documents": n}); err != nil {
			return fmt.Errorf("record migration %s: %w", m.ID, err)
		}
		log.Info("Migration applied", zap.String("migration", m.ID), zap.Int64("documents", n))
	}
	return nil
}

// rewrite runs fn on every document matching filter and writes the update it returns.
// fn returns nil when the document needs no change.
func rewrite(ctx context.Context, coll *mongo.Collection, filter bson.M, fn func(doc bson.M) bson.M) (int64, error) {
	cursor, err := coll.Find(ctx, filter, options.Find().SetBatchSize(200))
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var n int64
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return n, err
		}
		update := fn(doc)
		if update == nil {
			continue
		}
		if _, err := coll.UpdateOne(ctx, bson.M{"_id": doc["_id"]}, update); err != nil {
			return n, err
		}
		n++
	}
	return n, cursor.Err()
}
