package migrations

import (
	"context"
	"regexp"

	"ElderCare360/models"
	"ElderCare360/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UpgradeMedicationTypes replaces the legacy type labels with the canonical values.
// Labels match the way ParseMedicationType reads them: trimmed, any case.
func UpgradeMedicationTypes(ctx context.Context, db *mongo.Database) (int64, error) {
	coll := db.Collection(repository.MedicationCollection)
	var total int64
	for legacy, canonical := range models.LegacyMedicationTypes {
		res, err := coll.UpdateMany(ctx, legacyTypeFilter(legacy), bson.M{"$set": bson.M{"type": canonical}})
		if err != nil {
			return total, err
		}
		total += res.ModifiedCount
	}
	return total, nil
}

func legacyTypeFilter(label string) bson.M {
	return bson.M{"type": primitive.Regex{Pattern: `^\s*` + regexp.QuoteMeta(label) + `\s*$`, Options: "i"}}
}
