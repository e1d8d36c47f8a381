package migrations

import (
	"context"

	"ElderCare360/models"
	"ElderCare360/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UpgradeHealthRecords renames oximetry to oxygen and turns the "SYS/DIA" pressure string into bloodPressure.
func UpgradeHealthRecords(ctx context.Context, db *mongo.Database) (int64, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"oximetry": bson.M{"$exists": true}},
		bson.M{"pressure": bson.M{"$exists": true}},
	}}
	return rewrite(ctx, db.Collection(repository.HealthRecordCollection), filter, upgradeHealthRecord)
}

/*
* oximetry moves to oxygen unless oxygen is already set
* A parsable pressure string becomes bloodPressure{sys,dia}
* An unparsable one is left in place
 */
func upgradeHealthRecord(doc bson.M) bson.M {
	set, unset := bson.M{}, bson.M{}
	if v, ok := doc["oximetry"]; ok {
		if _, has := doc["oxygen"]; !has {
			set["oxygen"] = v
		}
		unset["oximetry"] = ""
	}
	if raw, ok := doc["pressure"].(string); ok {
		if bp, err := models.ParseBloodPressure(raw); err == nil {
			if _, has := doc["bloodPressure"]; !has {
				set["bloodPressure"] = bson.M{"sys": bp.Sys, "dia": bp.Dia}
			}
			unset["pressure"] = ""
		}
	}
	return update(set, unset)
}

func update(set, unset bson.M) bson.M {
	u := bson.M{}
	if len(set) > 0 {
		u["$set"] = set
	}
	if len(unset) > 0 {
		u["$unset"] = unset
	}
	if len(u) == 0 {
		return nil
	}
	return u
}
