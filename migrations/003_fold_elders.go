package migrations

import (
	"context"
	"errors"

	"ElderCare360/models"
	"ElderCare360/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

/*
* Each legacy elder document points at its patient by patientId,
* or only carries the caregiverId and code
* The code and assigned game are copied onto the patient when it lacks them
* A code another patient already holds is parked in legacyCode instead
* The elder document is removed once folded, so the elder identity is the patient id
* Elders that match no patient are kept for manual review
 */
func FoldElders(ctx context.Context, db *mongo.Database) (int64, error) {
	elders := db.Collection(repository.ElderCollection)
	patients := db.Collection(repository.PatientCollection)

	cursor, err := elders.Find(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var n int64
	for cursor.Next(ctx) {
		var elder bson.M
		if err := cursor.Decode(&elder); err != nil {
			return n, err
		}
		filter := elderPatientFilter(elder)
		if filter == nil {
			continue
		}
		var patient bson.M
		if err := patients.FindOne(ctx, filter).Decode(&patient); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				continue
			}
			return n, err
		}
		u := foldElder(elder, patient)
		if code, ok := foldedCode(u); ok {
			taken, err := patients.CountDocuments(ctx, bson.M{"code": code, "_id": bson.M{"$ne": patient["_id"]}})
			if err != nil {
				return n, err
			}
			if taken > 0 {
				u = parkCode(u)
			}
		}
		if u != nil {
			if _, err := patients.UpdateOne(ctx, bson.M{"_id": patient["_id"]}, u); err != nil {
				return n, err
			}
		}
		if _, err := elders.DeleteOne(ctx, bson.M{"_id": elder["_id"]}); err != nil {
			return n, err
		}
		n++
	}
	return n, cursor.Err()
}

func elderPatientFilter(elder bson.M) bson.M {
	switch id := elder["patientId"].(type) {
	case primitive.ObjectID:
		return bson.M{"_id": id}
	case string:
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			return bson.M{"_id": oid}
		}
	}
	caregiver, _ := elder["caregiverId"].(string)
	code, _ := elder["code"].(string)
	if caregiver == "" || code == "" {
		return nil
	}
	return bson.M{"caregiverId": caregiver, "code": models.NormalizeCode(code)}
}

func foldElder(elder, patient bson.M) bson.M {
	set := bson.M{}
	if code, ok := elder["code"].(string); ok && code != "" {
		if existing, _ := patient["code"].(string); existing == "" {
			set["code"] = models.NormalizeCode(code)
		}
	}
	if game, ok := elder["assignedGame"].(string); ok && models.GameID(game).Valid() {
		if existing, _ := patient["assignedGame"].(string); existing == "" {
			set["assignedGame"] = game
		}
	}
	return update(set, nil)
}

func foldedCode(u bson.M) (string, bool) {
	set, _ := u["$set"].(bson.M)
	code, ok := set["code"].(string)
	return code, ok
}

// parkCode moves the code of a fold update into legacyCode.
func parkCode(u bson.M) bson.M {
	set, _ := u["$set"].(bson.M)
	out := bson.M{}
	for k, v := range set {
		if k == "code" {
			out["legacyCode"] = v
			continue
		}
		out[k] = v
	}
	return update(out, nil)
}
