package migrations

import (
	"context"

	"ElderCare360/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

/*
* Older clients never enforced unique codes, and folded elders may have left empty ones
* Empty codes are removed
* For every code held by more than one patient the oldest patient keeps it
* and the others get it parked in legacyCode so the unique index can be built
* The count returned is the number of patients changed
 */
func DedupePatientCodes(ctx context.Context, db *mongo.Database) (int64, error) {
	coll := db.Collection(repository.PatientCollection)

	res, err := coll.UpdateMany(ctx, bson.M{"code": ""}, bson.M{"$unset": bson.M{"code": ""}})
	if err != nil {
		return 0, err
	}
	n := res.ModifiedCount

	opts := options.Find().
		SetSort(bson.D{{Key: "code", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"_id": 1, "code": 1})
	cursor, err := coll.Find(ctx, bson.M{"code": bson.M{"$type": "string"}}, opts)
	if err != nil {
		return n, err
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return n, err
	}
	for _, doc := range laterDuplicates(docs) {
		u := update(bson.M{"legacyCode": doc["code"]}, bson.M{"code": ""})
		if _, err := coll.UpdateOne(ctx, bson.M{"_id": doc["_id"]}, u); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// laterDuplicates returns every document whose code equals the one before it. docs must be sorted by code.
func laterDuplicates(docs []bson.M) []bson.M {
	var out []bson.M
	for i := 1; i < len(docs); i++ {
		prev, _ := docs[i-1]["code"].(string)
		code, _ := docs[i]["code"].(string)
		if code == prev {
			out = append(out, docs[i])
		}
	}
	return out
}
