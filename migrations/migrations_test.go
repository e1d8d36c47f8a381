package migrations

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUpgradeHealthRecord(t *testing.T) {
	u := upgradeHealthRecord(bson.M{"_id": 1, "oximetry": 96.0, "pressure": "120/80"})
	assert.Equal(t, bson.M{
		"$set":   bson.M{"oxygen": 96.0, "bloodPressure": bson.M{"sys": 120, "dia": 80}},
		"$unset": bson.M{"oximetry": "", "pressure": ""},
	}, u)
}

func TestUpgradeHealthRecord_KeepsCanonicalValues(t *testing.T) {
	u := upgradeHealthRecord(bson.M{"oximetry": 90.0, "oxygen": 97.0})
	assert.Equal(t, bson.M{"$unset": bson.M{"oximetry": ""}}, u)
}

func TestUpgradeHealthRecord_LeavesBadPressure(t *testing.T) {
	assert.Nil(t, upgradeHealthRecord(bson.M{"pressure": "high"}))
	assert.Nil(t, upgradeHealthRecord(bson.M{"oxygen": 97.0}))
}

func TestElderPatientFilter(t *testing.T) {
	oid := primitive.NewObjectID()

	assert.Equal(t, bson.M{"_id": oid}, elderPatientFilter(bson.M{"patientId": oid}))
	assert.Equal(t, bson.M{"_id": oid}, elderPatientFilter(bson.M{"patientId": oid.Hex()}))
	assert.Equal(t, bson.M{"caregiverId": "cg-1", "code": "7AB"}, elderPatientFilter(bson.M{"caregiverId": "cg-1", "code": " 7ab"}))
	assert.Nil(t, elderPatientFilter(bson.M{"code": "7AB"}))
}

func TestFoldElder(t *testing.T) {
	u := foldElder(bson.M{"code": "7ab", "assignedGame": "game2"}, bson.M{"_id": 1})
	assert.Equal(t, bson.M{"$set": bson.M{"code": "7AB", "assignedGame": "game2"}}, u)

	assert.Nil(t, foldElder(bson.M{"code": "7AB", "assignedGame": "game2"}, bson.M{"code": "7AB", "assignedGame": "game1"}))
	assert.Nil(t, foldElder(bson.M{"assignedGame": "chess"}, bson.M{}))
}

func TestLegacyTypeFilter(t *testing.T) {
	f := legacyTypeFilter("gotas")
	re, ok := f["type"].(primitive.Regex)
	require.True(t, ok)
	assert.Equal(t, "i", re.Options)

	compiled := regexp.MustCompile("(?i)" + re.Pattern)
	for _, stored := range []string{"Gotas", "GOTAS", " gotas "} {
		assert.True(t, compiled.MatchString(stored), stored)
	}
	assert.False(t, compiled.MatchString("gotas nasales"))
}

func TestParkCode(t *testing.T) {
	u := foldElder(bson.M{"code": "7ab", "assignedGame": "game2"}, bson.M{"_id": 1})
	code, ok := foldedCode(u)
	require.True(t, ok)
	assert.Equal(t, "7AB", code)

	assert.Equal(t, bson.M{"$set": bson.M{"legacyCode": "7AB", "assignedGame": "game2"}}, parkCode(u))
	assert.Equal(t, bson.M{"$set": bson.M{"legacyCode": "7AB"}}, parkCode(bson.M{"$set": bson.M{"code": "7AB"}}))

	_, ok = foldedCode(foldElder(bson.M{"assignedGame": "game2"}, bson.M{"_id": 1}))
	assert.False(t, ok)
}

func TestLaterDuplicates(t *testing.T) {
	docs := []bson.M{
		{"_id": 1, "code": "455"},
		{"_id": 2, "code": "455"},
		{"_id": 3, "code": "455"},
		{"_id": 4, "code": "567"},
		{"_id": 5, "code": "A7B"},
		{"_id": 6, "code": "A7B"},
	}

	got := laterDuplicates(docs)

	var ids []interface{}
	for _, d := range got {
		ids = append(ids, d["_id"])
	}
	assert.Equal(t, []interface{}{2, 3, 6}, ids)
	assert.Empty(t, laterDuplicates(docs[3:5]))
	assert.Empty(t, laterDuplicates(nil))
}

func TestMigrationOrder(t *testing.T) {
	var ids []string
	for _, m := range All {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"001_health_record_metrics", "002_medication_types", "003_fold_elders", "004_unique_patient_codes"}, ids)
}
