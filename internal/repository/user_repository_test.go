package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/noah-isme/alumni-connect-api/internal/models"
)

// value returns the value of key in d, failing the test when it is absent.
func value(t *testing.T, d bson.D, key string) interface{} {
	t.Helper()
	for _, e := range d {
		if e.Key == key {
			return e.Value
		}
	}
	require.Failf(t, "missing key", "%q not in %v", key, d)
	return nil
}

func keys(d bson.D) []string {
	out := make([]string, 0, len(d))
	for _, e := range d {
		out = append(out, e.Key)
	}
	return out
}

func TestUserQuery(t *testing.T) {
	role := models.RoleAlumni
	approved := true
	excluded := []bson.ObjectID{bson.NewObjectID()}

	query := userQuery(models.UserFilter{Role: &role, IsApproved: &approved, Search: " acme ", Exclude: excluded})

	assert.Equal(t, []string{"role", "isApproved", "_id", "$or"}, keys(query))
	assert.Equal(t, role, value(t, query, "role"))
	assert.Equal(t, bson.D{{Key: "$nin", Value: excluded}}, value(t, query, "_id"))

	or := value(t, query, "$or").(bson.A)
	require.Len(t, or, 5)
	assert.Equal(t, bson.D{{Key: "firstName", Value: containsText("acme")}}, or[0])

	assert.Empty(t, userQuery(models.UserFilter{}))
}

func TestContainsTextEscapesPatterns(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "$regex", Value: `c\+\+ \(senior\)`}, {Key: "$options", Value: "i"}}, containsText("c++ (senior)"))
}
