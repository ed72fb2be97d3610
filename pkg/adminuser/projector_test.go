package adminuser

import (
	"testing"

	"github.com/iancoleman/orderedmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToUserPropsRedactsSecrets(t *testing.T) {
	props := ToUserProps(&UserAuth{
		ID:           "u1",
		UserName:     "alice",
		PasswordHash: "secret-hash",
		Salt:         "secret-salt",
	})

	_, hasHash := props.Get("PasswordHash")
	assert.False(t, hasHash)
	_, hasSalt := props.Get("Salt")
	assert.False(t, hasSalt)

	userName, ok := props.Get("UserName")
	require.True(t, ok)
	assert.Equal(t, "alice", userName)
}

func TestToUserPropsDeclarationOrder(t *testing.T) {
	props := ToUserProps(&UserAuth{})
	keys := props.Keys()

	require.Greater(t, len(keys), 3)
	assert.Equal(t, []string{"ID", "UserName", "Email"}, keys[:3])
}

func TestToUserPropsPromotesProfileUrlFromMeta(t *testing.T) {
	props := ToUserProps(&UserAuth{
		UserName: "alice",
		Meta:     map[string]string{ProfileUrlKey: "https://example.com/alice.png"},
	})

	profileUrl, ok := props.Get(ProfileUrlKey)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/alice.png", profileUrl)
}

// profileUserAuth has a first-class profile URL field.
type profileUserAuth struct {
	BaseUserAuth
	ProfileUrl string
}

func TestToUserPropsFieldWinsOverMeta(t *testing.T) {
	rec := &profileUserAuth{ProfileUrl: "https://example.com/field.png"}
	rec.Meta = map[string]string{ProfileUrlKey: "https://example.com/meta.png"}

	props := ToUserProps(rec)
	profileUrl, _ := props.Get(ProfileUrlKey)
	assert.Equal(t, "https://example.com/field.png", profileUrl)
}

func TestToUserPropsFlattensEmbeddedRecord(t *testing.T) {
	rec := &extendedUserAuth{Department: "Engineering", CostCenter: 42}
	rec.UserName = "alice"
	rec.PasswordHash = "secret-hash"

	props := ToUserProps(rec)

	userName, _ := props.Get("UserName")
	assert.Equal(t, "alice", userName)
	department, _ := props.Get("Department")
	assert.Equal(t, "Engineering", department)
	costCenter, _ := props.Get("CostCenter")
	assert.Equal(t, 42, costCenter)
	_, hasHash := props.Get("PasswordHash")
	assert.False(t, hasHash)
}

func TestFilterResults(t *testing.T) {
	row := orderedmap.New()
	row.Set("ID", "u1")
	row.Set("UserName", "alice")
	row.Set("Email", "alice@example.com")

	filtered := FilterResults([]*orderedmap.OrderedMap{row}, []string{"Email", "ID", "Missing"})
	require.Len(t, filtered, 1)
	assert.Equal(t, []string{"Email", "ID", "Missing"}, filtered[0].Keys())

	email, _ := filtered[0].Get("Email")
	assert.Equal(t, "alice@example.com", email)
	missing, ok := filtered[0].Get("Missing")
	require.True(t, ok)
	assert.Nil(t, missing)

	_, hasUserName := filtered[0].Get("UserName")
	assert.False(t, hasUserName)
}

func TestFilterResultsNilIncludeList(t *testing.T) {
	row := orderedmap.New()
	row.Set("ID", "u1")

	rows := []*orderedmap.OrderedMap{row}
	assert.Equal(t, rows, FilterResults(rows, nil))
}
