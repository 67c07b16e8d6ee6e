package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedrohavay/mongoadmin/odm"
)

func TestPropertyTypeTable(t *testing.T) {
	cases := map[odm.Instance]string{
		odm.String:     "string",
		odm.Boolean:    "boolean",
		odm.Number:     "number",
		odm.Date:       "datetime",
		odm.Decimal128: "float",
		odm.ObjectID:   "id",
		odm.Embedded:   "mixed",
	}
	for inst, want := range cases {
		desc := &odm.SchemaType{Path: "x", Instance: inst, EnumValues: []string{"a"}, Options: odm.Options{Required: true}}
		if inst == odm.Embedded {
			desc.Schema = odm.NewSchema()
		}
		assert.Equal(t, want, NewProperty(desc, 0).Type().Name(), inst.String())
	}
}

func TestPropertyReferenceType(t *testing.T) {
	article := newTestResource(t, newTestDatabase(t), "Article")
	createdBy := article.Property("createdBy")
	assert.Equal(t, "reference", createdBy.Type().Name())
	assert.Equal(t, "User", createdBy.Reference())

	owners := article.Property("owners")
	assert.True(t, owners.IsArray())
	assert.Equal(t, "reference", owners.Type().Name())
	assert.Equal(t, "User", owners.Reference())
	assert.False(t, owners.IsSortable())

	id := article.Property("_id")
	assert.Equal(t, "id", id.Type().Name())
	assert.Equal(t, "", id.Reference())
	assert.True(t, id.IsID())
	assert.True(t, id.IsSortable())
}

func TestPropertyAccessors(t *testing.T) {
	users := userResource(t)

	email := users.Property("email")
	require.NotNil(t, email)
	assert.Equal(t, "email", email.Name())
	assert.Nil(t, email.AvailableValues())
	assert.False(t, email.IsArray())
	assert.True(t, email.IsRequired())
	assert.Equal(t, "string", email.Type().Name())
	assert.Equal(t, "", email.Reference())
	assert.Empty(t, email.SubProperties())
	assert.True(t, email.IsSortable())

	genre := users.Property("genre")
	assert.Equal(t, []string{"male", "female"}, genre.AvailableValues())
	assert.False(t, genre.IsRequired())

	arrayed := users.Property("arrayed")
	assert.True(t, arrayed.IsArray())
	assert.Equal(t, "string", arrayed.Type().Name())

	assert.False(t, users.Property("passwordHash").IsVisible())
	assert.False(t, users.Property("__v").IsVisible())
	assert.False(t, users.Property("__v").IsEditable())
	assert.False(t, users.Property("_id").IsEditable())
	assert.True(t, users.Property("_id").IsVisible())
	assert.Nil(t, users.Property("nope"))
}

func TestPropertySubProperties(t *testing.T) {
	users := userResource(t)

	parent := users.Property("parent")
	assert.Equal(t, 4, parent.Position())
	assert.Equal(t, "mixed", parent.Type().Name())
	assert.False(t, parent.IsSortable())
	subs := parent.SubProperties()
	require.Len(t, subs, 6)
	for i, sp := range subs {
		assert.Equal(t, i, sp.Position())
	}
	assert.Equal(t, "age", subs[2].Name())

	family := users.Property("family")
	assert.Equal(t, "mixed", family.Type().Name())
	assert.True(t, family.IsArray())
	assert.Len(t, family.SubProperties(), 6)
	assert.Equal(t, "nestedArray", family.SubProperties()[3].Name())
	assert.Len(t, family.SubProperties()[3].SubProperties(), 2)
}

func TestResourceProperties(t *testing.T) {
	props := userResource(t).Properties()
	require.Len(t, props, 8)
	names := make([]string, 0, len(props))
	for i, p := range props {
		assert.Equal(t, i, p.Position())
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"email", "passwordHash", "genre", "arrayed", "parent", "family", "_id", "__v"}, names)
}

func TestNestedPlainObjectProperties(t *testing.T) {
	nested := newTestResource(t, newTestDatabase(t), "Nested")
	assert.Len(t, nested.Properties(), 4)
	assert.Equal(t, "number", nested.Property("meta.views").Type().Name())
}

func TestPropertyUnknownInstanceFallsBack(t *testing.T) {
	p := NewProperty(&odm.SchemaType{Path: "legacy", Instance: odm.Array}, 0)
	_, err := p.ResolveType()
	assert.ErrorIs(t, err, odm.ErrUnknownInstance)
	assert.Equal(t, "string", p.Type().Name())
}
