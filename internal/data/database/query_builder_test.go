package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildListQueryBasic(t *testing.T) {
	opts := NewListQueryOptions("cars",
		WithColumns("id", "brand", "model"),
		WithCondition(WhereCond("status", Equal, "available")),
		WithOrderBy("created_at", "desc"),
		WithLimit(25),
		WithOffset(50),
	)

	query, args := BuildListQuery(opts)

	assert.Equal(t,
		`SELECT "id", "brand", "model" FROM "cars" WHERE "status" = $1 ORDER BY "created_at" DESC LIMIT $2 OFFSET $3`,
		query)
	assert.Equal(t, []any{"available", 25, 50}, args)
}

func TestBuildListQueryCountOnly(t *testing.T) {
	opts := NewListQueryOptions("leads",
		WithCountOnly(),
		WithCondition(WhereCond("status", Equal, "new")),
		WithOrderBy("created_at", "desc"),
		WithLimit(10),
	)

	query, args := BuildListQuery(opts)

	assert.Equal(t, `SELECT COUNT(*) FROM "leads" WHERE "status" = $1`, query)
	assert.Equal(t, []any{"new"}, args)
}

func TestBuildListQueryInCondition(t *testing.T) {
	opts := NewListQueryOptions("reservations",
		WithCondition(WhereCond("status", In, []string{"booked", "active"})),
		WithCondition(WhereCond("car_id", Equal, "abc")),
	)

	query, args := BuildListQuery(opts)

	assert.Equal(t,
		`SELECT * FROM "reservations" WHERE "status" IN ($1, $2) AND "car_id" = $3`,
		query)
	assert.Equal(t, []any{"booked", "active", "abc"}, args)
}

func TestBuildListQueryNoConditions(t *testing.T) {
	query, args := BuildListQuery(NewListQueryOptions("suppliers"))

	assert.Equal(t, `SELECT * FROM "suppliers"`, query)
	assert.Empty(t, args)
}

func TestBuildListQuerySkipsEmptyField(t *testing.T) {
	opts := NewListQueryOptions("cars",
		WithCondition(WhereCond("  ", Equal, "x")),
		WithCondition(WhereCond("brand", ILike, "%bmw%")),
	)

	query, args := BuildListQuery(opts)

	assert.Equal(t, `SELECT * FROM "cars" WHERE "brand" ILIKE $1`, query)
	assert.Equal(t, []any{"%bmw%"}, args)
}
