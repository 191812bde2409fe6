package validators

import (
	"tripmarket/internal/loyalty"

	"go.mongodb.org/mongo-driver/bson"
)

// Balances may never go negative; the repositories rely on this as a last
// line when a conditional update is skipped.
var RiderValidator = document(
	[]string{"username", "email", "wallet", "loyalty_points", "total_points"},
	bson.M{
		"username":       text(2, 60),
		"email":          bson.M{"bsonType": "string", "pattern": `^[^@\s]+@[^@\s]+$`},
		"phone":          typed("string"),
		"wallet":         nonNegative(),
		"loyalty_points": nonNegative(),
		"total_points":   nonNegative(),
		"loyalty_badge":  oneOf("", string(loyalty.Bronze), string(loyalty.Silver), string(loyalty.Gold)),
		"preference":     typed("object"),
	},
)
