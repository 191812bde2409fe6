package validators

import "go.mongodb.org/mongo-driver/bson"

// Categories are keyed by their slug.
var CategoryValidator = document(
	[]string{"_id", "name"},
	bson.M{
		"_id":         text(1, 60),
		"name":        text(1, 100),
		"description": text(0, 500),
	},
)
