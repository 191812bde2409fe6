package validators

import "go.mongodb.org/mongo-driver/bson"

// OfferingValidator is shared by the Activities and Itineraries collections,
// each pinned to its own kind.
func OfferingValidator(kind string) bson.M {
	comment := object([]string{"author_id", "rating"}, bson.M{
		"author_id": text(1, 0),
		"rating":    rating(),
		"text":      text(0, 2000),
	})
	availableDate := object([]string{"date"}, bson.M{"date": typed("date")})

	return document(
		[]string{"kind", "name", "price", "categories", "owner_id", "active", "appropriate"},
		bson.M{
			"_id":             typed("objectId"),
			"kind":            oneOf(kind),
			"name":            text(2, 200),
			"price":           nonNegative(),
			"currency":        text(3, 3),
			"timing":          typed("date"),
			"available_dates": listOf(availableDate),
			"categories":      listOf(typed("string")),
			"tags":            listOf(typed("string")),
			"languages":       listOf(typed("string")),
			"rating":          rating(),
			"comments":        listOf(comment),
			"owner_id":        typed("string"),
			"active":          typed("bool"),
			"appropriate":     typed("bool"),
			"created_at":      typed("date"),
		},
	)
}
