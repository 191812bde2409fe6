// Package validators holds the $jsonSchema documents installed on each
// collection by the migrate command.
package validators

import "go.mongodb.org/mongo-driver/bson"

func document(required []string, properties bson.M) bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType":             "object",
			"required":             required,
			"additionalProperties": true,
			"properties":           properties,
		},
	}
}

func object(required []string, properties bson.M) bson.M {
	schema := bson.M{"bsonType": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// text constrains a string; a zero bound is left open.
func text(minLength, maxLength int) bson.M {
	schema := bson.M{"bsonType": "string"}
	if minLength > 0 {
		schema["minLength"] = minLength
	}
	if maxLength > 0 {
		schema["maxLength"] = maxLength
	}
	return schema
}

func oneOf(values ...string) bson.M {
	return bson.M{"bsonType": "string", "enum": values}
}

func nonNegative() bson.M {
	return bson.M{"bsonType": "number", "minimum": 0}
}

func rating() bson.M {
	return bson.M{"bsonType": "number", "minimum": 0, "maximum": 5}
}

func listOf(item bson.M) bson.M {
	return bson.M{"bsonType": "array", "items": item}
}

func typed(bsonType string) bson.M {
	return bson.M{"bsonType": bsonType}
}
