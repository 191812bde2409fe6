package validators

import (
	"tripmarket/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

var BookingValidator = document(
	[]string{
		"rider_id", "offering_id", "offering_kind",
		"payment_type", "payment_amount", "number_of_tickets",
		"scheduled_date", "points_earned", "created_at",
	},
	bson.M{
		"_id":            typed("objectId"),
		"rider_id":       typed("string"),
		"offering_id":    text(24, 24),
		"offering_kind":  oneOf(string(model.KindActivity), string(model.KindItinerary)),
		"payment_type":   oneOf(model.PaymentCreditCard, model.PaymentDebitCard, model.PaymentWallet),
		"payment_amount": nonNegative(),
		"unit_price":     nonNegative(),
		"number_of_tickets": bson.M{
			"bsonType": []string{"int", "long"},
			"minimum":  1,
			"maximum":  100,
		},
		"scheduled_date": typed("date"),
		"points_earned":  nonNegative(),
		"reminder_sent":  typed("bool"),
		"created_at":     typed("date"),
	},
)
