package validators

import "go.mongodb.org/mongo-driver/bson"

var PaymentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"reservation_id",
			"customer_id",
			"charge_id",
			"amount",
			"currency",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"reservation_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"charge_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"amount": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  1,
			},

			"currency": bson.M{
				"bsonType": "string",
				"pattern":  "^[a-z]{3}$",
			},

			"status": bson.M{
				"enum": []string{"pending", "succeeded", "failed", "refunded"},
			},

			"refund_amount": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  1,
			},
		},
	},
}

var ReservationLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"owner",
			"expires_at",
		},

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},
			"owner": bson.M{
				"bsonType": "string",
			},
			"expires_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
