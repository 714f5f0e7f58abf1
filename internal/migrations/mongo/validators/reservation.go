package validators

import "go.mongodb.org/mongo-driver/bson"

var ReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"customer_id",
			"equipment_id",
			"start_date",
			"end_date",
			"delivery_address",
			"status",
			"total_amount",
			"currency",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"customer_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"equipment_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"start_date": bson.M{
				"bsonType": "date",
			},

			"end_date": bson.M{
				"bsonType": "date",
			},

			"delivery_address": bson.M{
				"bsonType":  "string",
				"minLength": 5,
				"maxLength": 300,
			},

			"status": bson.M{
				"enum": []string{"pending", "confirmed", "active", "completed", "cancelled"},
			},

			// Minor units; a zero total is never produced by the calculator.
			"total_amount": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  1,
			},

			"currency": bson.M{
				"bsonType": "string",
				"pattern":  "^[a-z]{3}$",
			},

			"notes": bson.M{
				"bsonType":  "string",
				"maxLength": 1000,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
