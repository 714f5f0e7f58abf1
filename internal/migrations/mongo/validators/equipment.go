package validators

import "go.mongodb.org/mongo-driver/bson"

var EquipmentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"status",
			"daily_rate",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 200,
			},

			"status": bson.M{
				"enum": []string{"available", "maintenance", "retired"},
			},

			"daily_rate": bson.M{
				"bsonType": []string{"long", "int"},
				"minimum":  0,
			},

			"currency": bson.M{
				"bsonType": "string",
				"pattern":  "^[a-z]{3}$",
			},
		},
	},
}
