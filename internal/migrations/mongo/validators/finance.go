package validators

import "go.mongodb.org/mongo-driver/bson"

var ChargeValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"tenant_id", "booking_id", "kind", "description", "quantity", "unit_price", "total", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"booking_id":  bson.M{"bsonType": "string", "minLength": 36, "maxLength": 36},
			"kind":        bson.M{"enum": []string{"PRIMARY", "ADDITIONAL", "DISCOUNT"}},
			"description": bson.M{"bsonType": "string", "minLength": 1, "maxLength": 255},
			"quantity":    bson.M{"bsonType": "long", "minimum": 1},
			"unit_price":  bson.M{"bsonType": "long", "minimum": 0},
			"total":       bson.M{"bsonType": "long", "minimum": 0},
			"created_at":  bson.M{"bsonType": "date"},
		},
	},
}

// PaymentValidator has no update path: payments are append-only.
var PaymentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"tenant_id", "booking_id", "amount", "method", "paid_at", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"booking_id": bson.M{"bsonType": "string", "minLength": 36, "maxLength": 36},
			"amount":     bson.M{"bsonType": "long", "minimum": 1},
			"method":     bson.M{"enum": []string{"CASH", "TRANSFER", "QRIS", "OTHER"}},
			"reference":  bson.M{"bsonType": "string", "maxLength": 100},
			"paid_at":    bson.M{"bsonType": "date"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
