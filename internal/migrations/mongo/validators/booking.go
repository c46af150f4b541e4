package validators

import "go.mongodb.org/mongo-driver/bson"

var bookingStatuses = []string{
	"DRAFT",
	"QUOTATION_SENT",
	"PAYMENT_RECEIVED",
	"PAID_IN_FULL",
	"COMPLETED",
	"CANCELLED",
}

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"tenant_id",
			"customer_id",
			"code",
			"status",
			"trip_ids",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":         bson.M{"bsonType": "string"},
			"tenant_id":   bson.M{"bsonType": "string", "minLength": 1},
			"customer_id": bson.M{"bsonType": "string", "minLength": 36, "maxLength": 36},
			"code":        bson.M{"bsonType": "string", "pattern": `^[A-Z]{2,8}/[0-9]{4}/[0-9]{2}/[0-9]{3,}$`},

			"status": bson.M{
				"bsonType": "string",
				"enum":     bookingStatuses,
			},

			"trip_ids": bson.M{
				"bsonType": "array",
				"items":    bson.M{"bsonType": "string"},
			},

			"totals": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"grand_total":    bson.M{"bsonType": "long", "minimum": 0},
					"total_payments": bson.M{"bsonType": "long", "minimum": 0},
					"outstanding":    bson.M{"bsonType": "long"},
				},
			},

			"history": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"from", "to", "at"},
					"properties": bson.M{
						"from": bson.M{"enum": bookingStatuses},
						"to":   bson.M{"enum": bookingStatuses},
						"at":   bson.M{"bsonType": "date"},
					},
				},
			},

			"created_at": bson.M{"bsonType": "date"},
		},
	},
}

var TripValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"tenant_id", "booking_id", "start_time", "end_time", "pickup", "destination"},
		"additionalProperties": true,
		"properties": bson.M{
			"booking_id":  bson.M{"bsonType": "string", "minLength": 36, "maxLength": 36},
			"start_time":  bson.M{"bsonType": "date"},
			"end_time":    bson.M{"bsonType": "date"},
			"pickup":      bson.M{"bsonType": "string", "minLength": 2, "maxLength": 200},
			"destination": bson.M{"bsonType": "string", "minLength": 2, "maxLength": 200},
			"passengers":  bson.M{"bsonType": []string{"int", "long"}},
		},
	},
}
