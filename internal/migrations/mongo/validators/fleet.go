package validators

import "go.mongodb.org/mongo-driver/bson"

var vehicleCategories = []string{"BIG_BUS", "MEDIUM_BUS", "HIACE", "ELF", "MPV"}

var VehicleValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"tenant_id", "plate_number", "display_name", "category", "seat_capacity", "ownership", "active"},
		"additionalProperties": true,
		"properties": bson.M{
			"plate_number":  bson.M{"bsonType": "string", "minLength": 3, "maxLength": 15},
			"display_name":  bson.M{"bsonType": "string", "minLength": 1, "maxLength": 60},
			"category":      bson.M{"enum": vehicleCategories},
			"seat_capacity": bson.M{"bsonType": []string{"int", "long"}, "minimum": 1, "maximum": 100},
			"ownership":     bson.M{"enum": []string{"OWNED", "PARTNER"}},
			"active":        bson.M{"bsonType": "bool"},
		},
	},
}

var DriverValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"tenant_id", "full_name", "phone", "license_number", "license_expiry", "active"},
		"additionalProperties": true,
		"properties": bson.M{
			"full_name":      bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
			"phone":          bson.M{"bsonType": "string", "pattern": `^\+[1-9][0-9]{6,14}$`},
			"license_number": bson.M{"bsonType": "string", "minLength": 4, "maxLength": 50},
			"license_expiry": bson.M{"bsonType": "date"},
			"active":         bson.M{"bsonType": "bool"},
		},
	},
}

var AssignmentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"tenant_id", "trip_id", "booking_id", "vehicle_id", "status", "live", "trip_start", "trip_end", "booking_status"},
		"additionalProperties": true,
		"properties": bson.M{
			"trip_id":        bson.M{"bsonType": "string", "minLength": 36, "maxLength": 36},
			"vehicle_id":     bson.M{"bsonType": "string", "minLength": 36, "maxLength": 36},
			"status":         bson.M{"enum": []string{"SCHEDULED", "IN_PROGRESS", "COMPLETED", "CANCELLED"}},
			"live":           bson.M{"bsonType": "bool"},
			"trip_start":     bson.M{"bsonType": "date"},
			"trip_end":       bson.M{"bsonType": "date"},
			"booking_status": bson.M{"enum": bookingStatuses},
			"start_km":       bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"end_km":         bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
		},
	},
}

var CustomerValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"tenant_id", "name", "kind", "phone", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"name":       bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
			"kind":       bson.M{"enum": []string{"CORPORATE", "SCHOOL", "INDIVIDUAL", "AGENT"}},
			"phone":      bson.M{"bsonType": "string", "pattern": `^\+[1-9][0-9]{6,14}$`},
			"email":      bson.M{"bsonType": "string"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
