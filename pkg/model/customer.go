package model

import "time"

type Customer struct {
	ID            string       `json:"id" bson:"_id"`
	TenantID      string       `json:"tenant_id" bson:"tenant_id"`
	Name          string       `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Kind          CustomerKind `json:"kind" bson:"kind" validate:"required,oneof=CORPORATE SCHOOL INDIVIDUAL AGENT"`
	ContactPerson string       `json:"contact_person,omitempty" bson:"contact_person,omitempty" validate:"omitempty,max=100"`
	Phone         string       `json:"phone" bson:"phone" validate:"required,e164"`
	Email         string       `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Address       string       `json:"address,omitempty" bson:"address,omitempty" validate:"omitempty,max=500"`
	CreatedAt     time.Time    `json:"created_at" bson:"created_at"`
}
