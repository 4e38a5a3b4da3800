package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Asset is a sellable digital item. ResourceUrl points at an already uploaded file.
type Asset struct {
	Id           primitive.ObjectID `json:"id" bson:"_id"`
	Title        string             `json:"title" bson:"title"`
	Description  string             `json:"description" bson:"description"`
	Price        float64            `json:"price" bson:"price"`
	Currency     Currency           `json:"currency" bson:"currency"`
	ResourceUrl  string             `json:"resourceUrl" bson:"resourceUrl"`
	Owner        primitive.ObjectID `json:"userId" bson:"user"`
	OwnerProfile *PublicProfile     `json:"user,omitempty" bson:"ownerProfile,omitempty"`
	IsDisabled   bool               `json:"isDisabled" bson:"isDisabled"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}
