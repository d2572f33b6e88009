package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// AdvertisementDescription holds the free-text body of an advertisement in
// the document store; the relational row keeps only its id.
type AdvertisementDescription struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Content  string             `bson:"content" json:"content"`
	Features map[string]string  `bson:"features,omitempty" json:"features,omitempty"`
}
