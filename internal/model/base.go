package model

import "time"

type BaseModel struct {
	ID        string    `db:"id" bson:"_id" json:"id"`
	CreatedAt time.Time `db:"created_at" bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" bson:"updatedAt" json:"updatedAt"`
}
