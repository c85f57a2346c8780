package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// Completion marks a course module completed by a user at a given stage.
type Completion struct {
	Id        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserId    int64              `json:"user_id" bson:"userId"`
	CourseKey string             `json:"course_id" bson:"courseKey"`
	ContentId string             `json:"content_id" bson:"contentId"`
	Stage     string             `json:"stage,omitempty" bson:"stage"`
	Created   int64              `json:"created" bson:"created"`
	Modified  int64              `json:"modified" bson:"modified"`
}
