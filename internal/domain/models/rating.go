package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RatingTag is a descriptive label attached to a rating.
type RatingTag string

const (
	TagPunctual        RatingTag = "punctual"
	TagFriendly        RatingTag = "friendly"
	TagCleanCar        RatingTag = "clean_car"
	TagSafeDriving     RatingTag = "safe_driving"
	TagProfessional    RatingTag = "professional"
	TagPolite          RatingTag = "polite"
	TagCorrectLocation RatingTag = "correct_location"
)

// AllRatingTags is the closed set of accepted tags.
var AllRatingTags = []RatingTag{
	TagPunctual,
	TagFriendly,
	TagCleanCar,
	TagSafeDriving,
	TagProfessional,
	TagPolite,
	TagCorrectLocation,
}

// IsValidRatingTag reports whether t belongs to the closed tag set.
func IsValidRatingTag(t string) bool {
	for _, v := range AllRatingTags {
		if string(v) == t {
			return true
		}
	}
	return false
}

// Rating is one party's score for the other after a completed ride.
// (ride, from) is unique; ratings are never updated.
type Rating struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Ride      primitive.ObjectID `bson:"ride" json:"ride"`
	From      primitive.ObjectID `bson:"from" json:"from"`
	To        primitive.ObjectID `bson:"to" json:"to"`
	Stars     int                `bson:"stars" json:"stars"`
	Comment   string             `bson:"comment,omitempty" json:"comment,omitempty"`
	Tags      []RatingTag        `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}
