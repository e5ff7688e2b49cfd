package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a chat line between two users. Ride chat messages reference the
// ride; support chat messages have SupportChat set and no ride.
type Message struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Ride        *primitive.ObjectID `bson:"ride,omitempty" json:"ride,omitempty"`
	Sender      primitive.ObjectID  `bson:"sender" json:"sender"`
	Receiver    primitive.ObjectID  `bson:"receiver" json:"receiver"`
	Content     string              `bson:"content" json:"content"`
	Read        bool                `bson:"read" json:"read"`
	SupportChat bool                `bson:"support_chat" json:"supportChat"`
	CreatedAt   time.Time           `bson:"created_at" json:"createdAt"`
}

// SupportConversation summarizes one user's support thread for admins.
type SupportConversation struct {
	UserID        primitive.ObjectID `bson:"_id" json:"userId"`
	UserName      string             `bson:"user_name" json:"userName"`
	UserRole      string             `bson:"user_role" json:"userRole"`
	LastMessage   string             `bson:"last_message" json:"lastMessage"`
	LastMessageAt time.Time          `bson:"last_message_at" json:"lastMessageAt"`
	UnreadCount   int                `bson:"unread_count" json:"unreadCount"`
}
