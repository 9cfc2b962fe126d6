package models

import "time"

// ChannelProfileQuery asks for the public profile of the channel owned by
// Username, as seen by RequesterID (used for the subscription flag).
type ChannelProfileQuery struct {
	Username    string
	RequesterID string
}

// ChannelProfile is a user viewed as the target of subscriptions.
type ChannelProfile struct {
	ID                string `json:"_id"`
	Username          string `json:"username"`
	Fullname          string `json:"fullname"`
	Email             string `json:"email"`
	Avatar            string `json:"avatar"`
	CoverImage        string `json:"coverImage"`
	SubscriberCount   int64  `json:"subscriberCount"`
	SubscribedToCount int64  `json:"subscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
}

// WatchHistoryQuery asks for the ordered watch history of UserID.
type WatchHistoryQuery struct {
	UserID string
}

// VideoOwner is the minimal owner profile embedded in watch history items.
type VideoOwner struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	Avatar   string `json:"avatar"`
}

// WatchedVideo is one watch history entry.
type WatchedVideo struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	VideoFile   string     `json:"videoFile"`
	Thumbnail   string     `json:"thumbnail"`
	Duration    float64    `json:"duration"`
	Views       int64      `json:"views"`
	CreatedAt   time.Time  `json:"createdAt"`
	Owner       VideoOwner `json:"owner"`
}
