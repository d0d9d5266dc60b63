package user

import (
	"sipHappensAPI/internal/achievement"
	"sipHappensAPI/internal/stats"
)

type CreateUserRequest struct {
	ClerkID    string `json:"clerkId" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Username   string `json:"username" validate:"required,min=3,max=30"`
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	ImageURL   string `json:"imageUrl,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	BetaTester bool   `json:"betaTester,omitempty"`
}

type UpdateProfileRequest struct {
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
}

type DisplayProfileResponse struct {
	User         *User                                `json:"user"`
	Stats        *stats.UserStats                     `json:"stats"`
	Achievements []*achievement.AchievementWithStatus `json:"achievements"`
	IsFriend     bool                                 `json:"is_friend"`
}
