package user

import "time"

type User struct {
	ID               string    `json:"id"`
	ClerkID          string    `json:"clerkId"`
	Email            string    `json:"email"`
	Username         string    `json:"username"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	ImageURL         string    `json:"imageUrl,omitempty"`
	EmailVerified    bool      `json:"emailVerified"`
	Timezone         string    `json:"timezone"`
	BetaTester       bool      `json:"betaTester"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	TotalDrinkCount  int       `json:"total_drink_count"`
	AchievementCount int       `json:"achievement_count"`
}
