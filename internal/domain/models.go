// Package domain defines the persistence models and wire types shared by the
// generation API server and the postgen client: reference data (profiles,
// platforms, projects), posts with their append-only version history, and
// the request/response shapes of the generation endpoints.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Profile is a writing persona owned by a user (voice, audience, expertise).
type Profile struct {
	ID          string         `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID      string         `json:"userId"      gorm:"type:varchar(64);not null;index:idx_user_profiles"`
	Name        string         `json:"name"        gorm:"type:varchar(255);not null"`
	Tone        string         `json:"tone"        gorm:"type:varchar(64)"`
	Audience    string         `json:"audience"    gorm:"type:varchar(255)"`
	Description string         `json:"description" gorm:"type:text"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-"           gorm:"index"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }

// Platform is a publishing target and its formatting constraints. Platforms
// are global reference data.
type Platform struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	Slug      string    `json:"slug"      gorm:"type:varchar(64);not null;uniqueIndex"`
	Name      string    `json:"name"      gorm:"type:varchar(128);not null"`
	MaxLength int       `json:"maxLength" gorm:"not null;default:0"` // 0 = unbounded
	Format    string    `json:"format"    gorm:"type:varchar(32);not null;default:'text'"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the database table name for Platform.
func (Platform) TableName() string { return "platforms" }

// Project groups posts for one profile under a shared brief.
type Project struct {
	ID          string         `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID      string         `json:"userId"      gorm:"type:varchar(64);not null;index:idx_user_projects"`
	ProfileID   string         `json:"profileId"   gorm:"type:char(36);not null;index"`
	Name        string         `json:"name"        gorm:"type:varchar(255);not null"`
	Description string         `json:"description" gorm:"type:text"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-"           gorm:"index"`
}

// TableName returns the database table name for Project.
func (Project) TableName() string { return "projects" }

// TokenUsage is informational accounting attached to each generated text.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Add returns the element-wise sum of u and o.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// Post is one piece of content and the inputs it was generated from.
// GeneratedText mirrors the currently selected version.
type Post struct {
	ID            string         `json:"id"                   gorm:"type:char(36);primaryKey"`
	UserID        string         `json:"userId"               gorm:"type:varchar(64);not null;index:idx_user_posts"`
	ProfileID     string         `json:"profileId"            gorm:"type:char(36);not null;index"`
	ProjectID     *string        `json:"projectId,omitempty"  gorm:"type:char(36);index"`
	PlatformID    *string        `json:"platformId,omitempty" gorm:"type:char(36)"`
	Goal          string         `json:"goal,omitempty"       gorm:"type:varchar(255)"`
	RawIdea       string         `json:"rawIdea"              gorm:"type:text;not null"`
	Title         string         `json:"title"                gorm:"type:varchar(255);not null;default:'Untitled post'"`
	GeneratedText string         `json:"generatedText"        gorm:"type:text"`
	Usage         TokenUsage     `json:"usage"                gorm:"embedded;embeddedPrefix:usage_"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `json:"-"                    gorm:"index"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }

// PostVersion is one entry of a post's append-only history. Version numbers
// increase by one per post and exactly one version per post is selected.
// Only IsSelected changes after creation.
type PostVersion struct {
	ID              string     `json:"id"                        gorm:"type:char(36);primaryKey"`
	PostID          string     `json:"postId"                    gorm:"type:char(36);not null;uniqueIndex:ux_post_version_number,priority:1"`
	VersionNumber   int        `json:"versionNumber"             gorm:"not null;uniqueIndex:ux_post_version_number,priority:2;check:version_number > 0"`
	GeneratedText   string     `json:"generatedText"             gorm:"type:text;not null"`
	IterationPrompt *string    `json:"iterationPrompt,omitempty" gorm:"type:text"`
	Approach        string     `json:"approach,omitempty"        gorm:"type:varchar(32)"`
	IsSelected      bool       `json:"isSelected"                gorm:"not null;default:false"`
	Usage           TokenUsage `json:"usage"                     gorm:"embedded;embeddedPrefix:usage_"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"-"`

	// Post is the owning post. Versions are cascade-deleted with it.
	Post Post `json:"-" gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PostVersion.
func (PostVersion) TableName() string { return "post_versions" }
