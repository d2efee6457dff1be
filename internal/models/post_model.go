package models

import "time"

type Post struct {
	ID          int64      `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"user_id"`
	PostType    string     `db:"post_type" json:"post_type"`
	Caption     string     `db:"caption" json:"caption"`
	Title       string     `db:"title" json:"title"`
	MediaURL    string     `db:"media_url" json:"media_url"`
	ScheduledAt *time.Time `db:"scheduled_at" json:"scheduled_at"`
	PublishedAt *time.Time `db:"published_at" json:"published_at"`
	Status      string     `db:"status" json:"status"`
	AIGenerated bool       `db:"ai_generated" json:"ai_generated"`
	AIPrompt    string     `db:"ai_prompt" json:"ai_prompt"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusDraft              = "draft"
	PostStatusScheduled          = "scheduled"
	PostStatusPublished          = "published"
	PostStatusPartiallyPublished = "partially_published"
	PostStatusFailed             = "failed"
)

const (
	PostTypeText     = "text"
	PostTypeImage    = "image"
	PostTypeVideo    = "video"
	PostTypeCarousel = "carousel"
	PostTypeReel     = "reel"
	PostTypeShort    = "short"
)

const MaxCaptionLength = 2200

// DerivePostStatus computes the aggregate post status from per-target
// outcomes after a publication attempt. A post with no targets counts as
// failed since nothing could be delivered.
func DerivePostStatus(succeeded, failed int) string {
	switch {
	case succeeded > 0 && failed == 0:
		return PostStatusPublished
	case succeeded > 0 && failed > 0:
		return PostStatusPartiallyPublished
	default:
		return PostStatusFailed
	}
}

// Editable reports whether the post can still be modified or rescheduled.
func (p *Post) Editable() bool {
	return p.Status == PostStatusDraft || p.Status == PostStatusScheduled
}

func ValidPostType(t string) bool {
	switch t {
	case PostTypeText, PostTypeImage, PostTypeVideo, PostTypeCarousel, PostTypeReel, PostTypeShort:
		return true
	}
	return false
}
