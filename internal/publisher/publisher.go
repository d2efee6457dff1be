package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/postwave/postwave/internal/models"
)

// Platform identifies a supported social network. The set is closed; the
// registry is keyed on it so dispatch never falls through on a typo.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedin  Platform = "linkedin"
	PlatformTiktok    Platform = "tiktok"
	PlatformYoutube   Platform = "youtube"
)

func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformFacebook, PlatformInstagram, PlatformLinkedin, PlatformTiktok, PlatformYoutube:
		return Platform(s), nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// Publisher pushes one post to one connected account and returns the
// platform-assigned post id.
type Publisher interface {
	Publish(ctx context.Context, acc *models.SocialAccount, post *models.Post) (string, error)
}

// PlatformError is a publish failure reported by (or on the way to) a
// platform API. The message is user-facing; platform error codes are not
// interpreted beyond success vs. failure.
type PlatformError struct {
	Platform Platform
	Message  string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s: %s", e.Platform, e.Message)
}

const publishTimeout = 30 * time.Second
