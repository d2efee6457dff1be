package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	config "github.com/postwave/postwave/configs"
	"github.com/postwave/postwave/internal/models"
	"github.com/postwave/postwave/pkg/utils"
)

type instagramPublisher struct {
	cfg    config.Config
	client *http.Client
}

func NewInstagramPublisher(cfg config.Config) Publisher {
	return &instagramPublisher{
		cfg:    cfg,
		client: &http.Client{Timeout: publishTimeout},
	}
}

// Publish runs the two-step container flow: create a media container, then
// publish it. Instagram has no text-only post type, so a media URL is
// required.
func (p *instagramPublisher) Publish(ctx context.Context, acc *models.SocialAccount, post *models.Post) (string, error) {
	if post.MediaURL == "" {
		return "", &PlatformError{Platform: PlatformInstagram, Message: "instagram requires a media asset"}
	}

	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return "", &PlatformError{Platform: PlatformInstagram, Message: "unable to decrypt access token"}
	}

	containerID, err := p.createContainer(ctx, acc.AccountID, accessToken, post)
	if err != nil {
		return "", err
	}

	return p.publishContainer(ctx, acc.AccountID, accessToken, containerID)
}

func (p *instagramPublisher) createContainer(ctx context.Context, accountID, accessToken string, post *models.Post) (string, error) {
	data := url.Values{}
	data.Set("caption", post.Caption)
	data.Set("access_token", accessToken)
	switch post.PostType {
	case models.PostTypeVideo, models.PostTypeReel:
		data.Set("media_type", "REELS")
		data.Set("video_url", post.MediaURL)
	default:
		data.Set("image_url", post.MediaURL)
	}

	endpoint := fmt.Sprintf("%s/%s/media", p.cfg.InstagramAPIBaseURL, accountID)
	return p.postForID(ctx, endpoint, data)
}

func (p *instagramPublisher) publishContainer(ctx context.Context, accountID, accessToken, containerID string) (string, error) {
	data := url.Values{}
	data.Set("creation_id", containerID)
	data.Set("access_token", accessToken)

	endpoint := fmt.Sprintf("%s/%s/media_publish", p.cfg.InstagramAPIBaseURL, accountID)
	return p.postForID(ctx, endpoint, data)
}

func (p *instagramPublisher) postForID(ctx context.Context, endpoint string, data url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: PlatformInstagram, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &PlatformError{Platform: PlatformInstagram, Message: fmt.Sprintf("graph api returned %d: %s", resp.StatusCode, body)}
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: PlatformInstagram, Message: "failed to decode response"}
	}
	if result.ID == "" {
		return "", &PlatformError{Platform: PlatformInstagram, Message: "response missing media id"}
	}

	return result.ID, nil
}
