package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	config "github.com/postwave/postwave/configs"
	"github.com/postwave/postwave/internal/models"
	"github.com/postwave/postwave/pkg/utils"
)

type tiktokPublisher struct {
	cfg    config.Config
	client *http.Client
}

func NewTiktokPublisher(cfg config.Config) Publisher {
	return &tiktokPublisher{
		cfg:    cfg,
		client: &http.Client{Timeout: publishTimeout},
	}
}

// Publish initiates a PULL_FROM_URL video upload. TikTok fetches the media
// itself, so only the URL goes over the wire here.
func (p *tiktokPublisher) Publish(ctx context.Context, acc *models.SocialAccount, post *models.Post) (string, error) {
	if post.MediaURL == "" {
		return "", &PlatformError{Platform: PlatformTiktok, Message: "tiktok requires a video asset"}
	}

	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return "", &PlatformError{Platform: PlatformTiktok, Message: "unable to decrypt access token"}
	}

	body := map[string]interface{}{
		"post_info": map[string]interface{}{
			"title":         post.Caption,
			"privacy_level": "PUBLIC_TO_EVERYONE",
		},
		"source_info": map[string]interface{}{
			"source":    "PULL_FROM_URL",
			"video_url": post.MediaURL,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	endpoint := fmt.Sprintf("%s/post/publish/video/init/", p.cfg.TiktokAPIBaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: PlatformTiktok, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &PlatformError{Platform: PlatformTiktok, Message: fmt.Sprintf("publish api returned %d: %s", resp.StatusCode, respBody)}
	}

	var result struct {
		Data struct {
			PublishID string `json:"publish_id"`
		} `json:"data"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: PlatformTiktok, Message: "failed to decode publish response"}
	}
	if result.Error.Code != "" && result.Error.Code != "ok" {
		return "", &PlatformError{Platform: PlatformTiktok, Message: result.Error.Message}
	}
	if result.Data.PublishID == "" {
		return "", &PlatformError{Platform: PlatformTiktok, Message: "publish response missing publish id"}
	}

	return result.Data.PublishID, nil
}
