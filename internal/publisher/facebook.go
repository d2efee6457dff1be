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

type facebookPublisher struct {
	cfg    config.Config
	client *http.Client
}

func NewFacebookPublisher(cfg config.Config) Publisher {
	return &facebookPublisher{
		cfg:    cfg,
		client: &http.Client{Timeout: publishTimeout},
	}
}

func (p *facebookPublisher) Publish(ctx context.Context, acc *models.SocialAccount, post *models.Post) (string, error) {
	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return "", &PlatformError{Platform: PlatformFacebook, Message: "unable to decrypt access token"}
	}

	endpoint := fmt.Sprintf("%s/%s/feed", p.cfg.FacebookAPIBaseURL, acc.AccountID)
	if post.MediaURL != "" {
		endpoint = fmt.Sprintf("%s/%s/photos", p.cfg.FacebookAPIBaseURL, acc.AccountID)
	}

	data := url.Values{}
	data.Set("message", post.Caption)
	data.Set("access_token", accessToken)
	if post.MediaURL != "" {
		data.Set("url", post.MediaURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: PlatformFacebook, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &PlatformError{Platform: PlatformFacebook, Message: fmt.Sprintf("graph api returned %d: %s", resp.StatusCode, body)}
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: PlatformFacebook, Message: "failed to decode publish response"}
	}
	if result.ID == "" {
		return "", &PlatformError{Platform: PlatformFacebook, Message: "publish response missing post id"}
	}

	return result.ID, nil
}
