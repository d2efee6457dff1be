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

type linkedinPublisher struct {
	cfg    config.Config
	client *http.Client
}

func NewLinkedinPublisher(cfg config.Config) Publisher {
	return &linkedinPublisher{
		cfg:    cfg,
		client: &http.Client{Timeout: publishTimeout},
	}
}

func (p *linkedinPublisher) Publish(ctx context.Context, acc *models.SocialAccount, post *models.Post) (string, error) {
	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return "", &PlatformError{Platform: PlatformLinkedin, Message: "unable to decrypt access token"}
	}

	body := map[string]interface{}{
		"author":         fmt.Sprintf("urn:li:person:%s", acc.AccountID),
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": map[string]interface{}{
				"shareCommentary": map[string]string{
					"text": post.Caption,
				},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	endpoint := fmt.Sprintf("%s/ugcPosts", p.cfg.LinkedinAPIBaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: PlatformLinkedin, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &PlatformError{Platform: PlatformLinkedin, Message: fmt.Sprintf("ugc api returned %d: %s", resp.StatusCode, respBody)}
	}

	// LinkedIn returns the new share urn in a response header.
	if id := resp.Header.Get("X-Restli-Id"); id != "" {
		return id, nil
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: PlatformLinkedin, Message: "failed to decode publish response"}
	}
	if result.ID == "" {
		return "", &PlatformError{Platform: PlatformLinkedin, Message: "publish response missing share id"}
	}

	return result.ID, nil
}
