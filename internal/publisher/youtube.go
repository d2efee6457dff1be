package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	config "github.com/postwave/postwave/configs"
	"github.com/postwave/postwave/internal/models"
	"github.com/postwave/postwave/pkg/utils"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

type youtubePublisher struct {
	cfg    config.Config
	client *http.Client
}

func NewYoutubePublisher(cfg config.Config) Publisher {
	return &youtubePublisher{
		cfg:    cfg,
		client: &http.Client{Timeout: publishTimeout},
	}
}

func (p *youtubePublisher) Publish(ctx context.Context, acc *models.SocialAccount, post *models.Post) (string, error) {
	if post.MediaURL == "" {
		return "", &PlatformError{Platform: PlatformYoutube, Message: "youtube requires a video asset"}
	}

	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return "", &PlatformError{Platform: PlatformYoutube, Message: "unable to decrypt access token"}
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	service, err := youtube.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: PlatformYoutube, Message: "failed to create youtube client"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, post.MediaURL, nil)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	mediaResp, err := p.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: PlatformYoutube, Message: err.Error()}
	}
	defer mediaResp.Body.Close()

	if mediaResp.StatusCode != http.StatusOK {
		return "", &PlatformError{Platform: PlatformYoutube, Message: fmt.Sprintf("media fetch returned %d", mediaResp.StatusCode)}
	}

	upload := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       post.Title,
			Description: post.Caption,
		},
		Status: &youtube.VideoStatus{PrivacyStatus: "public"},
	}
	if upload.Snippet.Title == "" {
		upload.Snippet.Title = post.Caption
	}

	video, err := service.Videos.Insert([]string{"snippet", "status"}, upload).Media(mediaResp.Body).Do()
	if err != nil {
		slog.Info(err.Error())
		return "", &PlatformError{Platform: PlatformYoutube, Message: err.Error()}
	}

	return video.Id, nil
}
