package publisher

import (
	"context"
	"testing"

	config "github.com/postwave/postwave/configs"
	"github.com/postwave/postwave/internal/models"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	for _, valid := range []string{"facebook", "instagram", "linkedin", "tiktok", "youtube"} {
		p, err := ParsePlatform(valid)
		require.NoError(t, err)
		require.Equal(t, Platform(valid), p)
	}

	_, err := ParsePlatform("myspace")
	require.Error(t, err)

	_, err = ParsePlatform("")
	require.Error(t, err)
}

func TestRegistryResolvesAllPlatforms(t *testing.T) {
	registry := NewRegistry(config.Config{})

	for _, platform := range []string{"facebook", "instagram", "linkedin", "tiktok", "youtube"} {
		pub, err := registry.Resolve(platform)
		require.NoError(t, err)
		require.NotNil(t, pub)
	}
}

func TestRegistryRejectsUnknownPlatform(t *testing.T) {
	registry := NewRegistry(config.Config{})

	_, err := registry.Resolve("myspace")
	require.Error(t, err)
}

type stubPublisher struct {
	id string
}

func (s *stubPublisher) Publish(ctx context.Context, acc *models.SocialAccount, post *models.Post) (string, error) {
	return s.id, nil
}

func TestRegistryWithSubstitutes(t *testing.T) {
	registry := NewRegistryWith(map[Platform]Publisher{
		PlatformFacebook: &stubPublisher{id: "fb_1"},
	})

	pub, err := registry.Resolve("facebook")
	require.NoError(t, err)

	id, err := pub.Publish(context.Background(), &models.SocialAccount{}, &models.Post{})
	require.NoError(t, err)
	require.Equal(t, "fb_1", id)

	// Known platform without a registered publisher is still an error.
	_, err = registry.Resolve("tiktok")
	require.Error(t, err)
}
