package publisher

import (
	config "github.com/postwave/postwave/configs"
)

// Registry resolves the publisher for a platform. It is built once at
// startup and covers the full Platform set.
type Registry struct {
	publishers map[Platform]Publisher
}

func NewRegistry(cfg config.Config) *Registry {
	return &Registry{
		publishers: map[Platform]Publisher{
			PlatformFacebook:  NewFacebookPublisher(cfg),
			PlatformInstagram: NewInstagramPublisher(cfg),
			PlatformLinkedin:  NewLinkedinPublisher(cfg),
			PlatformTiktok:    NewTiktokPublisher(cfg),
			PlatformYoutube:   NewYoutubePublisher(cfg),
		},
	}
}

// NewRegistryWith builds a registry from explicit publishers. Used in tests
// to substitute stubs.
func NewRegistryWith(publishers map[Platform]Publisher) *Registry {
	return &Registry{publishers: publishers}
}

func (r *Registry) Resolve(platform string) (Publisher, error) {
	p, err := ParsePlatform(platform)
	if err != nil {
		return nil, err
	}
	pub, ok := r.publishers[p]
	if !ok {
		return nil, &PlatformError{Platform: p, Message: "no publisher registered"}
	}
	return pub, nil
}
