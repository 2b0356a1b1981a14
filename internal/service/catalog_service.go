package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"musicbridge/internal/model"
	"musicbridge/pkg/logger"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
)

// Kind is the type of Spotify resource a URL points at
type Kind string

const (
	KindTrack    Kind = "track"
	KindPlaylist Kind = "playlist"
	KindAlbum    Kind = "album"
)

// ErrNoTracks is returned when a playlist or album resolves to nothing
var ErrNoTracks = errors.New("no tracks found")

// CatalogError marks a failure caused by the submitted URL, such as an
// unparsable id or an error reported by the Spotify API. The message is
// passed to the client unchanged.
type CatalogError struct {
	Err error
}

func (e *CatalogError) Error() string { return e.Err.Error() }

func (e *CatalogError) Unwrap() error { return e.Err }

// Catalog looks tracks up by Spotify id
type Catalog interface {
	Track(ctx context.Context, id string) (model.Track, error)
	PlaylistTracks(ctx context.Context, id string) ([]model.Track, error)
	AlbumTracks(ctx context.Context, id string) ([]model.Track, error)
}

// Collection is the result of resolving a Spotify URL
type Collection struct {
	Kind   Kind
	ID     string
	Tracks []model.Track
}

// Resolver turns a Spotify URL into the tracks it refers to
type Resolver struct {
	catalog Catalog
}

// NewResolver creates a resolver backed by catalog
func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// ClassifyURL decides the resource kind the same loose way users paste
// links: anything mentioning "playlist" is a playlist, "album" an album,
// everything else a track.
func ClassifyURL(raw string) Kind {
	switch {
	case strings.Contains(raw, "playlist"):
		return KindPlaylist
	case strings.Contains(raw, "album"):
		return KindAlbum
	default:
		return KindTrack
	}
}

var spotifyIDRe = regexp.MustCompile(`^[0-9A-Za-z]{22}$`)

// ParseID extracts the base62 id from an open.spotify.com URL, a spotify:
// URI or a bare id.
func ParseID(raw string, kind Kind) (string, error) {
	s := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(s, "spotify:"):
		parts := strings.Split(s, ":")
		s = parts[len(parts)-1]
	case strings.Contains(s, "://"):
		u, err := url.Parse(s)
		if err == nil {
			segs := strings.Split(strings.Trim(u.Path, "/"), "/")
			s = segs[len(segs)-1]
			for i, seg := range segs {
				if seg == string(kind) && i+1 < len(segs) {
					s = segs[i+1]
				}
			}
		}
	}
	if !spotifyIDRe.MatchString(s) {
		return "", &CatalogError{Err: fmt.Errorf("invalid id: %s", raw)}
	}
	return s, nil
}

// Resolve returns the tracks behind rawURL
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*Collection, error) {
	kind := ClassifyURL(rawURL)
	id, err := ParseID(rawURL, kind)
	if err != nil {
		return nil, err
	}

	col := &Collection{Kind: kind, ID: id}
	switch kind {
	case KindPlaylist:
		col.Tracks, err = r.catalog.PlaylistTracks(ctx, id)
	case KindAlbum:
		col.Tracks, err = r.catalog.AlbumTracks(ctx, id)
	default:
		var t model.Track
		t, err = r.catalog.Track(ctx, id)
		col.Tracks = []model.Track{t}
	}
	if err != nil {
		return nil, err
	}
	if len(col.Tracks) == 0 {
		return nil, fmt.Errorf("%s %s: %w", kind, id, ErrNoTracks)
	}

	logger.Logger.Info("Resolved Spotify URL",
		zap.String("kind", string(kind)),
		zap.String("id", id),
		zap.Int("tracks", len(col.Tracks)))
	return col, nil
}

// SpotifyCatalog is a Catalog backed by the Spotify Web API using the
// client-credentials flow.
type SpotifyCatalog struct {
	client *spotify.Client
}

// NewSpotifyCatalog creates a catalog authenticating with the given app credentials
func NewSpotifyCatalog(ctx context.Context, clientID, clientSecret string, opts ...spotify.ClientOption) *SpotifyCatalog {
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return &SpotifyCatalog{client: spotify.New(cc.Client(ctx), opts...)}
}

// Track fetches a single track
func (s *SpotifyCatalog) Track(ctx context.Context, id string) (model.Track, error) {
	t, err := s.client.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return model.Track{}, wrapSpotifyErr(err)
	}
	return trackFrom(t.SimpleTrack), nil
}

// PlaylistTracks fetches every track of a playlist, following pagination.
// Episodes and unavailable items are skipped.
func (s *SpotifyCatalog) PlaylistTracks(ctx context.Context, id string) ([]model.Track, error) {
	page, err := s.client.GetPlaylistItems(ctx, spotify.ID(id), spotify.Limit(100))
	if err != nil {
		return nil, wrapSpotifyErr(err)
	}

	var tracks []model.Track
	for {
		for _, item := range page.Items {
			// episodes and removed tracks have no track payload
			if item.Track.Track != nil {
				tracks = append(tracks, trackFrom(item.Track.Track.SimpleTrack))
			}
		}
		err = s.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			return tracks, nil
		}
		if err != nil {
			return nil, wrapSpotifyErr(err)
		}
	}
}

// AlbumTracks fetches every track of an album, following pagination
func (s *SpotifyCatalog) AlbumTracks(ctx context.Context, id string) ([]model.Track, error) {
	page, err := s.client.GetAlbumTracks(ctx, spotify.ID(id), spotify.Limit(50))
	if err != nil {
		return nil, wrapSpotifyErr(err)
	}

	var tracks []model.Track
	for {
		for _, t := range page.Tracks {
			tracks = append(tracks, trackFrom(t))
		}
		err = s.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			return tracks, nil
		}
		if err != nil {
			return nil, wrapSpotifyErr(err)
		}
	}
}

func trackFrom(t spotify.SimpleTrack) model.Track {
	tr := model.Track{Name: t.Name}
	if len(t.Artists) > 0 {
		tr.Artist = t.Artists[0].Name
	}
	return tr
}

// wrapSpotifyErr turns errors reported by the Spotify API into CatalogErrors.
// Transport and auth failures stay plain errors.
func wrapSpotifyErr(err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return &CatalogError{Err: err}
	}
	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) {
		return &CatalogError{Err: err}
	}
	return err
}
