// Package youtube provisions live broadcasts, ingest streams, and
// archive playlists through the YouTube Data API v3.
package youtube

import (
	"context"
	"errors"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"
)

// API is the subset of the Data API the provisioner drives. The
// concrete implementation is Service; tests substitute a fake.
type API interface {
	// InsertBroadcast creates a live broadcast.
	InsertBroadcast(ctx context.Context, b *youtube.LiveBroadcast) (*youtube.LiveBroadcast, error)

	// UpdateVideo replaces the snippet of the broadcast's video resource.
	UpdateVideo(ctx context.Context, v *youtube.Video) (*youtube.Video, error)

	// InsertStream creates a live ingest stream.
	InsertStream(ctx context.Context, s *youtube.LiveStream) (*youtube.LiveStream, error)

	// BindBroadcast binds a stream to a broadcast.
	BindBroadcast(ctx context.Context, broadcastID, streamID string) error

	// UpcomingBroadcasts lists every broadcast still in the upcoming
	// lifecycle state.
	UpcomingBroadcasts(ctx context.Context) ([]*youtube.LiveBroadcast, error)

	// DeleteBroadcast deletes a broadcast by id.
	DeleteBroadcast(ctx context.Context, id string) error

	// Streams lists the channel's live ingest streams.
	Streams(ctx context.Context) ([]*youtube.LiveStream, error)

	// DeleteStream deletes a stream by id.
	DeleteStream(ctx context.Context, id string) error

	// Playlists lists the channel's playlists.
	Playlists(ctx context.Context) ([]*youtube.Playlist, error)

	// InsertPlaylist creates a playlist.
	InsertPlaylist(ctx context.Context, p *youtube.Playlist) (*youtube.Playlist, error)

	// InsertPlaylistItem adds a video to a playlist.
	InsertPlaylistItem(ctx context.Context, item *youtube.PlaylistItem) (*youtube.PlaylistItem, error)
}

// Service implements API against the real YouTube Data API.
type Service struct {
	yt *youtube.Service
}

func (s *Service) InsertBroadcast(ctx context.Context, b *youtube.LiveBroadcast) (*youtube.LiveBroadcast, error) {
	return s.yt.LiveBroadcasts.Insert([]string{"snippet", "status", "contentDetails"}, b).Context(ctx).Do()
}

func (s *Service) UpdateVideo(ctx context.Context, v *youtube.Video) (*youtube.Video, error) {
	return s.yt.Videos.Update([]string{"snippet"}, v).Context(ctx).Do()
}

func (s *Service) InsertStream(ctx context.Context, st *youtube.LiveStream) (*youtube.LiveStream, error) {
	return s.yt.LiveStreams.Insert([]string{"snippet", "cdn"}, st).Context(ctx).Do()
}

func (s *Service) BindBroadcast(ctx context.Context, broadcastID, streamID string) error {
	_, err := s.yt.LiveBroadcasts.Bind(broadcastID, []string{"id"}).StreamId(streamID).Context(ctx).Do()
	return err
}

func (s *Service) UpcomingBroadcasts(ctx context.Context) ([]*youtube.LiveBroadcast, error) {
	var all []*youtube.LiveBroadcast
	pageToken := ""
	for {
		resp, err := s.yt.LiveBroadcasts.List([]string{"id", "snippet"}).
			BroadcastStatus("upcoming").
			MaxResults(50).
			PageToken(pageToken).
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Items...)
		pageToken = resp.NextPageToken
		if pageToken == "" {
			return all, nil
		}
	}
}

func (s *Service) DeleteBroadcast(ctx context.Context, id string) error {
	return s.yt.LiveBroadcasts.Delete(id).Context(ctx).Do()
}

func (s *Service) Streams(ctx context.Context) ([]*youtube.LiveStream, error) {
	var all []*youtube.LiveStream
	pageToken := ""
	for {
		resp, err := s.yt.LiveStreams.List([]string{"id", "cdn"}).
			Mine(true).
			MaxResults(50).
			PageToken(pageToken).
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Items...)
		pageToken = resp.NextPageToken
		if pageToken == "" {
			return all, nil
		}
	}
}

func (s *Service) DeleteStream(ctx context.Context, id string) error {
	return s.yt.LiveStreams.Delete(id).Context(ctx).Do()
}

func (s *Service) Playlists(ctx context.Context) ([]*youtube.Playlist, error) {
	var all []*youtube.Playlist
	pageToken := ""
	for {
		resp, err := s.yt.Playlists.List([]string{"id", "snippet"}).
			Mine(true).
			MaxResults(50).
			PageToken(pageToken).
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Items...)
		pageToken = resp.NextPageToken
		if pageToken == "" {
			return all, nil
		}
	}
}

func (s *Service) InsertPlaylist(ctx context.Context, p *youtube.Playlist) (*youtube.Playlist, error) {
	return s.yt.Playlists.Insert([]string{"snippet", "status"}, p).Context(ctx).Do()
}

func (s *Service) InsertPlaylistItem(ctx context.Context, item *youtube.PlaylistItem) (*youtube.PlaylistItem, error) {
	return s.yt.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do()
}

// IsStreamDeletionNotAllowed reports whether err is YouTube refusing to
// delete a stream because it is still transitioning out of use.
func IsStreamDeletionNotAllowed(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != 403 {
		return false
	}
	for _, item := range gerr.Errors {
		if item.Reason == "liveStreamDeletionNotAllowed" {
			return true
		}
	}
	return false
}
