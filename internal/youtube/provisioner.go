package youtube

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/youtube/v3"

	"github.com/daichi0525/aina-YTLoop/internal/config"
)

// Handle identifies one provisioned broadcast and the ingest key OBS
// must stream to.
type Handle struct {
	BroadcastID string
	StreamID    string
	StreamKey   string
}

// ProvisionerOptions configures a Provisioner.
//
// This struct enables test-friendly construction with explicit dependencies.
type ProvisionerOptions struct {
	API    API
	Config config.YouTubeConfig
	Logger *zap.SugaredLogger

	// Optional: for deterministic time-based testing
	Now func() time.Time
}

// Provisioner creates the YouTube side of one loop iteration: a
// broadcast, a bound ingest stream, and the archive playlist entry.
type Provisioner struct {
	api    API
	cfg    config.YouTubeConfig
	logger *zap.SugaredLogger
	now    func() time.Time
	loc    *time.Location

	// created counts fully provisioned broadcasts and feeds the
	// {count} title placeholder.
	created int
}

// NewProvisioner creates a Provisioner from options.
func NewProvisioner(opts ProvisionerOptions) *Provisioner {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc := opts.Config.Location
	if loc == nil {
		loc = time.Local
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Provisioner{
		api:    opts.API,
		cfg:    opts.Config,
		logger: logger,
		now:    now,
		loc:    loc,
	}
}

// Create provisions a broadcast bound to a fresh ingest stream and
// returns the handle OBS needs. The broadcast, stream, and bind steps
// abort on failure; video metadata and the archive playlist are
// best-effort and only logged when they fail.
func (p *Provisioner) Create(ctx context.Context) (*Handle, error) {
	if p.cfg.CleanupBeforeCreate {
		if _, err := p.Cleanup(ctx); err != nil {
			p.logger.Warnw("cleanup before create failed", "error", err)
		}
	}

	now := p.now()

	b := p.buildBroadcast(now)
	broadcast, err := p.api.InsertBroadcast(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to create broadcast: %w", err)
	}
	p.logger.Infow("created broadcast", "id", broadcast.Id, "title", b.Snippet.Title)

	p.applyVideoMetadata(ctx, broadcast.Id, b.Snippet.Title)

	stream, err := p.api.InsertStream(ctx, p.buildStream(now))
	if err != nil {
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}
	key := ""
	if stream.Cdn != nil && stream.Cdn.IngestionInfo != nil {
		key = stream.Cdn.IngestionInfo.StreamName
	}
	if key == "" {
		return nil, fmt.Errorf("stream %s has no ingestion key", stream.Id)
	}
	p.logger.Infow("created stream", "id", stream.Id, "key", maskKey(key))

	if err := p.api.BindBroadcast(ctx, broadcast.Id, stream.Id); err != nil {
		return nil, fmt.Errorf("failed to bind stream to broadcast: %w", err)
	}
	p.logger.Infow("bound stream to broadcast", "broadcast", broadcast.Id, "stream", stream.Id)

	p.addToPlaylist(ctx, broadcast.Id, now)

	p.created++
	return &Handle{
		BroadcastID: broadcast.Id,
		StreamID:    stream.Id,
		StreamKey:   key,
	}, nil
}

// Cleanup deletes every upcoming broadcast and every leftover ingest
// stream on the channel, returning how many resources were removed.
// Streams YouTube refuses to delete while still winding down are
// skipped. Individual delete failures are logged; only list failures
// make it into the returned error.
func (p *Provisioner) Cleanup(ctx context.Context) (int, error) {
	deleted := 0
	var errs []error

	broadcasts, err := p.api.UpcomingBroadcasts(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to list upcoming broadcasts: %w", err))
	}
	for _, b := range broadcasts {
		if err := p.api.DeleteBroadcast(ctx, b.Id); err != nil {
			p.logger.Warnw("failed to delete broadcast", "id", b.Id, "error", err)
			continue
		}
		deleted++
		title := ""
		if b.Snippet != nil {
			title = b.Snippet.Title
		}
		p.logger.Infow("deleted upcoming broadcast", "id", b.Id, "title", title)
	}

	streams, err := p.api.Streams(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to list streams: %w", err))
	}
	for _, s := range streams {
		if err := p.api.DeleteStream(ctx, s.Id); err != nil {
			if IsStreamDeletionNotAllowed(err) {
				p.logger.Infow("stream not yet deletable, skipping", "id", s.Id)
				continue
			}
			p.logger.Warnw("failed to delete stream", "id", s.Id, "error", err)
			continue
		}
		deleted++
		p.logger.Infow("deleted stream", "id", s.Id)
	}

	return deleted, errors.Join(errs...)
}

func (p *Provisioner) buildBroadcast(now time.Time) *youtube.LiveBroadcast {
	bc := p.cfg.Broadcast
	// Both ends anchor to now: the start buffer eats into the
	// scheduled window instead of extending it.
	utc := now.UTC()
	start := utc.Add(time.Duration(bc.StartBufferSeconds) * time.Second)
	end := utc.Add(time.Duration(bc.ScheduledDurationSeconds) * time.Second)

	return &youtube.LiveBroadcast{
		Snippet: &youtube.LiveBroadcastSnippet{
			Title:              p.expand(bc.TitleFormat, now),
			Description:        bc.Description,
			ScheduledStartTime: start.Format(time.RFC3339),
			ScheduledEndTime:   end.Format(time.RFC3339),
		},
		Status: &youtube.LiveBroadcastStatus{
			PrivacyStatus:           bc.PrivacyStatus,
			SelfDeclaredMadeForKids: bc.MadeForKids,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
		ContentDetails: &youtube.LiveBroadcastContentDetails{
			EnableAutoStart:   bc.EnableAutoStart,
			EnableAutoStop:    bc.EnableAutoStop,
			EnableDvr:         bc.EnableDVR,
			RecordFromStart:   bc.RecordFromStart,
			LatencyPreference: bc.LatencyPreference,
			ForceSendFields:   []string{"EnableAutoStart", "EnableAutoStop", "EnableDvr", "RecordFromStart"},
		},
	}
}

func (p *Provisioner) buildStream(now time.Time) *youtube.LiveStream {
	ing := p.cfg.Stream
	return &youtube.LiveStream{
		Snippet: &youtube.LiveStreamSnippet{
			Title: p.expand(ing.TitleFormat, now),
		},
		Cdn: &youtube.CdnSettings{
			FrameRate:     ing.FrameRate,
			Resolution:    ing.Resolution,
			IngestionType: ing.IngestionType,
		},
	}
}

// applyVideoMetadata sets the category and tags on the broadcast's
// video resource. The liveBroadcasts API does not carry these fields,
// so they go through videos.update, which replaces the whole snippet.
func (p *Provisioner) applyVideoMetadata(ctx context.Context, broadcastID, title string) {
	bc := p.cfg.Broadcast
	if bc.CategoryID == "" && len(bc.Tags) == 0 {
		return
	}
	video := &youtube.Video{
		Id: broadcastID,
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: bc.Description,
			CategoryId:  bc.CategoryID,
			Tags:        bc.Tags,
		},
	}
	if _, err := p.api.UpdateVideo(ctx, video); err != nil {
		p.logger.Warnw("failed to set video metadata", "broadcast", broadcastID, "error", err)
	}
}

// addToPlaylist files the broadcast's video under the archive playlist
// for the current period, creating the playlist on first use.
func (p *Provisioner) addToPlaylist(ctx context.Context, videoID string, now time.Time) {
	title := now.In(p.loc).Format(p.cfg.Broadcast.PlaylistTitleLayout)
	playlistID, err := p.findOrCreatePlaylist(ctx, title)
	if err != nil {
		p.logger.Warnw("failed to resolve archive playlist", "title", title, "error", err)
		return
	}

	item := &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &youtube.ResourceId{
				Kind:    "youtube#video",
				VideoId: videoID,
			},
		},
	}
	if _, err := p.api.InsertPlaylistItem(ctx, item); err != nil {
		p.logger.Warnw("failed to add broadcast to playlist", "playlist", playlistID, "error", err)
		return
	}
	p.logger.Infow("added broadcast to playlist", "playlist", title, "video", videoID)
}

func (p *Provisioner) findOrCreatePlaylist(ctx context.Context, title string) (string, error) {
	playlists, err := p.api.Playlists(ctx)
	if err != nil {
		return "", err
	}
	for _, pl := range playlists {
		if pl.Snippet != nil && pl.Snippet.Title == title {
			return pl.Id, nil
		}
	}

	plCfg := p.cfg.Playlist
	created, err := p.api.InsertPlaylist(ctx, &youtube.Playlist{
		Snippet: &youtube.PlaylistSnippet{
			Title:           title,
			Description:     strings.ReplaceAll(plCfg.DescriptionFormat, "{playlist_title}", title),
			DefaultLanguage: plCfg.DefaultLanguage,
		},
		Status: &youtube.PlaylistStatus{PrivacyStatus: plCfg.PrivacyStatus},
	})
	if err != nil {
		return "", err
	}
	p.logger.Infow("created archive playlist", "title", title, "id", created.Id)
	return created.Id, nil
}

// expand fills the {date}, {time}, {datetime}, and {count} placeholders
// in a title format. Date and time render in the configured timezone;
// datetime is a compact UTC stamp for machine-facing names.
func (p *Provisioner) expand(format string, now time.Time) string {
	local := now.In(p.loc)
	r := strings.NewReplacer(
		"{date}", local.Format("2006-01-02"),
		"{time}", local.Format("15:04:05"),
		"{datetime}", now.UTC().Format("20060102-150405"),
		"{count}", strconv.Itoa(p.created+1),
	)
	return r.Replace(format)
}

// maskKey hides all but the last four characters of a stream key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
