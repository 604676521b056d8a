package storage

import (
	"context"
	"sort"
	"sync"

	"clipstream/internal/models"
	"golang.org/x/sync/errgroup"
)

const reconcileParallelism = 4

// Reconcile regenerates every denormalized mirror from the canonical
// records. Because replication always writes canonical fields first, any
// partially-applied fan-out (crash between steps, failed persist) is fully
// repairable here: owner snapshots, subscription entries, owned-video lists,
// subscriber counts, history snapshots, and playlist references are all
// recomputed from the users and videos collections.
//
// Verification runs in bounded parallel over a read snapshot; repairs are
// then applied to the live dataset under the write lock, re-deriving values
// from the current canonical state rather than the snapshot.
func (s *Storage) Reconcile(ctx context.Context) (ReconcileReport, error) {
	report := ReconcileReport{StartedAt: s.now()}

	s.mu.RLock()
	snapshot := cloneDataset(s.data)
	s.mu.RUnlock()

	report.UsersScanned = len(snapshot.Users)
	report.VideosScanned = len(snapshot.Videos)

	var (
		flaggedMu     sync.Mutex
		flaggedUsers  []string
		flaggedVideos []string
	)

	counts := subscriberCounts(snapshot)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(reconcileParallelism)
	for id, user := range snapshot.Users {
		id, user := id, user
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if userNeedsRepair(snapshot, user, counts[id]) {
				flaggedMu.Lock()
				flaggedUsers = append(flaggedUsers, id)
				flaggedMu.Unlock()
			}
			return nil
		})
	}
	for id, video := range snapshot.Videos {
		id, video := id, video
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if videoNeedsRepair(snapshot, video) {
				flaggedMu.Lock()
				flaggedVideos = append(flaggedVideos, id)
				flaggedMu.Unlock()
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return report, err
	}

	if len(flaggedUsers) == 0 && len(flaggedVideos) == 0 {
		report.Duration = s.now().Sub(report.StartedAt)
		return report, nil
	}
	sort.Strings(flaggedUsers)
	sort.Strings(flaggedVideos)

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)
	liveCounts := subscriberCounts(updated)

	for _, id := range flaggedVideos {
		updated.updateVideo(id, func(v *models.Video) {
			s.repairVideo(&updated, v, &report)
		})
	}
	for _, id := range flaggedUsers {
		updated.updateUser(id, func(u *models.User) {
			s.repairUser(&updated, u, liveCounts[u.ID], &report)
		})
	}

	if report.Repaired() == 0 {
		report.Duration = s.now().Sub(report.StartedAt)
		return report, nil
	}
	if err := s.commit(updated); err != nil {
		return report, err
	}
	report.Duration = s.now().Sub(report.StartedAt)
	if s.metrics != nil {
		s.metrics.ObserveReconcile(len(flaggedUsers), len(flaggedVideos))
	}
	s.logger.Info("reconcile pass applied repairs",
		"usersScanned", report.UsersScanned,
		"videosScanned", report.VideosScanned,
		"repaired", report.Repaired())
	return report, nil
}

// subscriberCounts derives, for every user, the number of distinct users
// whose subscription list references them. This is the authoritative value
// the canonical counter must equal.
func subscriberCounts(data dataset) map[string]int {
	counts := make(map[string]int, len(data.Users))
	for _, user := range data.Users {
		for _, entry := range user.Subscriptions {
			counts[entry.ChannelID]++
		}
	}
	return counts
}

func videoNeedsRepair(data dataset, video models.Video) bool {
	owner, ok := data.Users[video.Owner.ID]
	if !ok {
		return false
	}
	if video.Owner.Name != owner.Name || video.Owner.Image != owner.Image || video.Owner.Subscribers != owner.Subscribers {
		return true
	}
	if video.PlaylistID != "" {
		if _, ok := owner.PlaylistByID(video.PlaylistID); !ok {
			return true
		}
	}
	return false
}

func (s *Storage) repairVideo(data *dataset, video *models.Video, report *ReconcileReport) {
	owner, ok := data.Users[video.Owner.ID]
	if !ok {
		return
	}
	if video.Owner.Name != owner.Name || video.Owner.Image != owner.Image || video.Owner.Subscribers != owner.Subscribers {
		video.Owner.Name = owner.Name
		video.Owner.Image = owner.Image
		video.Owner.Subscribers = owner.Subscribers
		report.OwnerSnapshotsFixed++
	}
	if video.PlaylistID != "" {
		if _, ok := owner.PlaylistByID(video.PlaylistID); !ok {
			video.PlaylistID = ""
			report.PlaylistRefsCleared++
		}
	}
}

func userNeedsRepair(data dataset, user models.User, subscriberCount int) bool {
	if user.Subscribers != subscriberCount {
		return true
	}
	for _, entry := range user.Subscriptions {
		channel, ok := data.Users[entry.ChannelID]
		if !ok {
			return true
		}
		if entry.Name != channel.Name || entry.Image != channel.Image || entry.Subscribers != channel.Subscribers {
			return true
		}
	}
	owned := make(map[string]struct{}, len(user.Videos))
	for _, entry := range user.Videos {
		video, ok := data.Videos[entry.VideoID]
		if !ok {
			return true
		}
		if entry.Title != video.Title || entry.Thumbnail != video.Thumbnail || entry.Views != video.Views || entry.WatchKey != video.WatchKey {
			return true
		}
		owned[entry.VideoID] = struct{}{}
	}
	for id, video := range data.Videos {
		if video.Owner.ID != user.ID {
			continue
		}
		if _, tracked := owned[id]; !tracked {
			return true
		}
	}
	for _, entry := range user.History {
		video, ok := data.Videos[entry.VideoID]
		if !ok {
			return true
		}
		if entry.Title != video.Title || entry.Thumbnail != video.Thumbnail || entry.Duration != video.Duration {
			return true
		}
	}
	for _, playlist := range user.Playlists {
		for _, entry := range playlist.Videos {
			video, ok := data.Videos[entry.VideoID]
			if !ok {
				return true
			}
			if entry.Title != video.Title || entry.Thumbnail != video.Thumbnail {
				return true
			}
		}
	}
	return false
}

func (s *Storage) repairUser(data *dataset, user *models.User, subscriberCount int, report *ReconcileReport) {
	if user.Subscribers != subscriberCount {
		user.Subscribers = subscriberCount
		report.SubscriberCountsFixed++
	}

	keptSubs := user.Subscriptions[:0]
	for _, entry := range user.Subscriptions {
		channel, ok := data.Users[entry.ChannelID]
		if !ok {
			report.OrphanSnapshotsPruned++
			continue
		}
		if entry.Name != channel.Name || entry.Image != channel.Image || entry.Subscribers != channel.Subscribers {
			entry.Name = channel.Name
			entry.Image = channel.Image
			entry.Subscribers = channel.Subscribers
			report.SubscriptionsFixed++
		}
		keptSubs = append(keptSubs, entry)
	}
	user.Subscriptions = keptSubs

	keptOwned := user.Videos[:0]
	tracked := make(map[string]struct{}, len(user.Videos))
	for _, entry := range user.Videos {
		video, ok := data.Videos[entry.VideoID]
		if !ok {
			report.OrphanSnapshotsPruned++
			continue
		}
		if entry.Title != video.Title || entry.Thumbnail != video.Thumbnail || entry.Views != video.Views || entry.WatchKey != video.WatchKey {
			entry.Title = video.Title
			entry.Thumbnail = video.Thumbnail
			entry.Views = video.Views
			entry.WatchKey = video.WatchKey
			report.OwnedVideosFixed++
		}
		tracked[entry.VideoID] = struct{}{}
		keptOwned = append(keptOwned, entry)
	}
	// Canonical videos missing from the owned list are re-snapshotted in
	// publish order.
	missing := make([]models.Video, 0)
	for id, video := range data.Videos {
		if video.Owner.ID != user.ID {
			continue
		}
		if _, ok := tracked[id]; !ok {
			missing = append(missing, video)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		return missing[i].CreatedAt.Before(missing[j].CreatedAt)
	})
	for _, video := range missing {
		keptOwned = append(keptOwned, video.OwnedEntry())
		report.OwnedVideosFixed++
	}
	user.Videos = keptOwned

	keptHistory := user.History[:0]
	for _, entry := range user.History {
		video, ok := data.Videos[entry.VideoID]
		if !ok {
			report.OrphanSnapshotsPruned++
			continue
		}
		if entry.Title != video.Title || entry.Thumbnail != video.Thumbnail || entry.Duration != video.Duration {
			entry.Title = video.Title
			entry.Thumbnail = video.Thumbnail
			entry.Duration = video.Duration
			report.HistoryEntriesFixed++
		}
		keptHistory = append(keptHistory, entry)
	}
	user.History = keptHistory

	for i := range user.Playlists {
		kept := user.Playlists[i].Videos[:0]
		for _, entry := range user.Playlists[i].Videos {
			video, ok := data.Videos[entry.VideoID]
			if !ok {
				report.OrphanSnapshotsPruned++
				continue
			}
			if entry.Title != video.Title || entry.Thumbnail != video.Thumbnail {
				entry.Title = video.Title
				entry.Thumbnail = video.Thumbnail
				report.OwnedVideosFixed++
			}
			kept = append(kept, entry)
		}
		user.Playlists[i].Videos = kept
	}
}
