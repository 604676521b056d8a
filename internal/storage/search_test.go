package storage

import "testing"

func searchTestFixture(t *testing.T) *Storage {
	t.Helper()
	store := newTestStore(t)
	ownerID := createTestUser(t, store, "Owner")
	if _, err := store.PublishVideo(PublishVideoParams{
		OwnerID:         ownerID,
		Title:           "Midnight Synthwave Mix",
		Category:        "Music",
		Tags:            []string{"synthwave", "retro"},
		FilePath:        "/videos/synthwave.mp4",
		Thumbnail:       "/thumbs/synthwave.jpg",
		DurationSeconds: 300,
	}); err != nil {
		t.Fatalf("PublishVideo error: %v", err)
	}
	if _, err := store.PublishVideo(PublishVideoParams{
		OwnerID:         ownerID,
		Title:           "Sourdough Basics",
		Category:        "Cooking",
		Tags:            []string{"bread", "baking"},
		FilePath:        "/videos/sourdough.mp4",
		Thumbnail:       "/thumbs/sourdough.jpg",
		DurationSeconds: 480,
	}); err != nil {
		t.Fatalf("PublishVideo error: %v", err)
	}
	return store
}

func TestSearchVideosByTitle(t *testing.T) {
	store := searchTestFixture(t)

	matches := store.SearchVideos(SearchByTitle, "SYNTHWAVE")
	if len(matches) != 1 || matches[0].Title != "Midnight Synthwave Mix" {
		t.Fatalf("expected one case-folded title match, got %+v", matches)
	}
	if matches := store.SearchVideos(SearchByTitle, "night"); len(matches) != 1 {
		t.Fatalf("expected substring match, got %d", len(matches))
	}
	if matches := store.SearchVideos(SearchByTitle, "bread"); len(matches) != 0 {
		t.Fatalf("tag text must not match a title search, got %d", len(matches))
	}
}

func TestSearchVideosByTag(t *testing.T) {
	store := searchTestFixture(t)

	matches := store.SearchVideos(SearchByTag, "Baking")
	if len(matches) != 1 || matches[0].Title != "Sourdough Basics" {
		t.Fatalf("expected one tag match, got %+v", matches)
	}
}

func TestSearchVideosByCategory(t *testing.T) {
	store := searchTestFixture(t)

	matches := store.SearchVideos(SearchByCategory, "music")
	if len(matches) != 1 || matches[0].Category != "Music" {
		t.Fatalf("expected one category match, got %+v", matches)
	}
}

func TestSearchVideosBlankQuery(t *testing.T) {
	store := searchTestFixture(t)

	if matches := store.SearchVideos(SearchByTitle, "   "); matches != nil {
		t.Fatalf("expected nil for blank query, got %+v", matches)
	}
}

func TestSearchVideosAllFieldsFallback(t *testing.T) {
	store := searchTestFixture(t)

	matches := store.SearchVideos("", "retro")
	if len(matches) != 1 || matches[0].Title != "Midnight Synthwave Mix" {
		t.Fatalf("expected tag match through the combined scan, got %+v", matches)
	}
}
