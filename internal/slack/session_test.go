package slack

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResolveIdentity(t *testing.T) {
	t.Parallel()

	identity, err := resolveIdentity(usersFixture(), "workflowy_bot")
	if err != nil {
		t.Fatalf("resolveIdentity() error = %v", err)
	}
	if identity.ID != "U12345678" {
		t.Errorf("identity.ID = %q, want %q", identity.ID, "U12345678")
	}
}

func TestResolveIdentity_CaseSensitive(t *testing.T) {
	t.Parallel()

	if _, err := resolveIdentity(usersFixture(), "Workflowy_Bot"); err == nil {
		t.Error("resolveIdentity() matched a differently-cased name")
	}
}

func TestResolveIdentity_NotInRoster(t *testing.T) {
	t.Parallel()

	if _, err := resolveIdentity(nil, "workflowy_bot"); err == nil {
		t.Error("resolveIdentity() succeeded with an empty roster")
	}
}

func TestHandleConnected_PublishesRoster(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{users: usersFixture(), channels: testChannels()}
	s := newTestSession(api, &fakeStore{hasRun: true}, &fakeExtractor{})
	s.identity = Identity{}
	s.channels = nil

	if err := s.handleConnected(context.Background()); err != nil {
		t.Fatalf("handleConnected() error = %v", err)
	}
	if got := s.botIdentity().ID; got != "U12345678" {
		t.Errorf("botIdentity().ID = %q, want %q", got, "U12345678")
	}
	if first, ok := s.firstChannel(); !ok || first.Name != "general" {
		t.Errorf("firstChannel() = %v, %v; want general channel", first, ok)
	}
}

// A reconnect replaces the roster snapshot while reply pipelines may still
// be running; the reload and the pipeline's channel lookup must not touch
// the same snapshot unsynchronized.
func TestHandleConnected_ReloadWithPipelineInFlight(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{users: usersFixture(), channels: testChannels()}
	extractor := &gatedExtractor{
		reply:   "Schedule for Monday: \n",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := newTestSession(api, &fakeStore{hasRun: true}, extractor)

	s.handleMessage(context.Background(), msgEvent("message", "C00000001", "U99999999", "<@U12345678> monday?"))
	<-extractor.started

	// Roster reload while the pipeline is blocked in the extractor.
	if err := s.handleConnected(context.Background()); err != nil {
		t.Fatalf("handleConnected() error = %v", err)
	}

	close(extractor.release)
	s.wg.Wait()

	if posts := api.posts(); len(posts) != 1 || posts[0] != "#general" {
		t.Errorf("posts = %v, want one reply to #general", posts)
	}
}

func TestFirstRunCheck_FirstRun(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{channels: testChannels()}
	store := &fakeStore{}
	s := newTestSession(api, store, &fakeExtractor{})

	s.firstRunCheck(context.Background())

	if posts := api.posts(); len(posts) != 1 || posts[0] != "#general" {
		t.Errorf("posts = %v, want welcome message to #general", posts)
	}
	if store.recorded != 1 {
		t.Errorf("RecordRun called %d times, want 1", store.recorded)
	}
	if !store.hasRun {
		t.Error("lastrun row was not recorded")
	}
}

func TestFirstRunCheck_SubsequentRun(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{channels: testChannels()}
	store := &fakeStore{hasRun: true, lastRun: time.Now().Add(-time.Hour)}
	s := newTestSession(api, store, &fakeExtractor{})

	s.firstRunCheck(context.Background())

	if posts := api.posts(); len(posts) != 0 {
		t.Errorf("posts = %v, want no welcome message on a subsequent run", posts)
	}
	if store.recorded != 1 {
		t.Errorf("RecordRun called %d times, want 1", store.recorded)
	}
}

func TestFirstRunCheck_StoreErrorAbandonsCheck(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{channels: testChannels()}
	store := &fakeStore{getErr: errors.New("disk on fire")}
	s := newTestSession(api, store, &fakeExtractor{})

	s.firstRunCheck(context.Background())

	if posts := api.posts(); len(posts) != 0 {
		t.Errorf("posts = %v, want none when the store query fails", posts)
	}
	if store.recorded != 0 {
		t.Errorf("RecordRun called %d times after a store failure, want 0", store.recorded)
	}
}

func TestAnnounceSchedule(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{channels: testChannels()}
	extractor := &fakeExtractor{reply: "Schedule for Monday: \n"}
	s := newTestSession(api, &fakeStore{}, extractor)

	if err := s.AnnounceSchedule(context.Background(), "Monday"); err != nil {
		t.Fatalf("AnnounceSchedule() error = %v", err)
	}
	if posts := api.posts(); len(posts) != 1 || posts[0] != "#general" {
		t.Errorf("posts = %v, want one announcement to #general", posts)
	}
}

func TestAnnounceSchedule_BeforeConnect(t *testing.T) {
	t.Parallel()

	s := newTestSession(&fakeAPI{channels: testChannels()}, &fakeStore{}, &fakeExtractor{})
	s.identity = Identity{}

	if err := s.AnnounceSchedule(context.Background(), "Monday"); err == nil {
		t.Error("AnnounceSchedule() succeeded before the session connected")
	}
}
