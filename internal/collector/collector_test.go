package collector

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"summoner-insights/internal/db"
	"summoner-insights/internal/riot"
	"summoner-insights/internal/storage"

	json "github.com/goccy/go-json"
)

const testPUUID = "puuid-me"

type fakeSource struct {
	mu           sync.Mutex
	history      []string
	matches      map[string]*riot.MatchResponse
	timelines    map[string]*riot.TimelineResponse
	matchErr     map[string]error
	timelineErr  map[string]error
	accountErr   error
	matchCalls   []string
	historyCount int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		matches:     map[string]*riot.MatchResponse{},
		timelines:   map[string]*riot.TimelineResponse{},
		matchErr:    map[string]error{},
		timelineErr: map[string]error{},
	}
}

func (f *fakeSource) GetAccountByRiotID(ctx context.Context, gameName, tagLine string) (*riot.AccountResponse, error) {
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return &riot.AccountResponse{PUUID: testPUUID, GameName: gameName, TagLine: tagLine}, nil
}

func (f *fakeSource) GetSummoner(ctx context.Context, puuid string) (*riot.SummonerResponse, error) {
	return &riot.SummonerResponse{PUUID: puuid, SummonerLevel: 321}, nil
}

func (f *fakeSource) GetMatchHistory(ctx context.Context, puuid string, start, count int) ([]string, error) {
	f.historyCount = count
	if count < len(f.history) {
		return f.history[:count], nil
	}
	return f.history, nil
}

func (f *fakeSource) GetMatch(ctx context.Context, matchID string) (*riot.MatchResponse, error) {
	f.mu.Lock()
	f.matchCalls = append(f.matchCalls, matchID)
	f.mu.Unlock()
	if err := f.matchErr[matchID]; err != nil {
		return nil, err
	}
	m, ok := f.matches[matchID]
	if !ok {
		return nil, &riot.StatusError{StatusCode: http.StatusNotFound}
	}
	return m, nil
}

func (f *fakeSource) GetTimeline(ctx context.Context, matchID string) (*riot.TimelineResponse, error) {
	if err := f.timelineErr[matchID]; err != nil {
		return nil, err
	}
	tl, ok := f.timelines[matchID]
	if !ok {
		return nil, &riot.StatusError{StatusCode: http.StatusNotFound}
	}
	return tl, nil
}

// addMatch registers a match where the tracked player sits in slot 1
func (f *fakeSource) addMatch(t *testing.T, id string, kills, deaths, assists int, win bool) {
	t.Helper()
	m := &riot.MatchResponse{
		Metadata: riot.MatchMetadata{MatchID: id, Participants: []string{testPUUID, "other"}},
		Info: riot.MatchInfo{
			GameCreation: 1700000000000 + int64(len(f.history))*3600000,
			GameDuration: 1800,
			GameMode:     "CLASSIC",
			Participants: []riot.MatchParticipant{
				{ParticipantID: 1, PUUID: testPUUID, ChampionName: "Ahri", TeamPosition: "MIDDLE",
					Kills: kills, Deaths: deaths, Assists: assists, TotalMinionsKilled: 150, Win: win},
				{ParticipantID: 2, PUUID: "other", ChampionName: "Zed"},
			},
		},
	}
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	m.Raw = raw

	tl := &riot.TimelineResponse{
		Metadata: riot.TimelineMetadata{MatchID: id, Participants: []string{testPUUID, "other"}},
		Info: riot.TimelineInfo{
			FrameInterval: 60000,
			Participants:  []riot.TimelineParticipant{{ParticipantID: 1, PUUID: testPUUID}, {ParticipantID: 2, PUUID: "other"}},
			Frames: []riot.TimelineFrame{
				{Timestamp: 0, ParticipantFrames: map[string]riot.ParticipantFrame{
					"1": {ParticipantID: 1, TotalGold: 500, Level: 1},
				}},
				{Timestamp: 60000, ParticipantFrames: map[string]riot.ParticipantFrame{
					"1": {ParticipantID: 1, MinionsKilled: 7, TotalGold: 900, XP: 300, Level: 2},
				}, Events: []riot.TimelineEvent{
					{Type: riot.EventChampionKill, Timestamp: 90000, KillerID: 2, VictimID: 1,
						Position: &riot.Position{X: 5000, Y: 5000}},
				}},
			},
		},
	}
	rawTL, err := json.Marshal(tl)
	if err != nil {
		t.Fatal(err)
	}
	tl.Raw = rawTL

	f.history = append(f.history, id)
	f.matches[id] = m
	f.timelines[id] = tl
}

type fakeNotifier struct {
	completed []RunSummary
	rejected  []RunSummary
}

func (n *fakeNotifier) RunComplete(ctx context.Context, s RunSummary) error {
	n.completed = append(n.completed, s)
	return nil
}

func (n *fakeNotifier) KeyRejected(ctx context.Context, s RunSummary) error {
	n.rejected = append(n.rejected, s)
	return nil
}

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return store
}

func testConfig() Config {
	return Config{GameName: "Tester", TagLine: "NA1", MatchCount: 10}
}

func storedMatches(t *testing.T, store *db.Store) []db.Match {
	t.Helper()
	var matches []db.Match
	err := store.View(context.Background(), func(r *db.Reader) error {
		var err error
		matches, err = r.RecentMatches(context.Background(), 100)
		return err
	})
	if err != nil {
		t.Fatalf("RecentMatches: %v", err)
	}
	return matches
}

func TestCollector_Run(t *testing.T) {
	src := newFakeSource()
	src.addMatch(t, "NA1_1", 5, 2, 3, true)
	src.addMatch(t, "NA1_2", 1, 5, 1, false)
	store := newTestStore(t)
	notifier := &fakeNotifier{}
	var out bytes.Buffer

	c := New(src, store, testConfig(), WithNotifier(notifier), WithOutput(&out))
	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Processed != 2 || summary.Wins != 1 {
		t.Errorf("processed=%d wins=%d, want 2 and 1", summary.Processed, summary.Wins)
	}
	if summary.Snapshots != 4 || summary.Events != 2 {
		t.Errorf("snapshots=%d events=%d, want 4 and 2", summary.Snapshots, summary.Events)
	}
	if summary.Player != "Tester#NA1" {
		t.Errorf("player = %q", summary.Player)
	}
	if len(notifier.completed) != 1 {
		t.Errorf("RunComplete called %d times, want 1", len(notifier.completed))
	}

	c.PrintSummary(summary)
	text := out.String()
	for _, want := range []string{
		"Retrieving stats for Tester#NA1...",
		"Found summoner: Tester (Level 321)",
		"Processing match 1/2: NA1_1",
		"  Timeline: 2 snapshots, 1 events",
		"Total matches processed: 2",
		"Wins: 1/2 (50.0%)",
		"Average KDA: 2.20",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q\n%s", want, text)
		}
	}

	matches := storedMatches(t, store)
	if len(matches) != 2 {
		t.Fatalf("stored %d matches, want 2", len(matches))
	}
	for _, m := range matches {
		if m.ParticipantID != 1 {
			t.Errorf("match %s participant_id = %d, want 1", m.MatchID, m.ParticipantID)
		}
	}
}

func TestCollector_RunTwiceIsIdempotent(t *testing.T) {
	src := newFakeSource()
	src.addMatch(t, "NA1_1", 5, 2, 3, true)
	store := newTestStore(t)

	c := New(src, store, testConfig(), WithOutput(&bytes.Buffer{}))
	for i := 0; i < 2; i++ {
		if _, err := c.Run(context.Background()); err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
	}

	if got := len(storedMatches(t, store)); got != 1 {
		t.Errorf("stored %d matches, want 1", got)
	}
	var events []db.TimelineEvent
	err := store.View(context.Background(), func(r *db.Reader) error {
		var err error
		events, err = r.Events(context.Background(), "NA1_1")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Errorf("events after re-ingest = %d, want 1 in replace mode", len(events))
	}
}

func TestCollector_SkipKnown(t *testing.T) {
	src := newFakeSource()
	src.addMatch(t, "NA1_1", 5, 2, 3, true)
	src.addMatch(t, "NA1_2", 1, 5, 1, false)
	store := newTestStore(t)

	if _, err := store.UpsertMatches(context.Background(), []db.Match{{MatchID: "NA1_1", Champion: "Ahri"}}); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.SkipKnown = true
	c := New(src, store, cfg, WithOutput(&bytes.Buffer{}))
	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Skipped != 1 || summary.Processed != 1 {
		t.Errorf("skipped=%d processed=%d, want 1 and 1", summary.Skipped, summary.Processed)
	}
	if len(src.matchCalls) != 1 || src.matchCalls[0] != "NA1_2" {
		t.Errorf("fetched %v, want only NA1_2", src.matchCalls)
	}
}

func TestCollector_MatchCountLimitsHistory(t *testing.T) {
	src := newFakeSource()
	src.addMatch(t, "NA1_1", 1, 1, 1, true)
	src.addMatch(t, "NA1_2", 1, 1, 1, true)
	src.addMatch(t, "NA1_3", 1, 1, 1, true)

	cfg := testConfig()
	cfg.MatchCount = 2
	c := New(src, newTestStore(t), cfg, WithOutput(&bytes.Buffer{}))
	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if src.historyCount != 2 || summary.Found != 2 {
		t.Errorf("requested %d, found %d, want 2 and 2", src.historyCount, summary.Found)
	}
}

func TestCollector_KeyRejectedAborts(t *testing.T) {
	src := newFakeSource()
	src.addMatch(t, "NA1_1", 5, 2, 3, true)
	src.addMatch(t, "NA1_2", 1, 5, 1, false)
	src.addMatch(t, "NA1_3", 1, 5, 1, false)
	src.matchErr["NA1_2"] = &riot.StatusError{StatusCode: http.StatusForbidden}
	store := newTestStore(t)
	notifier := &fakeNotifier{}

	c := New(src, store, testConfig(), WithNotifier(notifier), WithOutput(&bytes.Buffer{}))
	summary, err := c.Run(context.Background())
	if !errors.Is(err, riot.ErrForbidden) {
		t.Fatalf("Run error = %v, want forbidden", err)
	}
	if !IsAbort(err) {
		t.Error("IsAbort should be true for a rejected key")
	}
	if summary.Processed != 1 {
		t.Errorf("processed = %d, want 1", summary.Processed)
	}
	if len(src.matchCalls) != 2 {
		t.Errorf("fetched %v, want the run to stop at NA1_2", src.matchCalls)
	}
	if len(notifier.rejected) != 1 || len(notifier.completed) != 0 {
		t.Errorf("rejected=%d completed=%d, want 1 and 0", len(notifier.rejected), len(notifier.completed))
	}
}

func TestCollector_AccountKeyRejected(t *testing.T) {
	src := newFakeSource()
	src.accountErr = &riot.StatusError{StatusCode: http.StatusUnauthorized}
	notifier := &fakeNotifier{}

	c := New(src, newTestStore(t), testConfig(), WithNotifier(notifier), WithOutput(&bytes.Buffer{}))
	if _, err := c.Run(context.Background()); !riot.IsKeyRejected(err) {
		t.Fatalf("Run error = %v, want key rejected", err)
	}
	if len(notifier.rejected) != 1 {
		t.Errorf("KeyRejected called %d times, want 1", len(notifier.rejected))
	}
	if notifier.rejected[0].Player != "Tester#NA1" {
		t.Errorf("player = %q", notifier.rejected[0].Player)
	}
}

func TestCollector_MatchFailureContinues(t *testing.T) {
	src := newFakeSource()
	src.addMatch(t, "NA1_1", 5, 2, 3, true)
	src.addMatch(t, "NA1_2", 1, 5, 1, false)
	src.matchErr["NA1_1"] = &riot.StatusError{StatusCode: http.StatusInternalServerError}

	c := New(src, newTestStore(t), testConfig(), WithOutput(&bytes.Buffer{}))
	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 || summary.Processed != 1 {
		t.Errorf("failed=%d processed=%d, want 1 and 1", summary.Failed, summary.Processed)
	}
}

func TestCollector_TimelineFailureKeepsMatch(t *testing.T) {
	src := newFakeSource()
	src.addMatch(t, "NA1_1", 5, 2, 3, true)
	src.timelineErr["NA1_1"] = &riot.StatusError{StatusCode: http.StatusServiceUnavailable}
	store := newTestStore(t)

	c := New(src, store, testConfig(), WithOutput(&bytes.Buffer{}))
	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 {
		t.Errorf("failed = %d, want 1", summary.Failed)
	}
	if got := len(storedMatches(t, store)); got != 1 {
		t.Errorf("stored %d matches, want the match row kept", got)
	}
}

func TestCollector_FailedTimelineRetriedNextPull(t *testing.T) {
	src := newFakeSource()
	src.addMatch(t, "NA1_1", 5, 2, 3, true)
	src.addMatch(t, "NA1_2", 1, 5, 1, false)
	src.timelineErr["NA1_1"] = &riot.StatusError{StatusCode: http.StatusServiceUnavailable}

	cfg := testConfig()
	cfg.SkipKnown = true
	c := New(src, newTestStore(t), cfg, WithOutput(&bytes.Buffer{}))

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	delete(src.timelineErr, "NA1_1")
	src.matchCalls = nil

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(src.matchCalls) != 1 || src.matchCalls[0] != "NA1_1" {
		t.Errorf("fetched %v, want only the match whose timeline failed", src.matchCalls)
	}
	if summary.Skipped != 1 || summary.Snapshots != 2 {
		t.Errorf("skipped=%d snapshots=%d, want 1 and 2", summary.Skipped, summary.Snapshots)
	}
}

func TestCollector_PlayerMissingFromMatch(t *testing.T) {
	src := newFakeSource()
	src.addMatch(t, "NA1_1", 5, 2, 3, true)
	src.matches["NA1_1"].Info.Participants[0].PUUID = "someone-else"

	c := New(src, newTestStore(t), testConfig(), WithOutput(&bytes.Buffer{}))
	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 0 || summary.Skipped != 1 {
		t.Errorf("processed=%d skipped=%d, want 0 and 1", summary.Processed, summary.Skipped)
	}
}

func TestCollector_Replay(t *testing.T) {
	src := newFakeSource()
	src.addMatch(t, "NA1_1", 5, 2, 3, true)
	src.addMatch(t, "NA1_2", 1, 5, 1, false)

	archiveDir := t.TempDir()
	rotator, err := storage.NewFileRotator(archiveDir, nil)
	if err != nil {
		t.Fatal(err)
	}
	c := New(src, newTestStore(t), testConfig(), WithArchive(rotator), WithOutput(&bytes.Buffer{}))
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := rotator.Close(); err != nil {
		t.Fatal(err)
	}

	fresh := newTestStore(t)
	replayer := New(nil, fresh, testConfig(), WithOutput(&bytes.Buffer{}))
	summary, err := replayer.Replay(context.Background(), archiveDir, testPUUID)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if summary.Processed != 2 || summary.Wins != 1 {
		t.Errorf("processed=%d wins=%d, want 2 and 1", summary.Processed, summary.Wins)
	}
	if summary.Snapshots != 4 || summary.Events != 2 {
		t.Errorf("snapshots=%d events=%d, want 4 and 2", summary.Snapshots, summary.Events)
	}
	if got := len(storedMatches(t, fresh)); got != 2 {
		t.Errorf("replayed %d matches, want 2", got)
	}
}

func TestRunSummary_Rates(t *testing.T) {
	var s RunSummary
	if s.WinRate() != 0 || s.AvgKDA() != 0 {
		t.Error("empty summary should report zero rates")
	}
	s.add(db.Match{KDA: 4.0, Win: true})
	s.add(db.Match{KDA: 0.4})
	if s.WinRate() != 50 {
		t.Errorf("WinRate = %v, want 50", s.WinRate())
	}
	if got := s.AvgKDA(); got < 2.1999 || got > 2.2001 {
		t.Errorf("AvgKDA = %v, want 2.2", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs float64
		want string
	}{
		{12.34, "12.3s"},
		{125, "2m05s"},
		{3725, "1h02m05s"},
	}
	for _, tt := range tests {
		d := time.Duration(tt.secs * float64(time.Second))
		if got := formatDuration(d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}
