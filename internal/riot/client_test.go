package riot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(Config{
		APIKey:          "RGAPI-test-key",
		Platform:        "na1",
		PlatformBaseURL: server.URL,
		RegionalBaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RequiresKey(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("expected error without api key")
	}
}

func TestRegionForPlatform(t *testing.T) {
	tests := map[string]string{
		"na1": "americas", "BR1": "americas", "la1": "americas", "la2": "americas",
		"euw1": "europe", "eun1": "europe", "tr1": "europe", "ru": "europe",
		"kr": "asia", "jp1": "asia",
		"oc1": "americas", "": "americas",
	}
	for platform, want := range tests {
		if got := RegionForPlatform(platform); got != want {
			t.Errorf("RegionForPlatform(%q) = %s, want %s", platform, got, want)
		}
	}

	if got := RegionalBaseURL("euw1"); got != "https://europe.api.riotgames.com" {
		t.Errorf("RegionalBaseURL = %s", got)
	}
	if got := PlatformBaseURL("KR"); got != "https://kr.api.riotgames.com" {
		t.Errorf("PlatformBaseURL = %s", got)
	}
}

func TestClient_Endpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/riot/account/v1/accounts/by-riot-id/Faker/KR1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Riot-Token") != "RGAPI-test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"puuid":"p-1","gameName":"Faker","tagLine":"KR1"}`))
	})
	mux.HandleFunc("/lol/summoner/v4/summoners/by-puuid/p-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"puuid":"p-1","summonerLevel":512,"profileIconId":7}`))
	})
	mux.HandleFunc("/lol/match/v5/matches/by-puuid/p-1/ids", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("count") != "2" || r.URL.Query().Get("start") != "0" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`["NA1_2","NA1_1"]`))
	})
	mux.HandleFunc("/lol/match/v5/matches/NA1_2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"metadata":{"matchId":"NA1_2"},"info":{"gameDuration":1800,"participants":[{"participantId":3,"puuid":"p-1","championName":"Ahri","kills":5}]}}`))
	})
	mux.HandleFunc("/lol/match/v5/matches/NA1_2/timeline", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"metadata":{"matchId":"NA1_2"},"info":{"participants":[{"participantId":3,"puuid":"p-1"}],"frames":[{"timestamp":60000,"participantFrames":{"3":{"minionsKilled":8,"position":{"x":100,"y":200}}},"events":[]}]}}`))
	})

	c := newTestClient(t, mux)
	ctx := context.Background()

	account, err := c.GetAccountByRiotID(ctx, "Faker", "KR1")
	if err != nil {
		t.Fatalf("GetAccountByRiotID: %v", err)
	}
	if account.PUUID != "p-1" {
		t.Errorf("puuid = %s", account.PUUID)
	}

	summoner, err := c.GetSummoner(ctx, account.PUUID)
	if err != nil {
		t.Fatalf("GetSummoner: %v", err)
	}
	if summoner.SummonerLevel != 512 {
		t.Errorf("level = %d", summoner.SummonerLevel)
	}

	ids, err := c.GetMatchHistory(ctx, account.PUUID, 0, 2)
	if err != nil {
		t.Fatalf("GetMatchHistory: %v", err)
	}
	if len(ids) != 2 || ids[0] != "NA1_2" {
		t.Errorf("ids = %v", ids)
	}

	match, err := c.GetMatch(ctx, "NA1_2")
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if p, ok := FindParticipant(match, "p-1"); !ok || p.Kills != 5 {
		t.Errorf("participant = %+v, %v", p, ok)
	}
	if len(match.Raw) == 0 {
		t.Error("raw body should be kept")
	}

	timeline, err := c.GetTimeline(ctx, "NA1_2")
	if err != nil {
		t.Fatalf("GetTimeline: %v", err)
	}
	slot, ok := ParticipantSlot(timeline, "p-1")
	if !ok || slot != 3 {
		t.Fatalf("slot = %d, %v", slot, ok)
	}
	pf, ok := timeline.Info.Frames[0].FrameFor(slot)
	if !ok || pf.MinionsKilled != 8 || pf.Position == nil || pf.Position.Y != 200 {
		t.Errorf("frame = %+v", pf)
	}
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		target error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			_, err := c.GetMatch(context.Background(), "NA1_1")
			if !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
			wantRejected := tt.status != http.StatusNotFound
			if IsKeyRejected(err) != wantRejected {
				t.Errorf("IsKeyRejected = %v", !wantRejected)
			}
		})
	}
}

func TestClient_RetriesAfter429(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`["NA1_9"]`))
	}))

	ids, err := c.GetMatchHistory(context.Background(), "p-1", 0, 1)
	if err != nil {
		t.Fatalf("GetMatchHistory: %v", err)
	}
	if len(ids) != 1 || calls.Load() != 2 {
		t.Errorf("ids = %v, calls = %d", ids, calls.Load())
	}
}

func TestClient_CancelledContext(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.GetMatchHistory(ctx, "p-1", 0, 1); err == nil {
		t.Error("expected error on cancelled context")
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey("RGAPI-12345678-abcd-efgh"); got != "RGAPI-12...efgh" {
		t.Errorf("MaskAPIKey = %s", got)
	}
	if got := MaskAPIKey("short"); got != "****" {
		t.Errorf("MaskAPIKey short = %s", got)
	}
}
