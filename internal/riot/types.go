package riot

import json "github.com/goccy/go-json"

// AccountResponse represents the response from /riot/account/v1/accounts/by-riot-id
type AccountResponse struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// SummonerResponse represents the response from /lol/summoner/v4/summoners/by-puuid
type SummonerResponse struct {
	PUUID         string `json:"puuid"`
	Name          string `json:"name,omitempty"`
	ProfileIconID int    `json:"profileIconId"`
	SummonerLevel int    `json:"summonerLevel"`
}

// MatchResponse represents the response from /lol/match/v5/matches/{matchId}
type MatchResponse struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`

	// Raw is the undecoded response body, kept for archiving
	Raw []byte `json:"-"`
}

type MatchMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"` // PUUIDs
}

type MatchInfo struct {
	GameCreation int64              `json:"gameCreation"`
	GameDuration int                `json:"gameDuration"`
	GameMode     string             `json:"gameMode"`
	GameVersion  string             `json:"gameVersion"`
	QueueID      int                `json:"queueId"`
	Participants []MatchParticipant `json:"participants"`
}

type MatchParticipant struct {
	ParticipantID  int    `json:"participantId"`
	PUUID          string `json:"puuid"`
	RiotIdGameName string `json:"riotIdGameName"`
	RiotIdTagline  string `json:"riotIdTagline"`
	ChampionID     int    `json:"championId"`
	ChampionName   string `json:"championName"`
	TeamPosition   string `json:"teamPosition"` // TOP, JUNGLE, MIDDLE, BOTTOM, UTILITY
	Win            bool   `json:"win"`

	Kills                       int `json:"kills"`
	Deaths                      int `json:"deaths"`
	Assists                     int `json:"assists"`
	TotalMinionsKilled          int `json:"totalMinionsKilled"`
	NeutralMinionsKilled        int `json:"neutralMinionsKilled"`
	GoldEarned                  int `json:"goldEarned"`
	TotalDamageDealtToChampions int `json:"totalDamageDealtToChampions"`
	TotalDamageTaken            int `json:"totalDamageTaken"`
	VisionScore                 int `json:"visionScore"`

	Item0 int `json:"item0"`
	Item1 int `json:"item1"`
	Item2 int `json:"item2"`
	Item3 int `json:"item3"`
	Item4 int `json:"item4"`
	Item5 int `json:"item5"`
	Item6 int `json:"item6"` // Trinket
}

// TimelineResponse represents the response from /lol/match/v5/matches/{matchId}/timeline
type TimelineResponse struct {
	Metadata TimelineMetadata `json:"metadata"`
	Info     TimelineInfo     `json:"info"`

	Raw []byte `json:"-"`
}

type TimelineMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"` // PUUIDs, ordered by participant slot
}

type TimelineInfo struct {
	FrameInterval int                   `json:"frameInterval"`
	Frames        []TimelineFrame       `json:"frames"`
	Participants  []TimelineParticipant `json:"participants"`
}

// TimelineParticipant maps a stable PUUID to the per-match participant slot
type TimelineParticipant struct {
	ParticipantID int    `json:"participantId"`
	PUUID         string `json:"puuid"`
}

type TimelineFrame struct {
	Timestamp         int64                       `json:"timestamp"`
	ParticipantFrames map[string]ParticipantFrame `json:"participantFrames"`
	Events            []TimelineEvent             `json:"events"`
}

// ParticipantFrame is one participant's state at a frame boundary
type ParticipantFrame struct {
	ParticipantID       int       `json:"participantId"`
	MinionsKilled       int       `json:"minionsKilled"`
	JungleMinionsKilled int       `json:"jungleMinionsKilled"`
	TotalGold           int       `json:"totalGold"`
	CurrentGold         int       `json:"currentGold"`
	XP                  int       `json:"xp"`
	Level               int       `json:"level"`
	Position            *Position `json:"position,omitempty"`
}

// Position is a map coordinate. Summoner's Rift spans roughly 0-15000 on both axes.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type TimelineEvent struct {
	Type                    string    `json:"type"`
	Timestamp               int64     `json:"timestamp"`
	ParticipantID           int       `json:"participantId,omitempty"`
	KillerID                int       `json:"killerId,omitempty"`
	VictimID                int       `json:"victimId,omitempty"`
	CreatorID               int       `json:"creatorId,omitempty"`
	AssistingParticipantIDs []int     `json:"assistingParticipantIds,omitempty"`
	ItemID                  int       `json:"itemId,omitempty"`
	MonsterType             string    `json:"monsterType,omitempty"`
	MonsterSubType          string    `json:"monsterSubType,omitempty"`
	BuildingType            string    `json:"buildingType,omitempty"`
	WardType                string    `json:"wardType,omitempty"`
	Position                *Position `json:"position,omitempty"`

	// Fields holds every field of the event except type, timestamp and position
	Fields map[string]any `json:"-"`
}

// UnmarshalJSON decodes the typed fields and keeps the rest in Fields
func (e *TimelineEvent) UnmarshalJSON(data []byte) error {
	type plain TimelineEvent
	var ev plain
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	delete(fields, "type")
	delete(fields, "timestamp")
	delete(fields, "position")
	if len(fields) > 0 {
		ev.Fields = fields
	}
	*e = TimelineEvent(ev)
	return nil
}

// Timeline event types with dedicated handling
const (
	EventChampionKill     = "CHAMPION_KILL"
	EventEliteMonsterKill = "ELITE_MONSTER_KILL"
	EventBuildingKill     = "BUILDING_KILL"
	EventItemPurchased    = "ITEM_PURCHASED"
	EventWardPlaced       = "WARD_PLACED"
	EventWardKill         = "WARD_KILL"
)

// eliminationEvents are the event types where assisting participants count as involved
var eliminationEvents = map[string]bool{
	EventChampionKill:     true,
	EventEliteMonsterKill: true,
	EventBuildingKill:     true,
}

// Involves reports whether the participant slot took part in the event: as the
// direct actor (participantId, or creatorId for placed wards), the killer, the
// victim, or an assistant on an elimination.
func (e TimelineEvent) Involves(slot int) bool {
	if slot <= 0 {
		return false
	}
	if e.ParticipantID == slot || e.CreatorID == slot || e.KillerID == slot || e.VictimID == slot {
		return true
	}
	if !eliminationEvents[e.Type] {
		return false
	}
	for _, id := range e.AssistingParticipantIDs {
		if id == slot {
			return true
		}
	}
	return false
}
