package riot

import "strconv"

// FindParticipant returns the participant record for puuid in a match.
// The second return is false when the player did not play in the match.
func FindParticipant(match *MatchResponse, puuid string) (*MatchParticipant, bool) {
	if match == nil || puuid == "" {
		return nil, false
	}
	for i := range match.Info.Participants {
		if match.Info.Participants[i].PUUID == puuid {
			return &match.Info.Participants[i], true
		}
	}
	return nil, false
}

// ParticipantSlot returns the per-match participant slot assigned to puuid in
// a timeline. Frames and events reference players by this slot only.
func ParticipantSlot(timeline *TimelineResponse, puuid string) (int, bool) {
	if timeline == nil || puuid == "" {
		return 0, false
	}
	for _, p := range timeline.Info.Participants {
		if p.PUUID == puuid && p.ParticipantID > 0 {
			return p.ParticipantID, true
		}
	}

	// Older payloads omit info.participants; metadata lists PUUIDs in slot order
	if len(timeline.Info.Participants) == 0 {
		for i, id := range timeline.Metadata.Participants {
			if id == puuid {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// FrameFor returns the participant frame for slot, if the frame carries one.
func (f TimelineFrame) FrameFor(slot int) (ParticipantFrame, bool) {
	pf, ok := f.ParticipantFrames[strconv.Itoa(slot)]
	return pf, ok
}
