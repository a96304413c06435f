package session

import "github.com/google/uuid"

const (
	// DefaultSearchQuota is the per-session web search allowance enforced by the service.
	DefaultSearchQuota = 50
	defaultTrustScore  = 50
)

// State is the client's cached view of one session. Counters are mirrors of
// the service's values and are only ever overwritten from a service reply.
type State struct {
	ID              string
	TrustScore      int
	SearchCount     int
	SearchRemaining int
	SearchQuota     int
	LearningMode    bool
	ActiveTab       Tab
}

// NewState returns the state of a freshly created session.
func NewState(quota int) State {
	if quota <= 0 {
		quota = DefaultSearchQuota
	}
	return State{
		ID:              uuid.NewString(),
		TrustScore:      defaultTrustScore,
		SearchCount:     0,
		SearchRemaining: quota,
		SearchQuota:     quota,
		LearningMode:    false,
		ActiveTab:       TabChat,
	}
}

func clampTrust(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
