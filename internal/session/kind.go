package session

import "strings"

// Kind classifies a transcript message. The set is closed; unknown wire
// values map to KindUnknown.
type Kind int

const (
	KindUnknown Kind = iota
	KindBaseKnowledge
	KindLearned
	KindLearnedSmart
	KindWebSearch
	KindAIGenerated
	KindError
	KindWelcome
	KindSystem
	KindUser
)

var kindWireNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindBaseKnowledge: "base_knowledge",
	KindLearned:       "learned",
	KindLearnedSmart:  "learned_smart",
	KindWebSearch:     "web_search",
	KindAIGenerated:   "ai_generated",
	KindError:         "error",
	KindWelcome:       "welcome",
	KindSystem:        "system",
	KindUser:          "user",
}

var kindLabels = map[Kind]string{
	KindUnknown:       "Other",
	KindBaseKnowledge: "Basic",
	KindLearned:       "Learned",
	KindLearnedSmart:  "Smart",
	KindWebSearch:     "Web",
	KindAIGenerated:   "AI",
	KindError:         "Error",
	KindWelcome:       "Welcome",
	KindSystem:        "System",
	KindUser:          "You",
}

// ParseKind maps a service-reported type string onto Kind.
func ParseKind(value string) Kind {
	value = strings.ToLower(strings.TrimSpace(value))
	for kind, name := range kindWireNames {
		if kind != KindUnknown && name == value {
			return kind
		}
	}
	return KindUnknown
}

// String returns the wire name.
func (k Kind) String() string {
	if name, ok := kindWireNames[k]; ok {
		return name
	}
	return kindWireNames[KindUnknown]
}

// Label returns the short badge shown next to a message.
func (k Kind) Label() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return kindLabels[KindUnknown]
}

// MarshalText keeps archived transcripts readable.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	*k = ParseKind(string(text))
	return nil
}

// Sender identifies who produced a message.
type Sender int

const (
	SenderUser Sender = iota
	SenderBot
	SenderSystem
)

func (s Sender) String() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderSystem:
		return "System"
	default:
		return "Bot"
	}
}

func (s Sender) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

func (s *Sender) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "you", "user":
		*s = SenderUser
	case "system":
		*s = SenderSystem
	default:
		*s = SenderBot
	}
	return nil
}

// Tab names the active surface of the front end.
type Tab string

const (
	TabChat   Tab = "chat"
	TabSearch Tab = "search"
)
