package affection

// Affection level bounds and tier breakpoints.
const (
	MaxLevel = 1000

	tier2Breakpoint = 100
	tier3Breakpoint = 300
	tier4Breakpoint = 600
	tier5Breakpoint = 900
)

// Relationship status strings, one per tier.
const (
	StatusDistant  = "Distant"
	StatusNeutral  = "Neutral"
	StatusFriendly = "Friendly"
	StatusClose    = "Close"
	StatusIntimate = "Intimate"
)

// GainSource labels why affection points were granted.
type GainSource string

const (
	SourceMessage       GainSource = "message"
	SourceQuestComplete GainSource = "quest_complete"
	SourceQuestAttempt  GainSource = "quest_attempt"
	SourceDailyBonus    GainSource = "daily_bonus"
	SourceLongSession   GainSource = "long_session"
	SourceReturning     GainSource = "returning"
	SourceManual        GainSource = "manual"
)

// ClampLevel bounds a level to 0-1000.
func ClampLevel(level int) int {
	switch {
	case level < 0:
		return 0
	case level > MaxLevel:
		return MaxLevel
	default:
		return level
	}
}

// TierOf derives the visible tier (1-5) from a raw level.
func TierOf(level int) int {
	switch {
	case level >= tier5Breakpoint:
		return 5
	case level >= tier4Breakpoint:
		return 4
	case level >= tier3Breakpoint:
		return 3
	case level >= tier2Breakpoint:
		return 2
	default:
		return 1
	}
}

// StatusFor maps a tier to its relationship status string.
func StatusFor(tier int) string {
	switch tier {
	case 5:
		return StatusIntimate
	case 4:
		return StatusClose
	case 3:
		return StatusFriendly
	case 2:
		return StatusNeutral
	default:
		return StatusDistant
	}
}

var tierContexts = map[int]string{
	1: "You barely know this person yet. Be polite but keep a little distance; let curiosity build naturally.",
	2: "You are getting comfortable with this person. Be warm and interested, but not overly familiar.",
	3: "You are good friends now. Be relaxed, tease gently, and reference things you both enjoy.",
	4: "You are very close. Be openly affectionate, attentive, and comfortable with silence and honesty.",
	5: "You share a deep bond. Be tender and fully at ease; small gestures and inside references matter.",
}

// ContextFor returns the relationship directive for a tier. Pure lookup.
func ContextFor(tier int) string {
	if directive, ok := tierContexts[tier]; ok {
		return directive
	}
	return tierContexts[1]
}
