package shared

// MatchStatus is the cached match state carried by GL entries and forecast lines
type MatchStatus string

const (
	MatchStatusUnmatched     MatchStatus = "unmatched"
	MatchStatusMatchedExact  MatchStatus = "matched_exact"
	MatchStatusMatchedFuzzy  MatchStatus = "matched_fuzzy"
	MatchStatusMatchedManual MatchStatus = "matched_manual"
)

// IsMatched reports whether the status denotes any kind of active match
func (s MatchStatus) IsMatched() bool {
	return s == MatchStatusMatchedExact || s == MatchStatusMatchedFuzzy || s == MatchStatusMatchedManual
}

// MatchMethod records how a match record was produced
type MatchMethod string

const (
	MatchMethodExact  MatchMethod = "exact"
	MatchMethodFuzzy  MatchMethod = "fuzzy"
	MatchMethodManual MatchMethod = "manual"
)

// Status maps a method to the entity status it implies
func (m MatchMethod) Status() MatchStatus {
	switch m {
	case MatchMethodExact:
		return MatchStatusMatchedExact
	case MatchMethodFuzzy:
		return MatchStatusMatchedFuzzy
	case MatchMethodManual:
		return MatchStatusMatchedManual
	default:
		return MatchStatusUnmatched
	}
}

// Mode selects which matching phases a reconciliation run executes
type Mode string

const (
	ModeExact Mode = "exact"
	ModeFuzzy Mode = "fuzzy"
	ModeBoth  Mode = "both"
)

// ParseMode validates a requested mode
func ParseMode(value string) (Mode, error) {
	switch m := Mode(value); m {
	case ModeExact, ModeFuzzy, ModeBoth:
		return m, nil
	default:
		return "", ErrInvalidMode{Mode: value}
	}
}

func (m Mode) IncludesExact() bool {
	return m == ModeExact || m == ModeBoth
}

func (m Mode) IncludesFuzzy() bool {
	return m == ModeFuzzy || m == ModeBoth
}

// RunOutcome is the terminal state recorded for a reconciliation run
type RunOutcome string

const (
	RunOutcomeCompleted RunOutcome = "completed"
	RunOutcomeCancelled RunOutcome = "cancelled"
	RunOutcomeFailed    RunOutcome = "failed"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
