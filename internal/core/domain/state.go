package domain

import "strings"

// Phase is the position of the redemption flow in its lifecycle
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseValidating
	PhaseInvalid
	PhaseValid
	PhaseDownloading
)

func (p Phase) String() string {
	switch p {
	case PhaseValidating:
		return "validating"
	case PhaseInvalid:
		return "invalid"
	case PhaseValid:
		return "valid"
	case PhaseDownloading:
		return "downloading"
	default:
		return "empty"
	}
}

// FlowState is a snapshot of the redemption flow. View is only ever set in
// the Valid and Downloading phases; use the constructors below.
type FlowState struct {
	Phase   Phase
	Input   string     // raw text as typed, untrimmed
	Token   string     // trimmed token the phase refers to
	View    *BadgeInfo // held badge view
	Message string     // last rejection message in Invalid
}

func EmptyState() FlowState {
	return FlowState{Phase: PhaseEmpty}
}

func ValidatingState(input, token string) FlowState {
	return FlowState{Phase: PhaseValidating, Input: input, Token: token}
}

func InvalidState(input, token, message string) FlowState {
	return FlowState{Phase: PhaseInvalid, Input: input, Token: token, Message: message}
}

func ValidState(input, token string, view BadgeInfo) FlowState {
	return FlowState{Phase: PhaseValid, Input: input, Token: token, View: &view}
}

func DownloadingState(input, token string, view BadgeInfo) FlowState {
	return FlowState{Phase: PhaseDownloading, Input: input, Token: token, View: &view}
}

// Busy reports a request in flight. Busy phases disable their triggers.
func (s FlowState) Busy() bool {
	return s.Phase == PhaseValidating || s.Phase == PhaseDownloading
}

func (s FlowState) CanValidate() bool {
	return !s.Busy() && strings.TrimSpace(s.Input) != ""
}

func (s FlowState) CanDownload() bool {
	return s.Phase == PhaseValid && s.Token != ""
}

func (s FlowState) CanExport() bool {
	return s.View != nil
}
