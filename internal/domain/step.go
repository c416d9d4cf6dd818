package domain

type Step int

const (
	StepPlatformSelect Step = iota + 1
	StepModeSelect
	StepURLAndQuality
	StepProgress
	StepComplete
	StepError
)

func (s Step) String() string {
	switch s {
	case StepPlatformSelect:
		return "platform"
	case StepModeSelect:
		return "mode"
	case StepURLAndQuality:
		return "source"
	case StepProgress:
		return "progress"
	case StepComplete:
		return "complete"
	case StepError:
		return "error"
	default:
		return "unknown"
	}
}

func (s Step) Terminal() bool { return s == StepComplete || s == StepError }

type PhaseKind string

const (
	PhaseChoosePlatform    PhaseKind = "choose_platform"
	PhaseChooseMode        PhaseKind = "choose_mode"
	PhaseAwaitURL          PhaseKind = "await_url"
	PhaseFetching          PhaseKind = "fetching"
	PhaseChooseQuality     PhaseKind = "choose_quality"
	PhaseConfirmCollection PhaseKind = "confirm_collection"
	PhaseLaunching         PhaseKind = "launching"
	PhaseStreaming         PhaseKind = "streaming"
	PhaseStalled           PhaseKind = "stalled"
	PhaseDone              PhaseKind = "done"
	PhaseFailed            PhaseKind = "failed"
)

// Phase is computed once per transition. Front-ends derive every affordance
// from it instead of inspecting session fields.
type Phase struct {
	Kind PhaseKind
}

// PhaseInputs are the facts a phase is computed from.
type PhaseInputs struct {
	Step      Step
	Session   *Session
	HasOption bool
	Fetching  bool
	Launching bool
	Stalled   bool
}

func ComputePhase(in PhaseInputs) Phase {
	switch in.Step {
	case StepPlatformSelect:
		return Phase{Kind: PhaseChoosePlatform}
	case StepModeSelect:
		return Phase{Kind: PhaseChooseMode}
	case StepURLAndQuality:
		switch {
		case in.Fetching:
			return Phase{Kind: PhaseFetching}
		case in.Session == nil || in.Session.Metadata == nil:
			return Phase{Kind: PhaseAwaitURL}
		case in.Session.CollectionFlow():
			return Phase{Kind: PhaseConfirmCollection}
		case in.HasOption:
			return Phase{Kind: PhaseChooseQuality}
		default:
			return Phase{Kind: PhaseAwaitURL}
		}
	case StepProgress:
		switch {
		case in.Launching:
			return Phase{Kind: PhaseLaunching}
		case in.Stalled:
			return Phase{Kind: PhaseStalled}
		default:
			return Phase{Kind: PhaseStreaming}
		}
	case StepComplete:
		return Phase{Kind: PhaseDone}
	case StepError:
		return Phase{Kind: PhaseFailed}
	default:
		return Phase{Kind: PhaseChoosePlatform}
	}
}

func (p Phase) Busy() bool { return p.Kind == PhaseFetching || p.Kind == PhaseLaunching }

func (p Phase) CanSubmitURL() bool {
	switch p.Kind {
	case PhaseAwaitURL, PhaseChooseQuality, PhaseConfirmCollection:
		return true
	default:
		return false
	}
}

func (p Phase) CanSelectQuality() bool { return p.Kind == PhaseChooseQuality }

func (p Phase) CanConfirm() bool {
	return p.Kind == PhaseChooseQuality || p.Kind == PhaseConfirmCollection
}

func (p Phase) CanRetry() bool { return p.Kind == PhaseFailed }

func (p Phase) CanStartOver() bool {
	return p.Kind == PhaseDone || p.Kind == PhaseFailed || p.Kind == PhaseStalled
}

func (p Phase) CanGoBack() bool {
	switch p.Kind {
	case PhaseChooseMode, PhaseAwaitURL, PhaseChooseQuality, PhaseConfirmCollection:
		return true
	default:
		return false
	}
}
