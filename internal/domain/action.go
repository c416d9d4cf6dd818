package domain

type ActionType string

const (
	ActionSelectPlatform ActionType = "select_platform"
	ActionSelectMode     ActionType = "select_mode"
	ActionBack           ActionType = "back"
	ActionSubmitURL      ActionType = "submit_url"
	ActionSelectQuality  ActionType = "select_quality"
	ActionConfirm        ActionType = "confirm"
	ActionRetry          ActionType = "retry"
	ActionNewDownload    ActionType = "new_download"
	ActionQuit           ActionType = "quit"
)

type Action struct {
	Type ActionType

	Platform Platform
	Mode     Mode
	// Target step for ActionBack.
	Step Step
	// Index into the current option list for ActionSelectQuality.
	Index int
	Text  string
}
