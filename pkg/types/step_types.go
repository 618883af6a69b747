package types

// StepType is the closed set of operations a workflow step can declare.
type StepType string

const (
	StepLogin       StepType = "login"
	StepNavigate    StepType = "navigate"
	StepClick       StepType = "click"
	StepFill        StepType = "fill"
	StepSelect      StepType = "select"
	StepWait        StepType = "wait"
	StepScreenshot  StepType = "screenshot"
	StepExtractText StepType = "extract_text"
	StepDownload    StepType = "download"
	StepKeyboard    StepType = "keyboard"
	StepLoop        StepType = "loop"
	StepConditional StepType = "conditional"
)

// Param keys that hold nested step lists.
const (
	ParamSteps           = "steps"
	ParamStepsIfFound    = "steps_if_found"
	ParamStepsIfNotFound = "steps_if_not_found"
)

// NestedStepKeys lists the params of t that carry nested step lists.
func NestedStepKeys(t StepType) []string {
	switch t {
	case StepLoop:
		return []string{ParamSteps}
	case StepConditional:
		return []string{ParamStepsIfFound, ParamStepsIfNotFound}
	default:
		return nil
	}
}

// StepResult is the standardized output structure returned by every runner's Run method.
type StepResult struct {
	Output     any    `json:"output,omitempty"`
	OutputFile string `json:"output_file,omitempty"`
}
