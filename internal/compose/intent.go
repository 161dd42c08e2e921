package compose

// Template ids for every outbound message the state machine can emit.
const (
	TemplateExecutiveSummary = "executive_summary"
	TemplateTopicMenu        = "topic_menu"
	TemplateDetailSkills     = "detail_skills"
	TemplateDetailExperience = "detail_experience"
	TemplateDetailFormatting = "detail_formatting"
	TemplateClosing          = "closing"
	TemplateClarification    = "clarification"
	TemplateDeferred         = "deferred"
	TemplateApology          = "apology"
	TemplateHelp             = "help"
)

// Intent is one outbound message to render: a template id plus the
// variables bound for this turn. Ephemeral; produced and consumed within
// a single turn.
type Intent struct {
	TemplateID string
	Variables  map[string]string
}

func NewIntent(templateID string, variables map[string]string) Intent {
	if variables == nil {
		variables = map[string]string{}
	}
	return Intent{TemplateID: templateID, Variables: variables}
}
