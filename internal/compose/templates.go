package compose

// Blocks are ordered most-specific-first within a weight class. When a
// rendered message exceeds the character budget, blocks are dropped from
// the least-specific weight down: boilerplate first, then secondary
// content, and only then lines inside the remaining core blocks.
const (
	weightCore = iota
	weightSecondary
	weightBoilerplate
)

type block struct {
	weight int
	text   string
}

type template struct {
	id     string
	blocks []block
}

// minimalFallback is rendered when truncation would strip every
// substantive block. Budgets smaller than this text get a hard-cut
// prefix of it, so Render never exceeds the budget.
const minimalFallback = "This update didn't fit in one message. Reply skills, experience, or formatting and I'll send the details one piece at a time."

var templates = map[string]template{
	TemplateExecutiveSummary: {
		id: TemplateExecutiveSummary,
		blocks: []block{
			{weightCore, "🎯 Resume Review\n\nI analyzed your resume{{job_suffix}}.\n\nFit: {{band_text}}"},
			{weightSecondary, "{{narrative}}"},
			{weightSecondary, "✅ Matching: {{matched}}\n⚠️ Missing: {{missing}}"},
			{weightBoilerplate, "This review is grounded in newsletter principles on resume customization."},
		},
	},
	TemplateTopicMenu: {
		id: TemplateTopicMenu,
		blocks: []block{
			{weightCore, "What should we dig into?\n1. Skills & Keywords\n2. Experience & Achievements\n3. Formatting & ATS\n4. All areas"},
			{weightBoilerplate, "Reply with a number or the topic name."},
		},
	},
	TemplateDetailSkills: {
		id: TemplateDetailSkills,
		blocks: []block{
			{weightCore, "🎯 Skills & Keywords\n\n✅ MATCHING: {{matched}}\n❌ MISSING: {{missing}}"},
			{weightSecondary, "🎯 Action plan:\n{{keyword_actions}}"},
			{weightSecondary, "📚 Newsletter insight: screening systems look for keyword existence, not meaning. Cover the bases the job description mentions. ({{citations}})"},
			{weightBoilerplate, "Want another area? Reply experience, formatting, or all — or done to wrap up."},
		},
	},
	TemplateDetailExperience: {
		id: TemplateDetailExperience,
		blocks: []block{
			{weightCore, "💼 Experience & Achievements\n\nRecast your experience toward the archetype the hiring manager wants, and make your path read like a straight line to this job."},
			{weightSecondary, "🎯 Quick wins:\n• Lead each bullet with an action verb\n• Quantify outcomes, not activities\n• Trim bullets that don't position you for this role"},
			{weightSecondary, "📚 Newsletter insight: customize every bullet for the job. ({{citations}})"},
			{weightBoilerplate, "Want another area? Reply skills, formatting, or all — or done to wrap up."},
		},
	},
	TemplateDetailFormatting: {
		id: TemplateDetailFormatting,
		blocks: []block{
			{weightCore, "📄 Formatting & ATS\n\nKeep the layout simple: standard fonts, consistent bullet style, no tables or graphics."},
			{weightSecondary, "🎯 Quick fixes:\n• Use standard section headers (Experience, Skills, Education)\n• Include both acronyms and full terms\n• Keep it scannable"},
			{weightSecondary, "📚 Newsletter insight: screening systems parse structure before a person reads a word. ({{citations}})"},
			{weightBoilerplate, "Want another area? Reply skills, experience, or all — or done to wrap up."},
		},
	},
	TemplateClosing: {
		id: TemplateClosing,
		blocks: []block{
			{weightCore, "That wraps up your review — good luck with the application! 🎉"},
			{weightBoilerplate, "Send a new resume link any time for another round."},
		},
	},
	TemplateClarification: {
		id: TemplateClarification,
		blocks: []block{
			{weightCore, "Sorry, I didn't catch that. Reply skills, experience, formatting, or all — or done to finish."},
		},
	},
	TemplateDeferred: {
		id: TemplateDeferred,
		blocks: []block{
			{weightCore, "⏰ You've hit today's message limit for this review. Your progress is saved — message me again after the window resets and we'll pick up right where we left off."},
		},
	},
	TemplateApology: {
		id: TemplateApology,
		blocks: []block{
			{weightCore, "😔 Something went wrong on my side. Send any message and we'll restart from your summary."},
		},
	},
	TemplateHelp: {
		id: TemplateHelp,
		blocks: []block{
			{weightCore, "👋 Hi! I review resumes with advice grounded in newsletter principles.\n\nSend a link to your resume (and optionally a job posting URL) and I'll send back a personalized review."},
			{weightBoilerplate, "Example:\nhttps://example.com/resume.pdf https://jobs.company.com/role"},
		},
	},
}
