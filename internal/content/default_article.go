package content

// DefaultArticleName is the bundled resume-customization article loaded
// when the corpus is empty on first start.
const DefaultArticleName = "How to Customize Your Resume to Actually Get Interviews"

const DefaultArticleURL = "https://www.news.aakashg.com/p/how-to-customize-your-resume-to-actually"

const DefaultArticleText = `# How to Customize Your Resume to Actually Get Interviews

The #1 mistake people make in trying to get interviews? Sharing a generic resume or customizing poorly. There are 6 key principles of customization:

## 1. Recast Your Experience to Become Ideal
Ask "What archetypes of person would the hiring manager be ecstatic to hire?" Then re-cast as many details as possible to become that person.

## 2. Re-tell Your Story to Be a Straight Line
Make your winding path seem like a straight line to the job. Remove or minimize jobs that don't fit the archetype.

## 3. Customize Every Bullet for the Job
If bullet points aren't positioning you for the job, the space can be better used. Developer experience might be more exciting than activation lift for internal tools roles.

## 4. Use the Keywords the ATS Seeks
AI Resume Screening systems look for keyword existence, not meaning. Cover all the bases the job description mentions.

## 5. Drop Examples to Intrigue
Create a compelling reason to interview you. Drop enough storytelling so they want to follow-up.

## 6. Flip Your Weaknesses
Identify common reasons you might get disqualified and flip them into strengths through narrative and bullet points.

## Resume Structure
Keep it concise but impactful. Use quantifiable achievements. Lead with action verbs. Maintain consistent formatting.

## Tailoring Strategy
Research the company culture. Match their language and tone. Highlight relevant experience. Show progression and growth.`
