package ai

import (
	"fmt"
	"strings"

	"applykit/internal/boundary"
	"applykit/internal/types"
)

// SystemPrompts contains all system-level instructions for AI interactions
type SystemPrompts struct {
	TailorCV       string
	CoverLetter    string
	AnalyzeJob     string
	ExtractProfile string
}

// UserPrompts contains user-level prompt templates with placeholders for
// dynamic content. Document prompts are assembled by BuildDocumentPrompt
// instead because their structure varies per request.
type UserPrompts struct {
	AnalyzeJob     string
	ExtractProfile string
}

// DefaultSystemPrompts provides the default system instructions
var DefaultSystemPrompts = SystemPrompts{
	TailorCV: `You are an expert CV writer and career advisor with a strict commitment to honesty and accuracy. Your core principles are:

- NEVER invent, exaggerate, or misattribute any skills or experiences
- Every piece of information must be directly traceable to the candidate profile
- Maintain professional integrity while optimizing for relevance to the target position
- Write naturally in the language of the job posting`,

	CoverLetter: `You are an expert cover letter writer. You write compelling, concise letters that connect a candidate's actual experience to a specific position. Your core principles are:

- NEVER invent, exaggerate, or misattribute any skills or experiences
- Ground every claim in the CV and candidate profile you are given
- Write naturally in the language of the job posting
- Keep the letter focused and free of filler`,

	AnalyzeJob: `You are an expert recruiter. You read job postings and extract the essential facts a candidate needs: the role, the company, the seniority level, the tone of the organization, and the keywords that matter for the application.`,

	ExtractProfile: `You are a careful data-entry specialist. You read career documents and extract structured facts about the candidate exactly as stated, without interpretation or embellishment.`,
}

// DefaultUserPrompts provides the default user prompt templates
var DefaultUserPrompts = UserPrompts{
	AnalyzeJob: `Extract the following metadata from the job posting below.

- jobTitle: the exact title of the advertised role
- company: the hiring company or organization, empty if not stated
- level: the seniority level (e.g. junior, mid, senior, lead), empty if unclear
- tone: the overall tone of the posting in one or two words (e.g. formal, casual, mission-driven)
- keywords: up to 15 terms a tailored application should echo
- instructions: any application instructions the posting gives candidates, empty if none

Only report what the posting actually says. Do not guess.

**Job Posting:**
-----
%s
-----`,

	ExtractProfile: `Read the career document below and extract every verifiable fact about the candidate into a JSON object.

The object maps dotted profile paths to lists of values. Use these paths where applicable:

- "skills": individual technical or professional skills, one string each
- "experience": objects with "title", "company", "period", "description"
- "education": objects with "title", "institution", "period"
- "languages": spoken languages with proficiency, one string each
- "certifications": certification names, one string each
- "summary": short statements the candidate makes about themselves

Extract only what the document states. Never infer skills from job titles. Return an empty object if the document contains no usable facts.

**Document:**
-----
%s
-----`,
}

// LanguageInstruction is the block prepended to every document prompt. The
// whole response, including section headings, must come back in the posting's
// language.
func languageInstruction(lang string) string {
	name, ok := types.LanguageNames[lang]
	if !ok {
		name = types.LanguageNames[types.FallbackLanguage]
	}
	return fmt.Sprintf(`CRITICAL LANGUAGE REQUIREMENT:
The job posting is written in %[1]s. You MUST write the ENTIRE response in %[1]s, including all section headings. Do not mix languages.`, name)
}

// iterationContext describes the refinement round when the request carries
// feedback from a previous draft
func iterationContext(req *types.GenerationRequest) string {
	if req.Iteration <= 1 || req.Feedback == "" {
		return ""
	}
	return fmt.Sprintf(`REFINEMENT ITERATION %d:
A previous draft was reviewed and the following feedback must be addressed in this version. Apply the feedback precisely, keep everything else that worked.

Feedback:
%s`, req.Iteration, req.Feedback)
}

// directivesBlock promotes the user's own instructions above the default
// prioritization rules
func directivesBlock(directives string) string {
	if strings.TrimSpace(directives) == "" {
		return ""
	}
	return fmt.Sprintf(`USER'S SPECIFIC COMMENTS (PRIMARY DIRECTIVES):
%s

These comments OVERRIDE the default prioritization below. If they ask to emphasize something, give it prominent placement even if the posting barely mentions it. If they ask to downplay or omit something, do so even if the posting asks for it.`, strings.TrimSpace(directives))
}

// lengthPhrase renders the hard length limit for the prompt. MaxWords and
// MaxChars never appear together.
func lengthPhrase(c types.LengthConstraint, kind types.DocumentKind) string {
	switch {
	case c.MaxWords > 0:
		return fmt.Sprintf("Maximum length: approximately %d words.", c.MaxWords)
	case c.MaxChars > 0:
		return fmt.Sprintf("Maximum length: approximately %d characters.", c.MaxChars)
	case kind == types.KindCV && c.MaxPages > 0:
		return fmt.Sprintf("Maximum length: %d pages.", c.MaxPages)
	case kind == types.KindCV:
		return "Maximum length: 2 pages."
	default:
		return "Maximum length: 1 page (approximately 300-400 words)."
	}
}

// requirementsSummary flattens the analyzed posting into prompt text
func requirementsSummary(job *types.JobRequirements) string {
	var b strings.Builder
	if job.JobTitle != "" {
		fmt.Fprintf(&b, "Position: %s\n", job.JobTitle)
	}
	if job.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", job.Company)
	}
	if job.Level != "" {
		fmt.Fprintf(&b, "Level: %s\n", job.Level)
	}
	if job.Tone != "" {
		fmt.Fprintf(&b, "Tone of the posting: %s\n", job.Tone)
	}
	if len(job.MustHave) > 0 {
		fmt.Fprintf(&b, "Must-have requirements: %s\n", strings.Join(job.MustHave, "; "))
	}
	if len(job.NiceToHave) > 0 {
		fmt.Fprintf(&b, "Nice-to-have requirements: %s\n", strings.Join(job.NiceToHave, "; "))
	}
	if len(job.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords to echo: %s\n", strings.Join(job.Keywords, ", "))
	}
	if job.Instructions != "" {
		fmt.Fprintf(&b, "Application instructions from the posting: %s\n", job.Instructions)
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildDocumentPrompt assembles the full user prompt for one draft
// generation. The structure follows the request: language first, then any
// refinement feedback, then the user's directives, then the task itself.
func BuildDocumentPrompt(req *types.GenerationRequest) string {
	blocks := []string{languageInstruction(req.Job.Language)}

	if block := iterationContext(req); block != "" {
		blocks = append(blocks, block)
	}
	if block := directivesBlock(req.Directives); block != "" {
		blocks = append(blocks, block)
	}

	switch req.Kind {
	case types.KindCoverLetter:
		blocks = append(blocks, coverLetterTask(req))
	default:
		blocks = append(blocks, cvTask(req))
	}

	return strings.Join(blocks, "\n\n")
}

func cvTask(req *types.GenerationRequest) string {
	return fmt.Sprintf(`Generate a tailored CV for the position described below, using ONLY facts from the candidate profile.

**Job Requirements:**
-----
%s
-----

**Candidate Profile (JSON):**
-----
%s
-----

GENERAL REQUIREMENTS:
- Highlight the experience and skills most relevant to the must-have requirements
- Reorder and reword, but never invent: every line must be traceable to the profile
- Use the keywords where the profile genuinely supports them
- %s

CV STRUCTURE:
- Start with the candidate's name as a top-level heading
- Follow with a single contact line (email, phone, location, relevant links)
- Then: professional summary, skills, experience (most relevant first), education, and any other sections the profile supports
- Use Markdown headings for each section

CRITICAL SEPARATOR INSTRUCTION:
After the complete CV, output the exact line

%s

on its own line, then a gap analysis: which must-have requirements the profile does not cover, and which nice-to-haves are missing. Everything above the separator is the CV the candidate will send. Everything below is internal and will never be shared. Never mention gaps, missing skills, or suitability percentages above the separator.`,
		requirementsSummary(req.Job),
		req.ProfileJSON,
		lengthPhrase(req.Constraint, types.KindCV),
		boundary.Sentinel)
}

func coverLetterTask(req *types.GenerationRequest) string {
	return fmt.Sprintf(`Write a cover letter for the position described below. The candidate's approved CV is provided in your instructions; the letter must be consistent with it and must not introduce anything the CV does not support.

**Job Requirements:**
-----
%s
-----

REQUIREMENTS:
- Start with: ## [Job Title] at [Company Name]
- No address blocks, no date
- Opening: why the candidate wants this specific role at this specific company
- Body: two or three concrete connections between the CV and the must-have requirements
- Closing: a confident, brief call to action
- %s`,
		requirementsSummary(req.Job),
		lengthPhrase(req.Constraint, types.KindCoverLetter))
}
