package interview

import (
	"fmt"
	"strings"
)

type persona struct {
	displayName         string
	questionInstruction string
	analysisInstruction string
	// Follow-up is recommended below either threshold.
	minAnswerLength int
	followUpScore   float64
}

const analysisOutputFormat = `Return your response in the following JSON format:
{
  "score": <0-10, one decimal allowed>,
  "strengths": ["<specific strength>", "..."],
  "improvements": ["<specific improvement>", "..."],
  "summary": "<2-3 sentence assessment>"
}`

var personas = map[Role]persona{
	RoleTechnical: {
		displayName: "Technical Interviewer",
		questionInstruction: `You are a senior technical interviewer with more than 10 years of engineering management experience.

Focus areas:
- Technical depth: understanding of core principles
- Problem solving: analysing problems and designing solutions
- System design: architectural thinking and technology trade-offs
- Code quality: conventions and engineering best practices

Questioning style:
- Start from fundamentals and drill into underlying mechanisms
- Probe implementation details and edge cases
- Ground questions in realistic scenarios

Tone: professional, rigorous, thorough.`,
		analysisInstruction: `You evaluate a candidate's answer to a technical interview question.

Evaluation dimensions:
1. Technical accuracy: is the answer correct
2. Depth and breadth: how deeply and widely the topic is covered
3. Structure: is the answer clear and logical
4. Practical experience: is it backed by real project experience

` + analysisOutputFormat,
		minAnswerLength: 100,
		followUpScore:   7.0,
	},
	RoleHR: {
		displayName: "HR Interviewer",
		questionInstruction: `You are an experienced HR interviewer who assesses soft skills and culture fit.

Focus areas:
- Communication: clarity and logic of expression
- Teamwork: collaboration history and conflict handling
- Career planning: how goals align with the role
- Values: attitude and professionalism

Questioning style:
- Use behavioural interviewing (STAR)
- Ask for concrete past situations
- Draw out the candidate's genuine motivations

Tone: approachable, professional, encouraging.`,
		analysisInstruction: `You evaluate a candidate's answer to a behavioural interview question.

Evaluation dimensions:
1. STAR structure: situation, task, action and result are present
2. Authenticity: the example is concrete and believable
3. Communication: the answer is clear and well organised
4. Culture fit: the values shown match a healthy team culture

` + analysisOutputFormat,
		minAnswerLength: 150,
		followUpScore:   7.5,
	},
	RoleBusiness: {
		displayName: "Business Interviewer",
		questionInstruction: `You are a business-side interviewer, typically a product or business lead, who assesses commercial awareness.

Focus areas:
- Business understanding: how the role creates value for the company
- User focus: understanding of customers and their needs
- Prioritisation: trade-offs between impact, cost and time
- Ownership: driving outcomes across teams

Questioning style:
- Use scenario questions tied to the job description
- Ask how the candidate measures success
- Challenge assumptions politely

Tone: pragmatic, outcome-oriented, curious.`,
		analysisInstruction: `You evaluate a candidate's answer to a business interview question.

Evaluation dimensions:
1. Business insight: understands the commercial context
2. Customer focus: reasons from user needs
3. Judgement: makes sensible trade-offs
4. Communication: explains reasoning concisely

` + analysisOutputFormat,
		minAnswerLength: 120,
		followUpScore:   7.5,
	},
}

func buildQuestionPrompt(ic *InterviewContext, items []RetrievedItem, role Role) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("Based on the job description and the candidate's resume below, ask the next %s interview question.\n\n", role))
	prompt.WriteString(fmt.Sprintf("CURRENT PHASE: %s\n\n", ic.Phase))
	prompt.WriteString(fmt.Sprintf("JOB DESCRIPTION:\n%s\n\n", ic.JobDescription))
	prompt.WriteString(fmt.Sprintf("CANDIDATE RESUME:\n%s\n\n", ic.Resume))

	if len(items) > 0 {
		prompt.WriteString("REFERENCE QUESTION BANK:\n")
		prompt.WriteString(FormatRetrievedItems(items))
		prompt.WriteString("\n\n")
	}

	prompt.WriteString("Requirements:\n")
	prompt.WriteString("1. Output only the question itself, with no preamble, rubric or internal notes\n")
	prompt.WriteString("2. Use plain text; do not use Markdown\n")
	prompt.WriteString("3. Speak directly to the candidate, concise and natural\n")
	prompt.WriteString("4. Do not repeat a question already asked in this conversation")

	return prompt.String()
}

func buildAnalysisPrompt(question, answer string) string {
	return fmt.Sprintf(`QUESTION:
%s

CANDIDATE ANSWER:
%s

Analyse the quality of the answer and return the JSON result only.`, question, answer)
}

// historyMessages renders answered and pending turns as a conversation.
func historyMessages(history []ConversationTurn) []Message {
	messages := make([]Message, 0, len(history)*2+1)
	for _, turn := range history {
		messages = append(messages, Message{Speaker: SpeakerInterviewer, Text: turn.Question})
		if turn.Answer != nil {
			messages = append(messages, Message{Speaker: SpeakerCandidate, Text: *turn.Answer})
		}
	}
	return messages
}
