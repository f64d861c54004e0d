package llm

import (
	"fmt"
	"strings"
)

const (
	documentExcerpt = 3000
	askedWindow     = 10

	questionSystemPrompt = "You are an expert quiz generator. Your specialty is creating DIVERSE questions that cover DIFFERENT aspects of a topic. Each question you generate must be about a completely different concept or aspect. NEVER repeat similar questions. Return ONLY valid JSON format."
	topicSystemPrompt    = "You are a data analyst that analyzes user behavior and generates topic trends. Always respond with valid JSON array only, no extra text."
)

var topicEnhancements = map[string]string{
	"python":          "Python programming (syntax, functions, classes, data structures, algorithms, OOP concepts, libraries like pandas/numpy, coding best practices)",
	"data science":    "Data Science and AI (machine learning algorithms, pandas, numpy, statistics, data analysis, neural networks, scikit-learn)",
	"web development": "Web Development (HTML, CSS, JavaScript, REST APIs, web frameworks, responsive design, frontend/backend)",
	"cloud computing": "Cloud Computing (AWS, Azure, GCP, serverless architecture, containers, Docker, Kubernetes, cloud services)",
	"react":           "React.js framework (hooks, components, state management, JSX, props, lifecycle, Next.js, TypeScript with React)",
	"databases":       "Databases and SQL (relational databases, SQL queries, NoSQL databases, database design, normalization, optimization, indexes)",
}

var defaultAreas = []string{
	"fundamental concepts",
	"practical applications",
	"advanced topics",
	"common use cases",
	"best practices",
}

const jsonShape = `Return ONLY a JSON array in this EXACT format:
[
  {
    "q": "Question text here?",
    "options": ["Option A", "Option B", "Option C", "Option D"],
    "a": "A"
  }
]`

func enhanceTopic(topic string) string {
	if desc, ok := topicEnhancements[strings.ToLower(strings.TrimSpace(topic))]; ok {
		return desc
	}
	return topic
}

func avoidBlock(asked []string) string {
	if len(asked) > askedWindow {
		asked = asked[len(asked)-askedWindow:]
	}
	if len(asked) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n**IMPORTANT - DO NOT REPEAT THESE QUESTIONS:**\n")
	for _, q := range asked {
		b.WriteString("- ")
		b.WriteString(q)
		b.WriteByte('\n')
	}
	b.WriteString("\nYou MUST generate COMPLETELY DIFFERENT questions that are NOT similar to any of the above.\n")
	return b.String()
}

func documentPrompt(document string, count int, asked []string, seed int64) string {
	return fmt.Sprintf(`Generate exactly %d UNIQUE and DIVERSE multiple-choice quiz questions based on the following PDF content:

%s...
%s
IMPORTANT REQUIREMENTS:
- Generate questions ONLY from the provided PDF content
- Make each question completely different and unique
- Use varied question styles and difficulty levels
- Each question must have 4 options (A, B, C, D)
- Only ONE option should be correct
- Include the correct answer letter

%s

Number of questions: %d
Uniqueness seed: %d

Return ONLY the JSON array, no other text.`,
		count, excerpt(document, documentExcerpt), avoidBlock(asked), jsonShape, count, seed)
}

func topicPrompt(topic string, count int, asked []string, seed int64) string {
	var areas strings.Builder
	for i, area := range defaultAreas {
		fmt.Fprintf(&areas, "  %d. %s\n", i+1, area)
	}
	enhanced := enhanceTopic(topic)
	return fmt.Sprintf(`Generate exactly %d COMPLETELY DIFFERENT multiple-choice quiz questions about %s.
%s
QUESTION DIVERSITY RULES:
- Each question MUST cover a DIFFERENT aspect or concept
- Distribute questions across these areas:
%s- Vary the difficulty: mix easy, medium, and challenging questions

TOPIC FOCUS:
- ALL questions must be about %s ONLY

FORMATTING REQUIREMENTS:
- Each question must have exactly 4 options (A, B, C, D)
- Only ONE option should be correct per question
- Make wrong options plausible but clearly incorrect

%s

Uniqueness seed: %d

Return ONLY the JSON array.`,
		count, enhanced, avoidBlock(asked), areas.String(), strings.ToUpper(topic), jsonShape, seed)
}

func suggestionPrompt(titles []string, n int) string {
	var b strings.Builder
	for _, t := range titles {
		b.WriteString("- ")
		b.WriteString(t)
		b.WriteByte('\n')
	}
	return fmt.Sprintf(`Based on the following user chat data, generate a list of EXACTLY %d "Most Requested Topics".

Rules:
- Topics must reflect actual user demand and frequency
- Merge similar topics into a single clear topic
- Keep topic names short and professional (2-4 words each)
- Do not include explanations, numbering or emojis
- Output ONLY a JSON array of exactly %d strings

User chat data (recent chat titles):
%s`, n, n, b.String())
}

// excerpt cuts s to at most n runes.
func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// stripCodeFence unwraps a ```json ... ``` block when the model adds one.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if i := strings.Index(content, "```json"); i >= 0 {
		content = content[i+len("```json"):]
	} else if i := strings.Index(content, "```"); i >= 0 {
		content = content[i+3:]
	} else {
		return content
	}
	if j := strings.Index(content, "```"); j >= 0 {
		content = content[:j]
	}
	return strings.TrimSpace(content)
}
