package app

import (
	"fmt"
	"strings"

	"quizbot-service/internal/quiz"
)

// FallbackTopics pad topic suggestions and are advertised in the help reply.
var FallbackTopics = []string{
	"Python Programming",
	"Data Science",
	"Web Development",
	"Cloud Computing",
	"React",
	"Databases",
}

const (
	replyAnswerNudge     = "Please answer with A, B, C, or D, or type 'stop' to end the quiz."
	replyNextOnItsWay    = "Your answer is recorded. The next question is on its way."
	replyNoDocument      = "📄 No PDF uploaded yet. Please upload a PDF file first, then type 'quiz pdf'."
	replyDocumentRemoved = "✅ PDF content has been removed. You can now upload a new PDF or start topic-based quizzes."
	replyNoDocumentFound = "ℹ️ No PDF content found to remove."
)

// documentTitle is the header topic for quizzes sourced from the uploaded PDF.
const documentTitle = "PDF"

func helpReply() string {
	return fmt.Sprintf(`👋 Welcome to QuizBot - Your Learning Companion!

I help you learn through interactive quizzes with AI-generated questions.

📚 **Popular Topics:**
%s

💡 **How to Start:**
  • quiz python
  • test me on machine learning
  • teach me about biology
  • ask me questions about chemistry

📎 **Upload PDF:**
Upload a PDF document and type 'quiz pdf' to generate questions from it.
To remove the uploaded PDF, type: 'remove pdf'

🎯 **How it Works:**
1. I'll generate fresh questions for you
2. Answer each question with A, B, C, or D
3. Get instant feedback
4. Type 'stop' to see your final score`, strings.Join(FallbackTopics, ", "))
}

func noActiveQuizReply() string {
	return fmt.Sprintf("**%s!**\n\nThere was no active quiz to stop. Type 'quiz [topic]' to start one!", quiz.CompleteMarker)
}

func generationFailedReply(topic string) string {
	return fmt.Sprintf("Sorry, I couldn't generate a question about %s right now. Type 'quiz [topic]' to try again.", topic)
}
