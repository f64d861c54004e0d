package quiz

import "quizbot-service/internal/domain"

// Evaluation is the outcome of scoring one answer.
type Evaluation struct {
	Submitted string
	IsCorrect bool
	Question  Question
	Body      string
}

// Evaluate scores submitted against q and renders the answered body to persist.
// Only the submitted option and the correct option are marked; the hidden
// marker is kept in Body.
func Evaluate(q Question, submitted string) (Evaluation, error) {
	letter, ok := NormalizeLetter(submitted)
	if !ok {
		return Evaluation{}, domain.ErrOutOfRangeAnswer
	}
	if q.IsAnswered {
		return Evaluation{}, domain.ErrAlreadyAnswered
	}
	if q.Correct == "" {
		return Evaluation{}, domain.ErrMissingAnswerKey
	}

	answered := q
	answered.Options = make([]Option, len(q.Options))
	for i, opt := range q.Options {
		switch {
		case opt.Letter == q.Correct:
			opt.Status = StatusCorrect
		case opt.Letter == letter:
			opt.Status = StatusIncorrect
		default:
			opt.Status = StatusNormal
		}
		answered.Options[i] = opt
	}

	isCorrect := letter == q.Correct
	if isCorrect {
		answered.Feedback = CorrectFeedback
	} else {
		answered.Feedback = IncorrectFeedback(q.Correct)
	}
	answered.IsAnswered = true

	return Evaluation{
		Submitted: letter,
		IsCorrect: isCorrect,
		Question:  answered,
		Body:      Encode(answered),
	}, nil
}

// SubmittedLetter recovers which letter was chosen from an answered question:
// the option marked incorrect, or the correct one when nothing is marked wrong.
func SubmittedLetter(q Question) (string, bool) {
	if !q.IsAnswered {
		return "", false
	}
	correct := ""
	for _, opt := range q.Options {
		switch opt.Status {
		case StatusIncorrect:
			return opt.Letter, true
		case StatusCorrect:
			correct = opt.Letter
		}
	}
	if correct == "" {
		correct = q.Correct
	}
	return correct, correct != ""
}
