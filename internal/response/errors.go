package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"
	ErrCredentialRejected ErrCode = "CREDENTIAL_REJECTED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Quiz sessions ─────────────────────────────────────────────────
	ErrNoQuestions        ErrCode = "NO_QUESTIONS"
	ErrNoChapterSelected  ErrCode = "NO_CHAPTER_SELECTED"
	ErrSessionNotFound    ErrCode = "SESSION_NOT_FOUND"
	ErrSessionNotActive   ErrCode = "SESSION_NOT_ACTIVE"
	ErrQuizNotStarted     ErrCode = "QUIZ_NOT_STARTED"
	ErrAnswerRequired     ErrCode = "ANSWER_REQUIRED"
	ErrPositionOutOfRange ErrCode = "POSITION_OUT_OF_RANGE"
	ErrSubmitInFlight     ErrCode = "SUBMIT_IN_FLIGHT"
	ErrScoreNotFound      ErrCode = "SCORE_NOT_FOUND"

	// ─── Upstream ──────────────────────────────────────────────────────
	ErrUpstream ErrCode = "UPSTREAM_ERROR"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Username or password is incorrect."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is not valid."
	case ErrTokenExpired:
		return "The authentication token has expired."
	case ErrCredentialRejected:
		return "Your credential was rejected. Please log in again."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is not valid."
	case ErrInvalidPayload:
		return "The request payload is not valid."

	// ─── Quiz sessions ─────────────────────────────────────────────────
	case ErrNoQuestions:
		return "No questions are available for this quiz."
	case ErrNoChapterSelected:
		return "No chapter has been selected."
	case ErrSessionNotFound:
		return "The quiz session was not found."
	case ErrSessionNotActive:
		return "The quiz session is not accepting answers."
	case ErrQuizNotStarted:
		return "The quiz has not started yet."
	case ErrAnswerRequired:
		return "Select an answer before moving on."
	case ErrPositionOutOfRange:
		return "The requested question position does not exist."
	case ErrSubmitInFlight:
		return "A submission is already in progress."
	case ErrScoreNotFound:
		return "No score is available to display."

	// ─── Upstream ──────────────────────────────────────────────────────
	case ErrUpstream:
		return "The exam service could not be reached."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrNotFound:
		return "The resource was not found."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
