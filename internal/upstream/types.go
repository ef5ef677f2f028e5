package upstream

// Wire shapes of the external exam API. The nested question structures are
// flattened into quiz.Question lists by paper.go; everything else passes
// through mostly untouched.

// RegisterRequest is the signup payload forwarded to POST /api/register.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FacultyID int    `json:"faculty_id"`
}

// TokenResponse is the body of POST /api/token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// Chapter is one entry of GET /allchapters.
type Chapter struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Faculty is one entry of GET /faculty.
type Faculty struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CreateFacultyRequest is the admin payload for POST /faculty.
type CreateFacultyRequest struct {
	Name string `json:"name"`
}

// CreateChapterRequest is the admin payload for POST /chapter.
type CreateChapterRequest struct {
	Name string `json:"name"`
}

// CreateSubchapterRequest is the admin payload for POST /subchapter.
type CreateSubchapterRequest struct {
	ChapterID int    `json:"chapter_id"`
	Name      string `json:"name"`
}

// LinkFacultyChaptersRequest is the admin payload for POST /faculty-chapters.
type LinkFacultyChaptersRequest struct {
	FacultyID  int   `json:"faculty_id"`
	ChapterIDs []int `json:"chapter_ids"`
}

// answerRequest is the body of the per-flavor answer endpoints. The answer
// index is 1-based; 0 is the reserved skip sentinel. chapter_id is sent for
// the chapter flavor only.
type answerRequest struct {
	QuestionID  int `json:"question_id"`
	AnswerIndex int `json:"answer_index"`
	ChapterID   int `json:"chapter_id,omitempty"`
}

// wireQuestion is a single question as emitted inside the nested supply
// structures. The correct answer is decoded but deliberately dropped during
// flattening.
type wireQuestion struct {
	ID            int               `json:"id"`
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer int               `json:"correct_answer"`
	Level         string            `json:"level,omitempty"`
}

// facultyQuestionsResponse is the shape of GET /practisetest/questions and
// GET /mockexam/questions: levels keyed by name, each holding chapters
// whose "subchapters" array carries the questions directly.
type facultyQuestionsResponse struct {
	Questions map[string][]facultyChapter `json:"questions"`
}

type facultyChapter struct {
	Subchapters []wireQuestion `json:"subchapters"`
}

// chapterQuestionsResponse is the shape of GET /practise/chapters: proper
// subchapters with their own question arrays, plus the active upstream
// session carrying the authoritative end time ("HH:MM:SS").
type chapterQuestionsResponse struct {
	Subchapters []chapterSubchapter `json:"subchapters"`
	Session     chapterSession      `json:"session"`
}

type chapterSubchapter struct {
	Questions []wireQuestion `json:"questions"`
}

type chapterSession struct {
	EndTime string `json:"end_time"`
}
