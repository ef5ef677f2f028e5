// quizctl is an interactive terminal client for the QuizGate API. It logs a
// learner in, runs a quiz session from the shell and renders the final
// score, which makes it handy for smoke-testing a deployment end to end.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

func main() {
	server := flag.String("server", envOr("QUIZGATE_URL", "http://localhost:8080"), "QuizGate base URL")
	flavor := flag.String("flavor", "practice", "quiz flavor: practice, mock or chapter")
	flag.Parse()

	cli := &client{base: strings.TrimRight(*server, "/"), http: &http.Client{Timeout: 30 * time.Second}}
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== QuizGate Terminal Client ===")

	// ─── Login ─────────────────────────────────────────────────────────
	fmt.Print("Username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fatal("could not read password: %v", err)
	}

	if err := cli.login(username, string(bytePassword)); err != nil {
		fatal("login failed: %v", err)
	}
	color.Green("Logged in.")

	// ─── Chapter Selection ─────────────────────────────────────────────
	if *flavor == "chapter" {
		if err := selectChapter(cli, reader); err != nil {
			fatal("chapter selection failed: %v", err)
		}
	}

	// ─── Start Session ─────────────────────────────────────────────────
	view, err := cli.startQuiz(*flavor)
	if err != nil {
		fatal("could not start quiz: %v", err)
	}
	color.Cyan("Session %s started: %d questions.", view.SessionID, view.QuestionCount)

	// ─── Countdown ─────────────────────────────────────────────────────
	for view.State == "COUNTDOWN" {
		fmt.Printf("\rStarting in %d...", view.CountdownRemaining)
		time.Sleep(time.Second)
		if view, err = cli.sessionView(view.SessionID); err != nil {
			fatal("lost session: %v", err)
		}
	}
	fmt.Println()

	// ─── Question Loop ─────────────────────────────────────────────────
	if view, err = runQuiz(cli, reader, view); err != nil {
		fatal("%v", err)
	}

	if view.State == "SCORED" {
		showScore(cli, *flavor)
	}
}

func selectChapter(cli *client, reader *bufio.Reader) error {
	chapters, err := cli.chapters()
	if err != nil {
		return err
	}
	fmt.Println("Chapters:")
	for _, ch := range chapters {
		fmt.Printf("  %d. %s\n", ch.ID, ch.Name)
	}

	fmt.Print("Chapter ID: ")
	raw, _ := reader.ReadString('\n')
	chapterID, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("not a number: %q", strings.TrimSpace(raw))
	}
	return cli.selectChapter(chapterID)
}

func runQuiz(cli *client, reader *bufio.Reader, view *sessionView) (*sessionView, error) {
	for view.State == "ACTIVE" {
		printQuestion(view)

		fmt.Print("> ")
		raw, _ := reader.ReadString('\n')
		input := strings.TrimSpace(raw)

		var err error
		switch {
		case input == "n":
			view, err = cli.action(view.SessionID, "next", nil)
		case input == "p":
			view, err = cli.action(view.SessionID, "previous", nil)
		case input == "s":
			view, err = cli.action(view.SessionID, "skip", nil)
		case input == "f":
			view, err = cli.action(view.SessionID, "submit", nil)
		case input == "q":
			return view, fmt.Errorf("quit without submitting")
		case input == "h" || input == "":
			fmt.Println("Commands: 1..N select option, n next, p previous, s skip, f finish, q quit")
			continue
		default:
			option, convErr := strconv.Atoi(input)
			if convErr != nil {
				color.Yellow("Unknown command %q (h for help).", input)
				continue
			}
			view, err = cli.action(view.SessionID, "answer", map[string]int{"option": option})
		}
		if err != nil {
			color.Red("%v", err)
			if view, err = cli.sessionView(view.SessionID); err != nil {
				return nil, err
			}
		}
	}

	if view.State == "ERROR" {
		return view, fmt.Errorf("session failed: %s", view.Error)
	}

	// SUBMITTING resolves server-side; poll briefly until it settles.
	for view.State == "SUBMITTING" {
		time.Sleep(500 * time.Millisecond)
		var err error
		if view, err = cli.sessionView(view.SessionID); err != nil {
			return nil, err
		}
	}
	return view, nil
}

func printQuestion(view *sessionView) {
	fmt.Println()
	header := fmt.Sprintf("Question %d/%d", view.Position+1, view.QuestionCount)
	if view.RemainingSeconds > 0 {
		header += fmt.Sprintf("  [%s left]", (time.Duration(view.RemainingSeconds) * time.Second).String())
	}
	color.Cyan(header)

	if view.Question != nil {
		fmt.Println(view.Question.Prompt)
		for i, option := range view.Question.Options {
			marker := " "
			if view.Recorded != nil && *view.Recorded == i+1 {
				marker = color.GreenString("*")
			}
			fmt.Printf(" %s %d. %s\n", marker, i+1, option)
		}
	}
	if view.Recorded != nil && *view.Recorded == 0 {
		color.Yellow("  (marked as skipped)")
	}
}

func showScore(cli *client, flavor string) {
	score, err := cli.score(flavor)
	if err != nil {
		fatal("could not fetch score: %v", err)
	}

	fmt.Println()
	color.Cyan("Total score: %.1f", score.TotalScore)
	for i, q := range score.Questions {
		var status string
		switch q.Status {
		case "Correct":
			status = color.GreenString(q.Status)
		case "Skipped":
			status = color.YellowString(q.Status)
		default:
			status = color.RedString(q.Status)
		}
		fmt.Printf("%2d. %-10s %s\n", i+1, status, q.Question)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(format string, args ...interface{}) {
	color.Red(format, args...)
	os.Exit(1)
}

// ─── HTTP Client ───────────────────────────────────────────────────────

// envelope mirrors the gateway's response shape.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type sessionView struct {
	SessionID          string `json:"session_id"`
	State              string `json:"state"`
	Position           int    `json:"position"`
	QuestionCount      int    `json:"question_count"`
	CountdownRemaining int    `json:"countdown_remaining"`
	RemainingSeconds   int    `json:"remaining_seconds"`
	Error              string `json:"error"`
	Question           *struct {
		Prompt  string   `json:"question"`
		Options []string `json:"options"`
	} `json:"current_question"`
	Recorded *int `json:"recorded_answer"`
}

type chapter struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type scoreView struct {
	TotalScore float64 `json:"total_score"`
	Questions  []struct {
		Question string `json:"question"`
		Status   string `json:"status"`
	} `json:"questions"`
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func (c *client) login(username, password string) error {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := c.call(http.MethodPost, "/api/v1/auth/login",
		map[string]string{"username": username, "password": password}, &out)
	if err != nil {
		return err
	}
	c.token = out.AccessToken
	return nil
}

func (c *client) chapters() ([]chapter, error) {
	var out struct {
		Chapters []chapter `json:"chapters"`
	}
	if err := c.call(http.MethodGet, "/api/v1/chapters", nil, &out); err != nil {
		return nil, err
	}
	return out.Chapters, nil
}

func (c *client) selectChapter(chapterID int) error {
	return c.call(http.MethodPost, "/api/v1/chapters/select", map[string]int{"chapter_id": chapterID}, nil)
}

func (c *client) startQuiz(flavor string) (*sessionView, error) {
	var view sessionView
	if err := c.call(http.MethodPost, "/api/v1/quiz/"+flavor+"/start", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *client) sessionView(sessionID string) (*sessionView, error) {
	var view sessionView
	if err := c.call(http.MethodGet, "/api/v1/quiz/sessions/"+sessionID, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *client) action(sessionID, action string, body interface{}) (*sessionView, error) {
	var view sessionView
	if err := c.call(http.MethodPost, "/api/v1/quiz/sessions/"+sessionID+"/"+action, body, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *client) score(flavor string) (*scoreView, error) {
	var score scoreView
	if err := c.call(http.MethodGet, "/api/v1/quiz/"+flavor+"/score", nil, &score); err != nil {
		return nil, err
	}
	return &score, nil
}

func (c *client) call(method, path string, body, out interface{}) error {
	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.base+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("bad response (%d): %w", resp.StatusCode, err)
	}
	if env.Error != nil {
		return fmt.Errorf("%s: %s", env.Error.Code, env.Error.Message)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
