package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"elearn"

	"github.com/joho/godotenv"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: elearn [flags] <command> [args]

Commands:
  login              Sign in and store the session locally
  logout             Sign out and clear the stored session
  whoami             Show the signed-in user
  dashboard          Show dashboard metrics and enrolled courses
  courses            List the course catalog
  course <id>        Show one course with its lessons
  quiz <course-id>   Generate a practice quiz and answer it interactively
  history            Show recent quiz results (local cache first)

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	var (
		configPath = flag.String("config", ".", "Directory containing config.yaml")
		role       = flag.String("role", "student", "Role to sign in as (student, instructor, admin)")
		verbose    = flag.Bool("verbose", false, "Enable verbose debugging output")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	// A local .env is a convenience; absence is fine.
	godotenv.Load()

	cfg, err := elearn.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	elearn.InitLogger(cfg.Log.File, *verbose || cfg.Log.Verbose)

	store, err := elearn.OpenLocalStore(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}
	defer store.Close()

	client := elearn.NewClient(cfg.API.BaseURL, &http.Client{Timeout: cfg.API.Timeout()})
	sessions := elearn.NewSessionStore(client, store)

	app := &cli{
		cfg:      cfg,
		client:   client,
		sessions: sessions,
		store:    store,
		stdin:    bufio.NewReader(os.Stdin),
	}

	ctx := context.Background()
	command := flag.Arg(0)

	if err := app.run(ctx, command, flag.Args()[1:], elearn.Role(*role)); err != nil {
		log.Fatalf("%v", err)
	}
}

type cli struct {
	cfg      *elearn.Config
	client   *elearn.Client
	sessions *elearn.SessionStore
	store    *elearn.LocalStore
	stdin    *bufio.Reader
}

func (a *cli) run(ctx context.Context, command string, args []string, role elearn.Role) error {
	switch command {
	case "login":
		return a.login(ctx, role)
	case "logout":
		a.sessions.Logout(ctx)
		fmt.Println("Signed out.")
		return nil
	case "whoami":
		sess, err := a.requireSession(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s <%s> (%s)\n", sess.DisplayName(), sess.User.Email, sess.User.Role)
		return nil
	case "dashboard":
		return a.dashboard(ctx)
	case "courses":
		return a.courses(ctx)
	case "course":
		if len(args) == 0 {
			return fmt.Errorf("course requires a course id")
		}
		return a.course(ctx, args[0])
	case "quiz":
		if len(args) == 0 {
			return fmt.Errorf("quiz requires a course id")
		}
		return a.quiz(ctx, args[0])
	case "history":
		return a.history(ctx)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *cli) requireSession(ctx context.Context) (*elearn.Session, error) {
	sess, err := a.sessions.Hydrate(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("not signed in; run `elearn login` first")
	}
	if err := a.sessions.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

func (a *cli) prompt(label string) string {
	fmt.Print(label)
	line, _ := a.stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

func (a *cli) login(ctx context.Context, role elearn.Role) error {
	email := a.prompt("Email: ")
	password := a.prompt("Password: ")

	form := elearn.LoginForm{Email: email, Password: password, Role: role}
	if err := form.Validate(); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}

	sess, err := a.sessions.Login(ctx, email, password, role)
	if err != nil {
		return err
	}
	fmt.Printf("Welcome back, %s!\n", sess.DisplayName())
	return nil
}

func (a *cli) dashboard(ctx context.Context) error {
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	metrics, err := a.client.DashboardMetrics(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Enrolled courses:  %d\n", metrics.EnrolledCourses)
	fmt.Printf("Lessons completed: %d\n", metrics.LessonsCompleted)
	fmt.Printf("Quizzes taken:     %d\n", metrics.QuizzesTaken)
	fmt.Printf("Average score:     %.0f%%\n", metrics.AverageScore)

	courses, err := a.client.StudentCourses(ctx)
	if err != nil {
		return err
	}
	if len(courses) > 0 {
		fmt.Println("\nYour courses:")
		for _, c := range courses {
			fmt.Printf("  %-12s %s (%s)\n", c.ID, c.Title, elearn.FormatDuration(c.Duration))
		}
	}
	return nil
}

func (a *cli) courses(ctx context.Context) error {
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	page, err := a.client.Courses(ctx, 1, 20)
	if err != nil {
		return err
	}
	if len(page.Items) == 0 {
		fmt.Println("No courses available.")
		return nil
	}
	for _, c := range page.Items {
		fmt.Printf("%-12s %-40s %s, %s\n", c.ID, elearn.TruncateText(c.Title, 40), c.Difficulty, elearn.FormatDuration(c.Duration))
	}
	fmt.Printf("\nPage %d of %d courses\n", page.Page, page.Total)
	return nil
}

func (a *cli) course(ctx context.Context, id string) error {
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	course, err := a.client.Course(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n%s\n\n", course.Title, course.Description)
	for _, l := range course.Lessons {
		done := " "
		if l.IsCompleted {
			done = "x"
		}
		fmt.Printf("  [%s] %2d. %s (%s)\n", done, l.Order, l.Title, elearn.FormatDuration(l.Duration))
	}

	progress, err := a.client.CourseProgress(ctx, id)
	if err == nil {
		pct := elearn.CalculateProgress(progress.CompletedLessons, progress.TotalLessons)
		fmt.Printf("\nProgress: %d%% (%d/%d lessons)\n", pct, progress.CompletedLessons, progress.TotalLessons)
	}
	return nil
}

func (a *cli) history(ctx context.Context) error {
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	entries, err := a.store.RecentQuizzes(10)
	if err != nil || len(entries) == 0 {
		entries, err = a.client.QuizHistory(ctx)
		if err != nil {
			return err
		}
	}
	if len(entries) == 0 {
		entries = elearn.DemoQuizHistory()
		fmt.Println("(no recorded quizzes yet; showing sample data)")
	}
	for _, e := range entries {
		fmt.Printf("%-30s %3d%%  %s\n", elearn.TruncateText(e.Title, 30), e.Score, e.TakenAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// quiz runs the full generation workflow interactively: lesson
// selection and configuration, generation, then per-question
// answer/check/reveal until done.
func (a *cli) quiz(ctx context.Context, courseID string) error {
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	courseTitle := courseID
	var lessons []elearn.LessonRef
	if course, err := a.client.Course(ctx, courseID); err == nil {
		courseTitle = course.Title
		for i, l := range course.Lessons {
			lessons = append(lessons, elearn.LessonRef{ID: l.ID, Title: l.Title, IsCurrent: i == 0})
		}
	}

	flow := elearn.NewQuizFlow(a.client, courseID, lessons)
	if a.cfg.AI.APIKey != "" {
		flow.SetFallbackGenerator(elearn.NewOfflineGenerator(a.cfg.AI.APIKey, a.cfg.AI.Model))
	}
	flow.OnCelebration(func(c elearn.Celebration) {
		fmt.Printf("\n*** %s ***\n", c.Message)
	})

	transcript, err := elearn.NewTranscript(a.cfg.Web.TranscriptDir, elearn.NewID())
	if err == nil {
		flow.SetTranscript(transcript)
		defer transcript.Close()
	}

	if err := a.setup(flow); err != nil {
		return err
	}

	fmt.Println("\nGenerating quiz...")
	if err := flow.Generate(ctx); err != nil {
		return err
	}

	questions := flow.Questions()
	for i, q := range questions {
		a.askQuestion(ctx, flow, i+1, len(questions), q)
	}

	correct, total := flow.Score()
	fmt.Printf("\nFinal score: %d/%d\n", correct, total)

	if err := a.store.RecordQuizResult(flow.HistoryEntry(courseTitle)); err != nil {
		elearn.Log.Warn("failed to record quiz result: " + err.Error())
	}
	return nil
}

func (a *cli) setup(flow *elearn.QuizFlow) error {
	for {
		lessons := flow.Lessons()
		fmt.Println("\nLessons:")
		for i, l := range lessons {
			mark := " "
			if flow.IsSelected(l.ID) {
				mark = "x"
			}
			label := ""
			if l.IsCurrent {
				label = " (current lesson)"
			}
			fmt.Printf("  [%s] %d. %s%s\n", mark, i+1, l.Title, label)
		}
		difficulty, questionType := flow.Config()
		fmt.Printf("Difficulty: %s  Type: %s\n", difficulty, questionType)
		input := a.prompt("Toggle lesson number, [d]ifficulty, [t]ype, [g]enerate: ")

		switch input {
		case "g", "":
			return nil
		case "d":
			switch a.prompt("Difficulty (easy/medium/hard): ") {
			case "easy":
				flow.SetDifficulty(elearn.DifficultyEasy)
			case "hard":
				flow.SetDifficulty(elearn.DifficultyHard)
			default:
				flow.SetDifficulty(elearn.DifficultyMedium)
			}
		case "t":
			switch a.prompt("Type (multiple_choice/short_answer/mixed): ") {
			case "multiple_choice":
				flow.SetQuestionType(elearn.TypeMultipleChoice)
			case "short_answer":
				flow.SetQuestionType(elearn.TypeShortAnswer)
			default:
				flow.SetQuestionType(elearn.TypeMixed)
			}
		default:
			if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(lessons) {
				flow.ToggleLesson(lessons[n-1].ID)
			}
		}
	}
}

func (a *cli) askQuestion(ctx context.Context, flow *elearn.QuizFlow, num, total int, q elearn.Question) {
	fmt.Printf("\nQuestion %d/%d: %s\n", num, total, q.Text)
	if q.Type == elearn.TypeMultipleChoice {
		for i, opt := range q.Options {
			fmt.Printf("  %d. %s\n", i+1, opt)
		}
	}

	for {
		input := a.prompt("Answer ([c]heck, [r]eveal, [s]kip): ")
		switch input {
		case "s":
			return
		case "r":
			fb, err := flow.Reveal(ctx, q.ID)
			if err != nil || fb == nil {
				fmt.Println("Could not reveal the answer.")
				continue
			}
			fmt.Printf("Correct answer: %s\n", fb.CorrectAnswer)
			if fb.Explanation != "" {
				fmt.Printf("Explanation: %s\n", fb.Explanation)
			}
		case "c":
			fb, err := flow.Check(ctx, q.ID)
			if err != nil || fb == nil {
				fmt.Println("Could not check the answer.")
				continue
			}
			if fb.IsCorrect != nil && *fb.IsCorrect {
				fmt.Println("Correct!")
				return
			}
			fmt.Println("Not quite.")
			if fb.Explanation != "" {
				fmt.Printf("Hint: %s\n", fb.Explanation)
			}
		default:
			if q.Type == elearn.TypeMultipleChoice {
				// Accept an option number as the answer.
				if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(q.Options) {
					input = q.Options[n-1]
				}
			}
			flow.SetAnswer(q.ID, input)
			fmt.Printf("Recorded: %s\n", input)
		}
	}
}
