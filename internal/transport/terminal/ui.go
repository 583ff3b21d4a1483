// Package terminal is a line-oriented front end for one App. It reads
// numbered choices from a reader and renders every screen as plain text.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"math-physical/internal/app"
	"math-physical/internal/domain"
	"math-physical/internal/view"
)

// errQuit ends the session from any prompt.
var errQuit = errors.New("quit")

type UI struct {
	app    *app.App
	in     *bufio.Scanner
	out    io.Writer
	delims []view.Delimiter
}

func New(a *app.App, in io.Reader, out io.Writer) *UI {
	return &UI{
		app:    a,
		in:     bufio.NewScanner(in),
		out:    out,
		delims: view.DefaultDelimiters,
	}
}

// Run drives the menu, lesson, quiz, result and ranking screens until the
// user quits or input ends.
func (u *UI) Run(ctx context.Context) error {
	defer u.app.Reset()
	for {
		err := u.round(ctx)
		if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
			u.println("Bye.")
			return nil
		}
		if err != nil {
			return err
		}
		u.app.Reset()
	}
}

// round plays one pass from the menu back to the menu.
func (u *UI) round(ctx context.Context) error {
	menu, err := u.menu(ctx)
	if err != nil {
		return err
	}
	sel, err := u.selection(menu)
	if err != nil {
		return err
	}

	article, err := u.app.Start(ctx, sel)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			u.printf("%v\n", err)
			return nil
		}
		return err
	}
	u.renderArticle(article)
	answer, err := u.prompt("Press Enter to begin the quiz, 'b' for the menu")
	if err != nil || answer == "b" {
		return err
	}

	q, err := u.app.BeginQuiz(ctx)
	if err != nil {
		u.printf("Could not start the quiz: %v\n", err)
		return nil
	}
	result, err := u.play(q)
	if err != nil {
		return err
	}
	return u.resultLoop(ctx, result)
}

func (u *UI) menu(ctx context.Context) (app.MenuView, error) {
	for {
		menu, err := u.app.LoadCatalog(ctx)
		if err == nil {
			return menu, nil
		}
		u.printf("Course list unavailable: %v\n", err)
		if _, err := u.prompt("Press Enter to retry"); err != nil {
			return app.MenuView{}, err
		}
	}
}

func (u *UI) selection(menu app.MenuView) (app.SelectionInput, error) {
	u.println("")
	u.println("== Math Physical ==")
	for {
		for i, course := range menu.Courses {
			u.printf("  %d. %s\n", i+1, course)
		}
		answer, err := u.prompt("Course number ('i' for info)")
		if err != nil {
			return app.SelectionInput{}, err
		}
		if answer == "i" {
			if err := u.info(menu.Panels); err != nil {
				return app.SelectionInput{}, err
			}
			continue
		}
		course, ok := pick(menu.Courses, answer)
		if !ok {
			u.println("Unknown course.")
			continue
		}

		topics, err := u.app.Topics(course)
		if err != nil {
			return app.SelectionInput{}, err
		}
		for i, topic := range topics {
			u.printf("  %d. %s\n", i+1, topic)
		}
		answer, err = u.prompt("Topic number")
		if err != nil {
			return app.SelectionInput{}, err
		}
		topic, ok := pick(topics, answer)
		if !ok {
			u.println("Unknown topic.")
			continue
		}

		answer, err = u.prompt(fmt.Sprintf("Questions %v (Enter for %d)", menu.CountOptions, menu.DefaultCount))
		if err != nil {
			return app.SelectionInput{}, err
		}
		count := 0
		if answer != "" {
			if count, err = strconv.Atoi(answer); err != nil {
				u.println("Not a number.")
				continue
			}
		}

		name, err := u.prompt("Your name")
		if err != nil {
			return app.SelectionInput{}, err
		}
		return app.SelectionInput{Name: name, Course: course, Topic: topic, Count: count}, nil
	}
}

func (u *UI) info(ids []string) error {
	answer, err := u.prompt("Panel (" + strings.Join(ids, ", ") + ")")
	if err != nil {
		return err
	}
	panel, err := u.app.ShowInfo(answer)
	if err != nil {
		u.printf("%v\n", err)
		return nil
	}
	u.printf("\n-- %s --\n%s\n\n", panel.Title, view.HTMLText(panel.Body))
	return nil
}

func (u *UI) renderArticle(article app.ArticleView) {
	u.printf("\n== %s ==\n", article.Title)
	switch article.Status {
	case app.ArticleReady:
		u.println(view.PlainMath(view.HTMLText(article.HTML), u.delims))
	case app.ArticleMissing:
		u.println("No lesson text for this topic.")
	default:
		u.println("The lesson text could not be loaded.")
	}
}

func (u *UI) play(q app.QuestionView) (app.ResultView, error) {
	for {
		u.printf("\nQuestion %d/%d %s  [%s]\n", q.Position, q.Total, progressBar(q.Progress, 20), u.app.Clock())
		u.println(view.PlainMath(q.Text, u.delims))
		for i, choice := range q.Choices {
			u.printf("  %d. %s\n", i+1, view.PlainMath(choice, u.delims))
		}
		answer, err := u.prompt("Answer")
		if err != nil {
			return app.ResultView{}, err
		}
		choice, ok := pickIndex(len(q.Choices), answer)
		if !ok {
			u.println("Pick one of the numbers above.")
			continue
		}

		out, err := u.app.Answer(choice)
		if err != nil {
			return app.ResultView{}, err
		}
		if out.Correct {
			u.println("Correct!")
		} else {
			u.println("Wrong.")
		}
		if out.Finished {
			return *out.Result, nil
		}
		q = *out.Next
	}
}

func (u *UI) resultLoop(ctx context.Context, result app.ResultView) error {
	for {
		u.printf("\n== Result: %s ==\nScore %d/%d in %s s\n", result.Meta, result.Score, result.Total, result.Seconds)
		answer, err := u.prompt("'s' save score, 'r' ranking, 'm' menu")
		if err != nil {
			return err
		}
		switch answer {
		case "s":
			if err := u.saveScore(ctx); err != nil {
				return err
			}
		case "r":
			if err := u.ranking(ctx); err != nil {
				return err
			}
			if result, err = u.app.BackToResult(); err != nil {
				return err
			}
		case "m":
			return nil
		}
	}
}

// saveScore only fails when the name prompt ends the program.
func (u *UI) saveScore(ctx context.Context) error {
	name := ""
	if sel, ok := u.app.Selection(); ok {
		name = sel.StudentName
	}
	answer, err := u.prompt(fmt.Sprintf("Name for the ranking (Enter for %q)", name))
	if err != nil {
		return err
	}
	if answer != "" {
		name = answer
	}
	if err := u.app.SaveScore(ctx, name); err != nil {
		u.printf("Score not saved: %v\n", err)
		return nil
	}
	u.println("Score saved.")
	return nil
}

func (u *UI) ranking(ctx context.Context) error {
	rv, err := u.app.ShowRanking(ctx)
	if err != nil {
		return err
	}
	u.printf("\n== Ranking: %s ==\n", rv.Title)
	switch rv.Status {
	case app.RankingEmpty:
		u.println("No scores yet.")
	case app.RankingFailed:
		u.printf("Ranking unavailable: %s\n", rv.Error)
	default:
		for _, e := range rv.Entries {
			u.printf("%3d. %-20s %d/%d  %.2f s\n", e.Rank, e.Name, e.Score, e.QuestionCount, e.TimeSeconds)
		}
	}
	_, err = u.prompt("Press Enter to return")
	return err
}

// prompt reads one trimmed line. "q" and end of input both quit.
func (u *UI) prompt(label string) (string, error) {
	u.printf("%s: ", label)
	if !u.in.Scan() {
		if err := u.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	line := strings.TrimSpace(u.in.Text())
	if line == "q" {
		return "", errQuit
	}
	return line, nil
}

func (u *UI) printf(format string, args ...any) {
	fmt.Fprintf(u.out, format, args...)
}

func (u *UI) println(s string) {
	fmt.Fprintln(u.out, s)
}

func pick(options []string, answer string) (string, bool) {
	i, ok := pickIndex(len(options), answer)
	if !ok {
		return "", false
	}
	return options[i], true
}

// pickIndex turns a 1-based menu number into a position among n options.
func pickIndex(n int, answer string) (int, bool) {
	v, err := strconv.Atoi(answer)
	if err != nil || v < 1 || v > n {
		return 0, false
	}
	return v - 1, true
}

func progressBar(progress float64, width int) string {
	filled := int(progress * float64(width))
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
