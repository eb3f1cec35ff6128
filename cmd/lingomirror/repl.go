package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MrWong99/lingomirror/internal/coach"
	"github.com/MrWong99/lingomirror/internal/config"
	"github.com/MrWong99/lingomirror/internal/session"
)

const replHelp = `Commands:
  /persona <name>   switch persona (clears the conversation)
  /personas         list available personas
  /hint             suggest what you could say next
  /new              start the conversation over
  /stats            show your score statistics
  /say <file.wav>   submit a spoken utterance from a recording
  /quit             exit
Anything else is sent to the coach as your utterance.`

// repl runs the interactive loop until stdin closes, /quit, or ctx cancels.
func repl(ctx context.Context, c *coach.Coach, coachCfg config.CoachConfig) error {
	fmt.Printf("Speaking as %q. Type /help for commands.\n", c.Session().Persona())

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Print("you> ")
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Println()
			return ctx.Err()
		case line, ok = <-lines:
			if !ok {
				fmt.Println()
				return nil
			}
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if cmd, arg, isCmd := parseCommand(line); isCmd {
			switch cmd {
			case "quit", "exit":
				return nil
			case "help":
				fmt.Println(replHelp)
			case "personas":
				for _, p := range coachCfg.Personas {
					fmt.Printf("  - %s\n", p.Name)
				}
			case "persona":
				switchPersona(c, coachCfg, arg)
			case "hint":
				fmt.Printf("hint> %s\n", c.Hint(ctx))
			case "new":
				c.Session().Clear()
				fmt.Println("Conversation cleared.")
			case "stats":
				printStats(c.Session())
			case "say":
				sayRecording(ctx, c, arg)
			default:
				fmt.Printf("Unknown command %q. Type /help for commands.\n", cmd)
			}
			continue
		}

		turn, err := c.RespondText(ctx, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		printTurn(turn)
	}
}

// parseCommand splits a "/cmd arg..." line. Returns isCmd false for plain
// utterances.
func parseCommand(line string) (cmd, arg string, isCmd bool) {
	if !strings.HasPrefix(line, "/") {
		return "", "", false
	}
	cmd, arg, _ = strings.Cut(strings.TrimPrefix(line, "/"), " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg), true
}

func switchPersona(c *coach.Coach, coachCfg config.CoachConfig, name string) {
	if name == "" {
		fmt.Printf("Current persona: %q\n", c.Session().Persona())
		return
	}
	for _, p := range coachCfg.Personas {
		if strings.EqualFold(p.Name, name) {
			c.SetPersona(personaPrompt(p))
			fmt.Printf("Now speaking as %q. The conversation starts over.\n", p.Name)
			return
		}
	}
	fmt.Printf("Unknown persona %q. Use /personas to list them.\n", name)
}

func sayRecording(ctx context.Context, c *coach.Coach, path string) {
	if path == "" {
		fmt.Println("Usage: /say <file.wav>")
		return
	}
	audio, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	turn, err := c.RespondAudio(ctx, audio)
	if errors.Is(err, coach.ErrNoSpeech) {
		fmt.Println("Couldn't make out any speech in that recording. Try again.")
		return
	}
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if you := userTurnBefore(c.Session()); you != "" {
		fmt.Printf("(heard: %q)\n", you)
	}
	printTurn(turn)
}

// userTurnBefore returns the display text of the latest user turn, i.e. what
// the transcriber heard.
func userTurnBefore(s *session.Session) string {
	turns := s.Turns()
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == session.RoleUser {
			return turns[i].DisplayText
		}
	}
	return ""
}

func printTurn(turn session.Turn) {
	label := "coach"
	if turn.IsFeedback {
		label = "feedback"
	}
	fmt.Printf("%s> %s\n", label, turn.DisplayText)
	fmt.Printf("      score: %d/100\n", turn.Score)
	if len(turn.Audio) > 0 {
		fmt.Printf("      (audio clip, %d bytes)\n", len(turn.Audio))
	}
}

func printStats(s *session.Session) {
	stats := s.Stats()
	if stats.Turns == 0 {
		fmt.Println("No scored turns yet.")
		return
	}
	fmt.Printf("Turns: %d  Mean: %.1f  Best: %d  Worst: %d  Latest: %d\n",
		stats.Turns, stats.Mean, stats.Best, stats.Worst, stats.Latest)

	fmt.Print("Trend: ")
	for i, score := range s.ScoreTrend() {
		if i > 0 {
			fmt.Print(" ")
		}
		fmt.Print(score)
	}
	fmt.Println()

	if points := s.ScatterPoints(); len(points) > 0 {
		fmt.Println("Complexity vs score:")
		for _, p := range points {
			fmt.Printf("  %5.2f -> %3d\n", p.Complexity, p.Score)
		}
	}
}
