package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/tinyland-inc/verbsbot/cmd/verbsbot/internal"
	"github.com/tinyland-inc/verbsbot/pkg/intent"
)

const dryRunReply = "(dry run) Здравствуйте!"

func consoleCmd(dryRun bool, sessionID string) error {
	cfg, err := internal.ReadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if err := internal.SetupLogging(cfg.Log, false); err != nil {
		return fmt.Errorf("error configuring logging: %w", err)
	}

	var detector intent.Detector = intent.Static{Reply: dryRunReply}
	if !dryRun {
		cfg.VK.Enabled = false
		cfg.Telegram.Enabled = false
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		d, closeDetector, err := internal.NewDetector(context.Background(), cfg)
		if err != nil {
			return fmt.Errorf("error creating intent detector: %w", err)
		}
		defer closeDetector()
		detector = d
	}

	s := &session{detector: detector, id: sessionID, timeout: cfg.Intent.Timeout}

	fmt.Printf("%s Interactive mode (Ctrl+C to exit)\n\n", internal.Logo)
	s.interactiveMode()
	return nil
}

type session struct {
	detector intent.Detector
	id       string
	timeout  time.Duration
}

// respond returns the text to print for one input line.
func (s *session) respond(input string) string {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.detector.DetectIntent(ctx, s.id, input)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if res.IsFallback {
		return fmt.Sprintf("%s %s  [fallback, not sent to VK]", internal.Logo, res.Reply)
	}
	return fmt.Sprintf("%s %s", internal.Logo, res.Reply)
}

func (s *session) interactiveMode() {
	prompt := fmt.Sprintf("%s You: ", internal.Logo)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".verbsbot_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		s.simpleInteractiveMode(os.Stdin, os.Stdout)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return
		}

		fmt.Printf("\n%s\n\n", s.respond(input))
	}
}

func (s *session) simpleInteractiveMode(in io.Reader, out io.Writer) {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprintf(out, "%s You: ", internal.Logo)
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Fprintln(out, "Goodbye!")
			return
		}

		fmt.Fprintf(out, "\n%s\n\n", s.respond(input))
	}
}
