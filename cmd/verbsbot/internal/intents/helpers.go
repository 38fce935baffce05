package intents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/tinyland-inc/verbsbot/cmd/verbsbot/internal"
	"github.com/tinyland-inc/verbsbot/pkg/intent"
)

// Definition is one entry of the training file, keyed by intent display name.
type Definition struct {
	Questions []string `json:"questions"`
	Answer    string   `json:"answer"`
}

type trainer interface {
	CreateIntent(ctx context.Context, displayName string, questions, answers []string) error
}

func loadIntents(ctx context.Context, path string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	defs, err := readDefinitions(path)
	if err != nil {
		return err
	}

	cfg, err := internal.ReadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cfg.Dialogflow.ProjectID == "" {
		return errors.New("DIALOGFLOW__PROJECT_ID is required")
	}

	df, err := intent.NewDialogflow(ctx, internal.DialogflowConfig(cfg))
	if err != nil {
		return fmt.Errorf("error connecting to dialogflow: %w", err)
	}
	defer df.Close()

	n, err := train(ctx, df, defs, out)
	fmt.Fprintf(out, "%d of %d intents created\n", n, len(defs))
	return err
}

func readDefinitions(path string) (map[string]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading training file: %w", err)
	}
	var defs map[string]Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for name, def := range defs {
		if len(def.Questions) == 0 || def.Answer == "" {
			return nil, fmt.Errorf("intent %q: questions and answer are required", name)
		}
	}
	return defs, nil
}

// train creates intents in name order and stops at the first failure.
func train(ctx context.Context, t trainer, defs map[string]Definition, out io.Writer) (int, error) {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		def := defs[name]
		if err := t.CreateIntent(ctx, name, def.Questions, []string{def.Answer}); err != nil {
			return i, err
		}
		fmt.Fprintf(out, "✓ %s (%d questions)\n", name, len(def.Questions))
	}
	return len(names), nil
}
