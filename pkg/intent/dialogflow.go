package intent

import (
	"context"
	"errors"
	"fmt"
	"os"

	dialogflow "cloud.google.com/go/dialogflow/apiv2"
	"cloud.google.com/go/dialogflow/apiv2/dialogflowpb"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/grpc/status"
)

const defaultLanguageCode = "ru"

type DialogflowConfig struct {
	ProjectID       string
	LanguageCode    string
	CredentialsFile string
}

type (
	detectIntentFunc func(context.Context, *dialogflowpb.DetectIntentRequest) (*dialogflowpb.DetectIntentResponse, error)
	createIntentFunc func(context.Context, *dialogflowpb.CreateIntentRequest) (*dialogflowpb.Intent, error)
)

// Dialogflow detects intents with a Dialogflow ES agent and can train it with new intents.
type Dialogflow struct {
	cfg          DialogflowConfig
	detect       detectIntentFunc
	createIntent createIntentFunc
	closers      []func() error
}

// NewDialogflow dials the sessions and intents services. Without a credentials
// file the application default credentials are used.
func NewDialogflow(ctx context.Context, cfg DialogflowConfig) (*Dialogflow, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("dialogflow project id is required")
	}

	opts, err := clientOptions(ctx, cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	sessions, err := dialogflow.NewSessionsClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating dialogflow sessions client: %w", err)
	}
	intents, err := dialogflow.NewIntentsClient(ctx, opts...)
	if err != nil {
		sessions.Close()
		return nil, fmt.Errorf("creating dialogflow intents client: %w", err)
	}

	d := newDialogflow(cfg,
		func(ctx context.Context, req *dialogflowpb.DetectIntentRequest) (*dialogflowpb.DetectIntentResponse, error) {
			return sessions.DetectIntent(ctx, req)
		},
		func(ctx context.Context, req *dialogflowpb.CreateIntentRequest) (*dialogflowpb.Intent, error) {
			return intents.CreateIntent(ctx, req)
		},
	)
	d.closers = []func() error{sessions.Close, intents.Close}
	return d, nil
}

func newDialogflow(cfg DialogflowConfig, detect detectIntentFunc, create createIntentFunc) *Dialogflow {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = defaultLanguageCode
	}
	return &Dialogflow{cfg: cfg, detect: detect, createIntent: create}
}

func clientOptions(ctx context.Context, credentialsFile string) ([]option.ClientOption, error) {
	if credentialsFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading dialogflow credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, dialogflow.DefaultAuthScopes()...)
	if err != nil {
		return nil, fmt.Errorf("parsing dialogflow credentials: %w", err)
	}
	return []option.ClientOption{option.WithCredentials(creds)}, nil
}

func (d *Dialogflow) sessionPath(sessionID string) string {
	return fmt.Sprintf("projects/%s/agent/sessions/%s", d.cfg.ProjectID, sessionID)
}

func (d *Dialogflow) agentPath() string {
	return fmt.Sprintf("projects/%s/agent", d.cfg.ProjectID)
}

func (d *Dialogflow) DetectIntent(ctx context.Context, sessionID, text string) (Result, error) {
	req := &dialogflowpb.DetectIntentRequest{
		Session: d.sessionPath(sessionID),
		QueryInput: &dialogflowpb.QueryInput{
			Input: &dialogflowpb.QueryInput_Text{
				Text: &dialogflowpb.TextInput{
					Text:         text,
					LanguageCode: d.cfg.LanguageCode,
				},
			},
		},
	}

	resp, err := d.detect(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("dialogflow detect intent (%s): %w", status.Code(err), err)
	}

	qr := resp.GetQueryResult()
	return Result{
		Reply:      qr.GetFulfillmentText(),
		IsFallback: qr.GetIntent().GetIsFallback(),
	}, nil
}

// CreateIntent registers an intent trained on questions that answers with answers.
func (d *Dialogflow) CreateIntent(ctx context.Context, displayName string, questions, answers []string) error {
	phrases := make([]*dialogflowpb.Intent_TrainingPhrase, 0, len(questions))
	for _, q := range questions {
		phrases = append(phrases, &dialogflowpb.Intent_TrainingPhrase{
			Parts: []*dialogflowpb.Intent_TrainingPhrase_Part{{Text: q}},
		})
	}

	req := &dialogflowpb.CreateIntentRequest{
		Parent: d.agentPath(),
		Intent: &dialogflowpb.Intent{
			DisplayName:     displayName,
			TrainingPhrases: phrases,
			Messages: []*dialogflowpb.Intent_Message{{
				Message: &dialogflowpb.Intent_Message_Text_{
					Text: &dialogflowpb.Intent_Message_Text{Text: answers},
				},
			}},
		},
	}

	if _, err := d.createIntent(ctx, req); err != nil {
		return fmt.Errorf("dialogflow create intent %q (%s): %w", displayName, status.Code(err), err)
	}
	return nil
}

func (d *Dialogflow) Close() error {
	var errs []error
	for _, c := range d.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
