package intent

import (
	"context"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/rafabd1/Paleta/internal/commands"
	"github.com/rafabd1/Paleta/internal/types"
	"github.com/rafabd1/Paleta/pkg/utils"
)

// GeminiOptions configures the LLM tier.
type GeminiOptions struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Gemini parses commands and answers questions with a Gemini model.
type Gemini struct {
	client   *genai.Client
	parser   generator
	answerer generator
	timeout  time.Duration
	logger   *zap.Logger
}

// NewGemini connects to the Gemini API. Without an API key the client
// falls back to application default credentials.
func NewGemini(ctx context.Context, opts GeminiOptions, reg *commands.Registry, logger *zap.Logger) (*Gemini, error) {
	var clientOpts []option.ClientOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	} else {
		logger.Info("llm api key not set, using application default credentials")
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "create genai client")
	}

	parseModel := client.GenerativeModel(opts.Model)
	parseModel.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(parseInstruction(reg))}}
	parseModel.ResponseMIMEType = "application/json"
	parseModel.SetTemperature(0.1)

	answerModel := client.GenerativeModel(opts.Model)
	answerModel.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(answerInstruction)}}
	answerModel.SetTemperature(0.3)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	logger.Info("gemini intent parser ready", zap.String("model", opts.Model))
	return &Gemini{
		client:   client,
		parser:   parseModel,
		answerer: answerModel,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Parse asks the model for a batch. Transport failures and unreadable
// replies are ErrParserUnavailable; a readable but invalid batch returns
// the validation error.
func (g *Gemini) Parse(ctx context.Context, text string, snap types.Snapshot) (*commands.Batch, error) {
	raw, err := g.generate(ctx, g.parser, parsePrompt(text, snap))
	if err != nil {
		return nil, err
	}
	block, err := utils.ExtractJsonBlock(raw)
	if err != nil {
		g.logger.Warn("llm reply was not json", zap.String("reply", utils.Truncate(raw, 200)))
		return nil, errors.Wrap(ErrParserUnavailable, err.Error())
	}
	return commands.Decode([]byte(block))
}

// Answer replies to a question about the desktop in plain text.
func (g *Gemini) Answer(ctx context.Context, question string, snap types.Snapshot, history []types.QA) (string, error) {
	answer, err := g.generate(ctx, g.answerer, answerPrompt(question, snap, history))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func (g *Gemini) generate(ctx context.Context, model generator, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		g.logger.Warn("llm call failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return "", unavailable(err)
	}
	g.logger.Debug("llm call done", zap.Duration("took", time.Since(start)))

	text, err := responseText(resp)
	if err != nil {
		return "", errors.Wrap(ErrParserUnavailable, err.Error())
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty llm response")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return "", errors.Errorf("llm response has no text (finish reason %v)", resp.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}

func unavailable(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return errors.Wrapf(ErrParserUnavailable, "gemini api error %d: %s", apiErr.Code, apiErr.Message)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(ErrParserUnavailable, "gemini request timed out")
	}
	return errors.Wrap(ErrParserUnavailable, err.Error())
}
