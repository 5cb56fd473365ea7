// Package media generates speech, images and research reports with the
// OpenAI API and can forward the results over WhatsApp.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/thadeucbr/mcp-tools/middleware"
	"github.com/thadeucbr/mcp-tools/whatsapp"
)

// ErrNoSender is returned when a result should be delivered but no
// WhatsApp sender is configured.
var ErrNoSender = errors.New("media: whatsapp delivery is not configured")

// Sender delivers generated media. *whatsapp.Client satisfies it.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
	SendImage(ctx context.Context, to string, file whatsapp.File, caption string) error
	SendVoice(ctx context.Context, to string, file whatsapp.File) error
}

// Config selects models and where generated files go.
type Config struct {
	SpeechModel   string
	Voice         string
	ImageModel    string
	ResearchModel string
	OutputDir     string
}

// Option configures a Service.
type Option func(*Service)

// WithSender enables delivery of results to a chat.
func WithSender(s Sender) Option {
	return func(svc *Service) {
		svc.sender = s
	}
}

// WithLogger sets the logger.
func WithLogger(l middleware.Logger) Option {
	return func(svc *Service) {
		svc.logger = l
	}
}

// Service wraps an OpenAI client.
type Service struct {
	client *openai.Client
	cfg    Config
	sender Sender
	logger middleware.Logger
}

// NewClient builds an OpenAI client. An empty baseURL keeps the public
// endpoint.
func NewClient(apiKey, baseURL string, httpClient *http.Client) *openai.Client {
	conf := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		conf.BaseURL = baseURL
	}
	if httpClient != nil {
		conf.HTTPClient = httpClient
	}
	return openai.NewClientWithConfig(conf)
}

// New creates a Service. Empty config fields get defaults.
func New(client *openai.Client, cfg Config, opts ...Option) *Service {
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = string(openai.TTSModel1)
	}
	if cfg.Voice == "" {
		cfg.Voice = string(openai.VoiceAlloy)
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = openai.CreateImageModelDallE3
	}
	if cfg.ResearchModel == "" {
		cfg.ResearchModel = openai.GPT4o
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = os.TempDir()
	}

	s := &Service{client: client, cfg: cfg, logger: middleware.NopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SpeechInput is the text_to_speech input.
type SpeechInput struct {
	Text   string `json:"text" jsonschema:"required,description=Text to speak"`
	Voice  string `json:"voice,omitempty" jsonschema:"description=Voice name such as alloy or nova"`
	Format string `json:"format,omitempty" jsonschema:"enum=mp3|opus,description=Audio format (default mp3)"`
	To     string `json:"to,omitempty" jsonschema:"description=Optional WhatsApp recipient for a voice note"`
}

// SpeechResult reports the saved audio.
type SpeechResult struct {
	Path      string `json:"path"`
	MimeType  string `json:"mimetype"`
	Bytes     int    `json:"bytes"`
	Delivered bool   `json:"delivered"`
}

// Speak synthesises in.Text and saves the audio under OutputDir.
func (s *Service) Speak(ctx context.Context, in SpeechInput) (SpeechResult, error) {
	if strings.TrimSpace(in.Text) == "" {
		return SpeechResult{}, errors.New("text is required")
	}
	format := openai.SpeechResponseFormatMp3
	mimeType := "audio/mpeg"
	if in.Format == string(openai.SpeechResponseFormatOpus) {
		format = openai.SpeechResponseFormatOpus
		mimeType = "audio/ogg"
	}
	voice := in.Voice
	if voice == "" {
		voice = s.cfg.Voice
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.cfg.SpeechModel),
		Input:          in.Text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: format,
	})
	if err != nil {
		return SpeechResult{}, fmt.Errorf("create speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return SpeechResult{}, fmt.Errorf("read speech: %w", err)
	}

	path, err := s.save("speech", string(format), audio)
	if err != nil {
		return SpeechResult{}, err
	}
	result := SpeechResult{Path: path, MimeType: mimeType, Bytes: len(audio)}

	if in.To != "" {
		file := whatsapp.File{MimeType: mimeType, Filename: filepath.Base(path), Data: audio}
		if err := s.deliver(ctx, func(snd Sender) error { return snd.SendVoice(ctx, in.To, file) }); err != nil {
			return result, err
		}
		result.Delivered = true
	}
	return result, nil
}

// ImageInput is the generate_image input.
type ImageInput struct {
	Prompt  string `json:"prompt" jsonschema:"required,description=What to draw"`
	Size    string `json:"size,omitempty" jsonschema:"enum=1024x1024|1792x1024|1024x1792,description=Image size (default 1024x1024)"`
	To      string `json:"to,omitempty" jsonschema:"description=Optional WhatsApp recipient"`
	Caption string `json:"caption,omitempty" jsonschema:"description=Caption used when sending the image"`
}

// ImageResult reports the saved image.
type ImageResult struct {
	Path          string `json:"path"`
	RevisedPrompt string `json:"revisedPrompt,omitempty"`
	Delivered     bool   `json:"delivered"`
}

// GenerateImage renders in.Prompt and saves a PNG under OutputDir.
func (s *Service) GenerateImage(ctx context.Context, in ImageInput) (ImageResult, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return ImageResult{}, errors.New("prompt is required")
	}
	size := in.Size
	if size == "" {
		size = openai.CreateImageSize1024x1024
	}

	resp, err := s.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         in.Prompt,
		Model:          s.cfg.ImageModel,
		N:              1,
		Size:           size,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return ImageResult{}, fmt.Errorf("create image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return ImageResult{}, errors.New("create image: empty response")
	}

	png, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return ImageResult{}, fmt.Errorf("decode image: %w", err)
	}
	path, err := s.save("image", "png", png)
	if err != nil {
		return ImageResult{}, err
	}
	result := ImageResult{Path: path, RevisedPrompt: resp.Data[0].RevisedPrompt}

	if in.To != "" {
		caption := in.Caption
		if caption == "" {
			caption = in.Prompt
		}
		file := whatsapp.File{MimeType: "image/png", Filename: filepath.Base(path), Data: png}
		if err := s.deliver(ctx, func(snd Sender) error { return snd.SendImage(ctx, in.To, file, caption) }); err != nil {
			return result, err
		}
		result.Delivered = true
	}
	return result, nil
}

const researchPrompt = "You are a meticulous research assistant. Investigate the question, " +
	"compare sources and perspectives, and answer with a structured report: a short summary, " +
	"key findings as bullet points, open questions, and suggested next steps."

// ResearchInput is the deep_research input.
type ResearchInput struct {
	Query string `json:"query" jsonschema:"required,description=Research question"`
	To    string `json:"to,omitempty" jsonschema:"description=Optional WhatsApp recipient for the report"`
}

// ResearchResult carries the report.
type ResearchResult struct {
	Report    string `json:"report"`
	Model     string `json:"model"`
	Delivered bool   `json:"delivered"`
}

// Research asks the research model for a report on in.Query.
func (s *Service) Research(ctx context.Context, in ResearchInput) (ResearchResult, error) {
	if strings.TrimSpace(in.Query) == "" {
		return ResearchResult{}, errors.New("query is required")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.ResearchModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: researchPrompt},
			{Role: openai.ChatMessageRoleUser, Content: in.Query},
		},
	})
	if err != nil {
		return ResearchResult{}, fmt.Errorf("research: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ResearchResult{}, errors.New("research: empty response")
	}

	result := ResearchResult{Report: resp.Choices[0].Message.Content, Model: s.cfg.ResearchModel}
	if in.To != "" {
		if err := s.deliver(ctx, func(snd Sender) error { return snd.SendText(ctx, in.To, result.Report) }); err != nil {
			return result, err
		}
		result.Delivered = true
	}
	return result, nil
}

func (s *Service) deliver(ctx context.Context, send func(Sender) error) error {
	if s.sender == nil {
		return ErrNoSender
	}
	if err := send(s.sender); err != nil {
		s.logger.Warn("media delivery failed", middleware.F("error", err.Error()))
		middleware.AddSpanEvent(ctx, "media.delivery_failed")
		return fmt.Errorf("deliver: %w", err)
	}
	return nil
}

func (s *Service) save(prefix, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(s.cfg.OutputDir, prefix+"-"+uuid.NewString()+"."+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save %s: %w", prefix, err)
	}
	return path, nil
}
