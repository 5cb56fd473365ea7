package media

import (
	"github.com/thadeucbr/mcp-tools/server"
)

// Tool names.
const (
	SpeechTool   = "text_to_speech"
	ImageTool    = "generate_image"
	ResearchTool = "deep_research"
)

// RegisterTools registers the media tools on srv.
func RegisterTools(srv *server.Server, svc *Service) error {
	if err := srv.Tool(SpeechTool).
		Description("Convert text to speech and save the audio. Set to to also send it as a WhatsApp voice note.").
		Title("Text to speech").
		OpenWorld().
		ValidateInput().
		Handler(svc.Speak).
		Err(); err != nil {
		return err
	}

	if err := srv.Tool(ImageTool).
		Description("Generate an image from a prompt and save it as PNG. Set to to also send it over WhatsApp.").
		Title("Generate image").
		OpenWorld().
		ValidateInput().
		Handler(svc.GenerateImage).
		Err(); err != nil {
		return err
	}

	return srv.Tool(ResearchTool).
		Description("Research a question and return a structured report. Set to to also send the report over WhatsApp.").
		Title("Deep research").
		ReadOnly().
		OpenWorld().
		ValidateInput().
		Handler(svc.Research).
		Err()
}
