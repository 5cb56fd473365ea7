package whatsapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thadeucbr/mcp-tools/server"
)

// Tool names.
const (
	SendMessageTool = "send_message"
	SendFileTool    = "send_file"
)

// maxFileBytes bounds attachments read from disk.
const maxFileBytes = 64 << 20

// SendMessageInput is the send_message input.
type SendMessageInput struct {
	To   string `json:"to" jsonschema:"required,description=Phone number or chat id"`
	Text string `json:"text" jsonschema:"required,description=Message body"`
}

// SendFileInput is the send_file input.
type SendFileInput struct {
	To      string `json:"to" jsonschema:"required,description=Phone number or chat id"`
	Path    string `json:"path" jsonschema:"required,description=Local file to send"`
	Caption string `json:"caption,omitempty" jsonschema:"description=Optional caption"`
}

// SendResult reports a delivered message.
type SendResult struct {
	ChatID   string `json:"chatId"`
	MimeType string `json:"mimetype,omitempty"`
	Sent     bool   `json:"sent"`
}

// RegisterTools registers send_message and send_file on srv.
func RegisterTools(srv *server.Server, c *Client) error {
	err := srv.Tool(SendMessageTool).
		Description("Send a WhatsApp text message to a phone number or chat id.").
		Title("Send WhatsApp message").
		OpenWorld().
		ValidateInput().
		Handler(func(ctx context.Context, in SendMessageInput) (SendResult, error) {
			if strings.TrimSpace(in.Text) == "" {
				return SendResult{}, fmt.Errorf("text is required")
			}
			chatID, err := ChatID(in.To)
			if err != nil {
				return SendResult{}, err
			}
			if err := c.SendText(ctx, chatID, in.Text); err != nil {
				return SendResult{}, err
			}
			return SendResult{ChatID: chatID, Sent: true}, nil
		}).
		Err()
	if err != nil {
		return err
	}

	return srv.Tool(SendFileTool).
		Description("Send a local file over WhatsApp. Images are sent as pictures, anything else as a document.").
		Title("Send WhatsApp file").
		OpenWorld().
		ValidateInput().
		Handler(func(ctx context.Context, in SendFileInput) (SendResult, error) {
			chatID, err := ChatID(in.To)
			if err != nil {
				return SendResult{}, err
			}
			file, err := ReadFile(in.Path)
			if err != nil {
				return SendResult{}, err
			}
			if strings.HasPrefix(file.MimeType, "image/") {
				err = c.SendImage(ctx, chatID, file, in.Caption)
			} else {
				err = c.SendFile(ctx, chatID, file, in.Caption)
			}
			if err != nil {
				return SendResult{}, err
			}
			return SendResult{ChatID: chatID, MimeType: file.MimeType, Sent: true}, nil
		}).
		Err()
}

// ReadFile loads path as an attachment.
func ReadFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("read %s: is a directory", path)
	}
	if info.Size() > maxFileBytes {
		return File{}, fmt.Errorf("read %s: file exceeds %d bytes", path, maxFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", path, err)
	}
	name := filepath.Base(path)
	return File{MimeType: DetectMIME(name, data), Filename: name, Data: data}, nil
}
