// Package notify sends verification snapshots to an off-device channel.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Notifier delivers a photo with a caption. Delivery is best-effort: the
// session outcome never depends on it.
type Notifier interface {
	Send(ctx context.Context, photo []byte, caption string) error
}

// Telegram posts photos to a chat via the Bot API.
type Telegram struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
}

const telegramAPI = "https://api.telegram.org"

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		baseURL: telegramAPI,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{},
	}
}

// Send posts the photo and caption with sendPhoto.
func (t *Telegram) Send(ctx context.Context, photo []byte, caption string) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("photo", "snapshot.jpg")
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(photo); err != nil {
		return fmt.Errorf("failed to write photo data: %w", err)
	}
	if err := writer.WriteField("chat_id", t.chatID); err != nil {
		return fmt.Errorf("failed to write chat_id: %w", err)
	}
	if err := writer.WriteField("caption", caption); err != nil {
		return fmt.Errorf("failed to write caption: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendPhoto", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram error (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// MatchedCaption is the notification text for a successful verification.
func MatchedCaption(name, credentialID, timestamp string) string {
	return fmt.Sprintf("Attendance Taken\nName: %s\nRFID: %s\nTime: %s", name, credentialID, timestamp)
}

// LimitCaption is the notification text for a verification past the daily
// quota.
func LimitCaption(name, credentialID string) string {
	return fmt.Sprintf("%s tried third time today.\nRFID: %s\n[Limit Reached]", name, credentialID)
}
