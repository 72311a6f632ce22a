package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/slack-go/slack"

	"github.com/thatAverageGuy/configurable-agents-sub001/engine/runtime"
	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// SlackConfig configures the Slack Events API platform endpoint.
type SlackConfig struct {
	SigningSecret string
	BotToken      string
	ConfigDir     string
}

// slackEnvelope covers the two Events API payload shapes this handler
// cares about: the one-time url_verification challenge, and event_callback
// messages.
type slackEnvelope struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Event     struct {
		Type    string `json:"type"`
		User    string `json:"user"`
		Text    string `json:"text"`
		Channel string `json:"channel"`
		BotID   string `json:"bot_id"`
	} `json:"event"`
}

// SlackHandler implements PlatformHandler for Slack's Events API: request
// signature verification (Slack's v0 HMAC scheme), message extraction, and
// chunked replies via chat.postMessage.
//
// Grounded on original_source/webhooks/router.py + whatsapp.py's
// verify/receive/handle_message shape, adapted to Slack's request-signing
// protocol and the slack-go/slack client.
type SlackHandler struct {
	cfg     SlackConfig
	client  *slack.Client
	runtime *runtime.Runtime
}

func NewSlackHandler(cfg SlackConfig, rt *runtime.Runtime) *SlackHandler {
	return &SlackHandler{cfg: cfg, client: slack.New(cfg.BotToken), runtime: rt}
}

func (h *SlackHandler) MaxMessageLength() int { return 4000 }

// Verify is unused for Slack (the url_verification challenge rides inside
// the POST body, not a GET query string); it always reports not-ok.
func (h *SlackHandler) Verify(string, string, string) (string, bool) { return "", false }

func (h *SlackHandler) Receive(payload []byte) (sender, text string, ok bool) {
	var env slackEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", "", false
	}
	if env.Event.Type != "message" || env.Event.BotID != "" || env.Event.Text == "" {
		return "", "", false
	}
	return env.Event.Channel, env.Event.Text, true
}

// Register mounts the Slack Events API endpoint.
func (h *SlackHandler) Register(e *echo.Echo) {
	e.POST("/webhooks/slack", h.handle)
}

func (h *SlackHandler) handle(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody(err))
	}

	if h.cfg.SigningSecret != "" {
		if err := verifySlackSignature(h.cfg.SigningSecret, c.Request().Header, body); err != nil {
			return c.JSON(http.StatusForbidden, errBody(&models.InvalidSignatureError{Reason: err.Error()}))
		}
	}

	var env slackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return c.JSON(http.StatusBadRequest, errBody(err))
	}

	if env.Type == "url_verification" {
		return c.JSON(http.StatusOK, map[string]string{"challenge": env.Challenge})
	}

	channel, text, ok := h.Receive(body)
	if !ok {
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	cmd, ok := ParseCommand(text)
	if !ok {
		return c.JSON(http.StatusOK, map[string]string{"status": "not_a_command"})
	}

	h.runAndReply(channel, cmd)
	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}

func (h *SlackHandler) runAndReply(channel string, cmd ParsedCommand) {
	configPath := h.cfg.ConfigDir + "/" + cmd.WorkflowName + ".yaml"
	inputs := map[string]any{"input": cmd.Input}
	ch := h.runtime.RunAsync(context.Background(), configPath, inputs)

	go func() {
		res := <-ch
		if res.Err != nil {
			h.reply(channel, fmt.Sprintf("%s failed: %s", cmd.WorkflowName, res.Err.Error()))
			return
		}
		h.reply(channel, fmt.Sprintf("%s completed: %v", cmd.WorkflowName, res.Result.Outputs))
	}()
}

func (h *SlackHandler) reply(channel, text string) {
	for _, chunk := range ChunkMessage(text, h.MaxMessageLength()) {
		if _, _, err := h.client.PostMessage(channel, slack.MsgOptionText(chunk, false)); err != nil {
			slog.Error("slack reply failed", "channel", channel, "error", err)
		}
	}
}

// verifySlackSignature implements Slack's v0 request-signing protocol:
// signature = "v0=" + HMAC-SHA256(secret, "v0:"+timestamp+":"+body).
func verifySlackSignature(secret string, header http.Header, body []byte) error {
	ts := header.Get("X-Slack-Request-Timestamp")
	sig := header.Get("X-Slack-Signature")
	if ts == "" || sig == "" {
		return fmt.Errorf("missing Slack signature headers")
	}

	age := time.Now().Unix()
	var reqTime int64
	if _, err := fmt.Sscanf(ts, "%d", &reqTime); err != nil || age-reqTime > 300 {
		return fmt.Errorf("stale or malformed request timestamp")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + ts + ":"))
	mac.Write(body)
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func readBody(c echo.Context) ([]byte, error) {
	defer c.Request().Body.Close()
	return io.ReadAll(c.Request().Body)
}

var _ PlatformHandler = (*SlackHandler)(nil)
