package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taigabot/internal/eventbus"
	"taigabot/internal/relay"
	"taigabot/pkg/logx"
)

const HeaderSignature = "X-TAIGA-WEBHOOK-SIGNATURE"

var errBadSignature = errors.New("signature mismatch")

// Sign returns the Taiga signature of body: hex(HMAC-SHA1(secret, body)).
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func verify(secret, header string, body []byte) error {
	got, err := hex.DecodeString(strings.TrimSpace(header))
	if err != nil || len(got) == 0 {
		return errBadSignature
	}
	want, _ := hex.DecodeString(Sign(secret, body))
	if !hmac.Equal(got, want) {
		return errBadSignature
	}
	return nil
}

func ack(c *gin.Context) { c.String(http.StatusOK, "OK") }

func (s *Server) handleWebhook(c *gin.Context) {
	defer ack(c)
	log := requestLogger(c, s.log)

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			log.Warn("webhook body too large, dropped", logx.Int64("limit", tooBig.Limit))
			return
		}
		log.Warn("webhook body read failed", logx.Err(err))
		return
	}

	if s.cfg.Secret != "" {
		if err := verify(s.cfg.Secret, c.GetHeader(HeaderSignature), body); err != nil {
			log.Warn("webhook signature rejected", logx.String("remote", c.ClientIP()))
			return
		}
	}

	ev, err := relay.DecodeEvent(body)
	if err != nil {
		log.Warn("webhook payload rejected", logx.Err(err), logx.Int("bytes", len(body)))
		return
	}
	log = log.With(logx.String("type", ev.RawType), logx.String("action", string(ev.Action)))
	if log.Enabled(logx.LevelDebug) {
		log.Debug("webhook payload", logx.String("body", string(body)), logx.Strings("warnings", ev.Warnings))
	} else if len(ev.Warnings) > 0 {
		log.Info("webhook payload had unexpected fields", logx.Strings("warnings", ev.Warnings))
	}

	eventbus.Publish(s.bus, eventbus.TopicWebhookReceived, Received{
		RequestID: c.GetString(ctxRequestID),
		Type:      ev.RawType,
		Action:    string(ev.Action),
		Test:      ev.IsTest(),
	})

	if ev.IsTest() {
		log.Info("test webhook acknowledged")
		return
	}
	if s.disp == nil {
		return
	}

	// The event outlives a client that hangs up early.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), dispatchTimeout)
	defer cancel()
	if err := s.disp.Dispatch(ctx, ev); err != nil {
		log.Warn("event processed with errors", logx.Err(err))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	out := gin.H{}
	if s.health != nil {
		for k, v := range s.health() {
			out[k] = v
		}
	}
	out["status"] = "ok"
	c.JSON(http.StatusOK, out)
}
