// Package notify answers inbound SMS and WhatsApp messages that carry a
// listing link.
package notify

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/rumoo/internal/intake"
	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/store"
)

// Canned replies.
const (
	ReplyNoURL      = "Send me a Zillow, Redfin, or Realtor.com listing URL and I'll analyze it for you.\n\nExample: just paste the link from your browser."
	ReplyNotListing = "That doesn't look like a listing URL. Please send a link from Zillow, Redfin, or Realtor.com."
	ReplyFailed     = "Something went wrong analyzing that listing. Try again in a moment, or visit rumoo-app.vercel.app to analyze it there."
	ReplyTrouble    = "Having trouble right now. Visit rumoo-app.vercel.app to analyze your listing."
)

const whatsappPrefix = "whatsapp:"

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// ReadyReply is sent when a certificate was generated immediately.
func ReadyReply(redirectURL string) string {
	return fmt.Sprintf("✅ Rumoo analysis ready!\n\n%s\n\nOpen this link to see the full certificate with light, noise, and experience assessment.", redirectURL)
}

// ConfirmReply is sent when the listing needs confirmation first.
func ConfirmReply(confirmationURL string) string {
	return fmt.Sprintf("🏠 Got your listing. I need a bit more info to complete the analysis.\n\nFill in the details here (takes 30 seconds):\n%s\n\nYour certificate will generate automatically after.", confirmationURL)
}

// Inbound is a received message.
type Inbound struct {
	From string
	Body string
}

// Channel reports whether the message arrived over WhatsApp or SMS.
func (in Inbound) Channel() model.Channel {
	if strings.HasPrefix(in.From, whatsappPrefix) {
		return model.ChannelWhatsApp
	}
	return model.ChannelSMS
}

// ExtractURL returns the first http(s) URL in text, or "".
func ExtractURL(text string) string {
	return strings.TrimSpace(urlPattern.FindString(text))
}

// Ingestor accepts intake requests.
type Ingestor interface {
	Ingest(ctx context.Context, req intake.Request) (*intake.Result, error)
}

// Responder turns inbound messages into intakes and picks the reply.
type Responder struct {
	ingestor Ingestor
	store    store.Store
}

// NewResponder creates a Responder. A nil store skips session tracking.
func NewResponder(ingestor Ingestor, st store.Store) *Responder {
	return &Responder{ingestor: ingestor, store: st}
}

// Handle processes one message and returns the reply text.
func (r *Responder) Handle(ctx context.Context, in Inbound) string {
	url := ExtractURL(in.Body)
	if url == "" {
		return ReplyNoURL
	}
	if !model.IsSupportedListing(url) {
		return ReplyNotListing
	}

	log := zap.L().With(zap.String("channel", string(in.Channel())), zap.String("url", url))

	res, err := r.ingestor.Ingest(ctx, intake.URLOnly(url))
	if err != nil && (res == nil || res.PropertyID == "") {
		var ue *intake.UnsupportedSourceError
		if errors.As(err, &ue) {
			return ReplyNotListing
		}
		log.Error("notify: ingest failed", zap.Error(err))
		return ReplyTrouble
	}

	session := &model.MobileSession{PhoneNumber: in.From, Channel: in.Channel(), State: model.SessionError}
	if res != nil && res.PropertyID != "" {
		session.PropertyID = &res.PropertyID
	}

	var reply string
	switch {
	case err == nil && res.CertificateID != "" && res.RedirectURL != "":
		session.State = model.SessionDone
		reply = ReadyReply(res.RedirectURL)
	case err == nil && res.Kind == intake.KindPending && res.ConfirmationURL != "":
		session.State = model.SessionWaiting
		reply = ConfirmReply(res.ConfirmationURL)
	default:
		if err != nil {
			log.Warn("notify: pipeline failed", zap.Error(err))
		}
		reply = ReplyFailed
	}

	r.record(ctx, log, session)
	return reply
}

func (r *Responder) record(ctx context.Context, log *zap.Logger, s *model.MobileSession) {
	if r.store == nil {
		return
	}
	if err := r.store.CreateMobileSession(ctx, s); err != nil {
		log.Warn("notify: failed to record session", zap.Error(err))
	}
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// TwiML renders message as a messaging webhook reply document.
func TwiML(message string) []byte {
	body, _ := xml.MarshalIndent(twimlResponse{Message: message}, "", "  ")
	return append([]byte(xml.Header), body...)
}
