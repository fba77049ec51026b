package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Error variables for better error handling and testability
var (
	ErrTwilioCredentialsMissing = errors.New("twilio account SID and auth token are required")
	ErrFromNumberMissing        = errors.New("twilio from number is required")
	ErrInvalidPhoneNumber       = errors.New("invalid phone number")
)

// Opts holds configuration options for the Twilio client.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Option defines a configuration option for the Twilio client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID (overrides $TWILIO_ACCOUNT_SID).
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token (overrides $TWILIO_AUTH_TOKEN).
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromNumber sets the sending phone number (overrides $TWILIO_FROM_NUMBER).
func WithFromNumber(from string) Option {
	return func(o *Opts) { o.FromNumber = from }
}

// TwilioClient sends SMS messages through the Twilio REST API.
type TwilioClient struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioClient initializes a Twilio SMS client from options, falling back
// to TWILIO_* environment variables.
func NewTwilioClient(opts ...Option) (*TwilioClient, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, ErrTwilioCredentialsMissing
	}
	if cfg.FromNumber == "" {
		return nil, ErrFromNumberMissing
	}
	from, err := CanonicalizePhone(cfg.FromNumber)
	if err != nil {
		return nil, fmt.Errorf("from number: %w", err)
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	slog.Info("TwilioClient initialized", "from", from)
	return &TwilioClient{client: client, from: from}, nil
}

// SendSMS sends one text message to the given number.
func (t *TwilioClient) SendSMS(ctx context.Context, to, body string) error {
	dest, err := CanonicalizePhone(to)
	if err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(dest)
	params.SetFrom(t.from)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio create message failed: %w", err)
	}
	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	slog.Debug("TwilioClient.SendSMS: message accepted", "to", dest, "sid", sid)
	return nil
}

// CanonicalizePhone normalizes a phone number to E.164: strips separators
// and requires a leading + followed by digits.
func CanonicalizePhone(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, raw)
	if cleaned == "" {
		return "", ErrInvalidPhoneNumber
	}
	if !strings.HasPrefix(cleaned, "+") {
		cleaned = "+" + cleaned
	}
	for _, r := range cleaned[1:] {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %s", ErrInvalidPhoneNumber, raw)
		}
	}
	if len(cleaned) < 8 {
		return "", fmt.Errorf("%w: %s", ErrInvalidPhoneNumber, raw)
	}
	return cleaned, nil
}
