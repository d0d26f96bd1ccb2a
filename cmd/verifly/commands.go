package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	verifly "github.com/verifly/verifly-go"
	apierrors "github.com/verifly/verifly-go/errors"
	"github.com/verifly/verifly-go/internal/adapter"
	"github.com/verifly/verifly-go/internal/config"
	"github.com/verifly/verifly-go/internal/logger"
	"github.com/verifly/verifly-go/internal/messaging"
	"github.com/verifly/verifly-go/internal/providers/jetstream"
	"github.com/verifly/verifly-go/signature"
	"github.com/verifly/verifly-go/transport"
	"github.com/verifly/verifly-go/webhook"
)

type command struct {
	name    string
	summary string
	run     func(a *app, ctx context.Context, args []string) error
}

var commands = []command{
	{"create", "Create a verification session", (*app).create},
	{"get", "Show a session: get <session-id>", (*app).get},
	{"select-method", "Choose the channel of a session", (*app).selectMethod},
	{"cancel", "Cancel a session: cancel <session-id>", (*app).cancel},
	{"abort", "Abort a session: abort <session-id>", (*app).abort},
	{"balance", "Show the account balance", (*app).balance},
	{"sign", "Sign a JSON payload with the secret key", (*app).sign},
	{"verify", "Verify a webhook payload against its headers", (*app).verify},
	{"events", "Print webhooks fanned out by the receiver", (*app).events},
}

type app struct {
	cfg *config.CLIConfig
	in  io.Reader
	out io.Writer

	// transport replaces the HTTP transport, used by tests
	transport transport.Transport
	// subscriber replaces the NATS subscriber, used by tests
	subscriber messaging.Subscriber
	clock      adapter.Clock
}

func (a *app) run(ctx context.Context, args []string) error {
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(a, ctx, args[1:])
		}
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func (a *app) client() (*verifly.Client, error) {
	opts := []verifly.Option{
		verifly.WithBaseURL(a.cfg.Verifly.BaseURL),
		verifly.WithTimeout(a.cfg.Verifly.Timeout),
		verifly.WithMaxRetries(a.cfg.Verifly.MaxRetries),
		verifly.WithDebug(a.cfg.Debug),
		verifly.WithLogger(logger.Default()),
	}
	if a.cfg.Verifly.RateLimit > 0 {
		opts = append(opts, verifly.WithRateLimit(a.cfg.Verifly.RateLimit, a.cfg.Verifly.RateBurst))
	}
	if a.transport != nil {
		opts = append(opts, verifly.WithTransport(a.transport))
	}
	return verifly.New(a.cfg.Verifly.APIKey, a.cfg.Verifly.SecretKey, opts...)
}

func (a *app) now() time.Time {
	if a.clock != nil {
		return a.clock.Now()
	}
	return time.Now()
}

func (a *app) create(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	phone := fs.String("phone", "", "Recipient phone number")
	email := fs.String("email", "", "Recipient email")
	methods := fs.String("methods", "", "Comma separated channels: sms,whatsapp,call,email")
	lang := fs.String("lang", "", "Language of the verification page")
	webhookURL := fs.String("webhook-url", "", "URL notified when the session ends")
	redirectURL := fs.String("redirect-url", "", "URL the user is sent to when done")
	timeout := fs.Int("timeout", 0, "Session lifetime in minutes, 1 to 15")
	data := fs.String("data", "", "JSON attached to the session")
	if err := fs.Parse(args); err != nil {
		return err
	}

	params := verifly.CreateParams{
		Phone:       *phone,
		Email:       *email,
		Lang:        *lang,
		WebhookURL:  *webhookURL,
		RedirectURL: *redirectURL,
		Timeout:     *timeout,
	}
	for _, m := range strings.Split(*methods, ",") {
		if m = strings.TrimSpace(m); m != "" {
			params.Methods = append(params.Methods, verifly.Method(m))
		}
	}
	if *data != "" {
		if !json.Valid([]byte(*data)) {
			return apierrors.New(apierrors.KindValidation, "-data must be valid JSON")
		}
		params.Data = json.RawMessage(*data)
	}

	client, err := a.client()
	if err != nil {
		return err
	}
	session, err := client.Verification().Create(ctx, params)
	if err != nil {
		return err
	}
	return a.printJSON(session.Raw)
}

func (a *app) get(ctx context.Context, args []string) error {
	sessionID, err := sessionArg("get", args)
	if err != nil {
		return err
	}
	client, err := a.client()
	if err != nil {
		return err
	}
	session, err := client.Verification().Get(ctx, sessionID)
	if err != nil {
		return err
	}
	return a.printJSON(session.Raw)
}

func (a *app) selectMethod(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("select-method", flag.ContinueOnError)
	method := fs.String("method", "", "Channel: sms, whatsapp, call or email")
	contact := fs.String("contact", "", "Recipient contact, required when the session has none")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sessionID, err := sessionArg("select-method", fs.Args())
	if err != nil {
		return err
	}

	client, err := a.client()
	if err != nil {
		return err
	}
	session, err := client.Verification().SelectMethod(ctx, sessionID, verifly.SelectMethodParams{
		Method:           verifly.Method(*method),
		RecipientContact: *contact,
	})
	if err != nil {
		return err
	}
	return a.printJSON(session.Raw)
}

func (a *app) cancel(ctx context.Context, args []string) error {
	return a.finish(ctx, "cancel", args)
}

func (a *app) abort(ctx context.Context, args []string) error {
	return a.finish(ctx, "abort", args)
}

func (a *app) finish(ctx context.Context, action string, args []string) error {
	sessionID, err := sessionArg(action, args)
	if err != nil {
		return err
	}
	client, err := a.client()
	if err != nil {
		return err
	}

	var result *verifly.Result
	if action == "abort" {
		result, err = client.Verification().Abort(ctx, sessionID)
	} else {
		result, err = client.Verification().Cancel(ctx, sessionID)
	}
	if err != nil {
		return err
	}
	return a.printJSON(result.Raw)
}

func (a *app) balance(ctx context.Context, args []string) error {
	client, err := a.client()
	if err != nil {
		return err
	}
	balance, err := client.Verification().Balance(ctx)
	if err != nil {
		return err
	}
	return a.printJSON(balance.Raw)
}

// sign prints the signature a request or webhook with this body carries
func (a *app) sign(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	file := fs.String("file", "", "JSON payload file, stdin when empty")
	timestamp := fs.String("timestamp", "", "Unix timestamp, now when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.cfg.Verifly.SecretKey == "" {
		return apierrors.New(apierrors.KindConfiguration, "verifly.secret_key is required")
	}

	body, err := a.readPayload(*file)
	if err != nil {
		return err
	}
	ts := *timestamp
	if ts == "" {
		ts = signature.Timestamp(a.now())
	}

	sig, err := webhook.NewVerifier(a.cfg.Verifly.SecretKey).GenerateSignature(json.RawMessage(body), ts)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: %s\n%s: %s\n", signature.HeaderSignature, sig, signature.HeaderTimestamp, ts)
	return nil
}

// verify checks a saved webhook body against the headers it arrived with
func (a *app) verify(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	file := fs.String("file", "", "Webhook body file, stdin when empty")
	sig := fs.String("signature", "", "X-Signature header")
	timestamp := fs.String("timestamp", "", "X-Timestamp header")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sig == "" || *timestamp == "" {
		return apierrors.New(apierrors.KindValidation, "-signature and -timestamp are required")
	}
	if a.cfg.Verifly.SecretKey == "" {
		return apierrors.New(apierrors.KindConfiguration, "verifly.secret_key is required")
	}

	body, err := a.readPayload(*file)
	if err != nil {
		return err
	}
	event, err := webhook.NewVerifier(a.cfg.Verifly.SecretKey).ConstructEventFromBytes(body, *sig, *timestamp)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "valid: event=%s session=%s\n", event.Type(), event.SessionID())
	return nil
}

// events prints each fanned out webhook as a JSON line until interrupted
func (a *app) events(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	eventType := fs.String("type", "", "Only print this event type, e.g. verification.completed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sub := a.subscriber
	if sub == nil {
		if a.cfg.NATS.URL == "" {
			return apierrors.New(apierrors.KindConfiguration, "nats.url is required")
		}
		var err error
		sub, err = jetstream.NewSubscriber(jetstream.Config{
			URL:            a.cfg.NATS.URL,
			StreamName:     a.cfg.NATS.StreamName,
			SubjectPrefix:  a.cfg.NATS.SubjectPrefix,
			MaxReconnects:  a.cfg.NATS.MaxReconnects,
			ReconnectWait:  a.cfg.NATS.ReconnectWait,
			ConnectionName: a.cfg.NATS.ConnectionName,
		}, adapter.NewNatsJetStream())
		if err != nil {
			return err
		}
	}
	defer sub.Close()

	filter := ""
	if *eventType != "" {
		prefix := a.cfg.NATS.SubjectPrefix
		if prefix == "" {
			prefix = jetstream.DefaultSubjectPrefix
		}
		filter = jetstream.BuildSubject(strings.TrimSuffix(prefix, "."), *eventType)
	}

	enc := json.NewEncoder(a.out)
	return sub.SubscribeEvents(ctx, filter, func(event *messaging.Event) error {
		return enc.Encode(event)
	})
}

func (a *app) readPayload(file string) ([]byte, error) {
	var (
		body []byte
		err  error
	)
	if file == "" {
		body, err = io.ReadAll(a.in)
	} else {
		body, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return bytes.TrimSpace(body), nil
}

func (a *app) printJSON(raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		// not JSON, print as received
		_, err = fmt.Fprintln(a.out, string(raw))
		return err
	}
	buf.WriteByte('\n')
	_, err := a.out.Write(buf.Bytes())
	return err
}

func sessionArg(cmd string, args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", errors.New("usage: verifly " + cmd + " <session-id>")
	}
	return args[0], nil
}
