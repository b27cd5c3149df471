// Package notify provides a filter that reports the status messages of a run once the final
// document exists. The report is logged, and optionally appended to a file and mailed.
package notify

import (
	"context"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/askiada/go-docflow/pkg/bus"
	"github.com/askiada/go-docflow/pkg/items"
	"github.com/askiada/go-docflow/pkg/pipeline/model"
)

const (
	Name = "notify"

	OptReport       = "report"
	OptSMTPHost     = "smtp_host"
	OptSMTPPort     = "smtp_port"
	OptSMTPLogin    = "smtp_login"
	OptSMTPPassword = "smtp_password"
	OptSMTPDest     = "smtp_dest"
	OptSubject      = "subject"

	header = "docflow processed"
)

var (
	ErrBusMustBeSet    = errors.New("message bus must be set")
	ErrMissingReceiver = errors.New("mail recipients must be set")
)

// SendMailFunc has the signature of smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type factoryConfig struct {
	sendMail SendMailFunc
}

// FactoryOption configures the plugins created by Factory.
type FactoryOption func(fc *factoryConfig)

// WithSendMail replaces smtp.SendMail.
func WithSendMail(fn SendMailFunc) FactoryOption {
	return func(fc *factoryConfig) {
		fc.sendMail = fn
	}
}

// Factory returns the registration of the filter, spliced after the final stage.
func Factory(opts ...FactoryOption) model.Factory {
	fc := &factoryConfig{sendMail: smtp.SendMail}
	for _, opt := range opts {
		opt(fc)
	}

	return model.Factory{
		Name:           Name,
		Stage:          model.FilterStage,
		Description:    "Report the status messages of the run",
		FilterOnOutput: []string{"clean"},
		InputsFrom:     []string{"clean", "setup"},
		Options: []model.OptionSpec{
			{Name: OptReport, Default: "", Usage: "append the report to this file"},
			{Name: OptSMTPHost, Default: "", Usage: "mail server, mailing is disabled when empty"},
			{Name: OptSMTPPort, Default: 587, Usage: "mail server port"},
			{Name: OptSMTPLogin, Default: "", Usage: "mail account, also used as sender"},
			{Name: OptSMTPPassword, Default: "", Usage: "mail account password"},
			{Name: OptSMTPDest, Default: "", Usage: "comma separated recipients"},
			{Name: OptSubject, Default: header, Usage: "mail subject"},
		},
		New: func(node *model.Node, deps model.Deps) (model.Plugin, error) {
			if deps.Bus == nil {
				return nil, ErrBusMustBeSet
			}

			p := &Plugin{
				bus:      deps.Bus,
				cfg:      node.Config,
				sendMail: fc.sendMail,
				logger:   deps.Logger.With().Str("plugin", Name).Logger(),
			}
			if p.cfg.String(OptSMTPHost) != "" && p.cfg.String(OptSMTPDest) == "" {
				return nil, errors.Wrapf(ErrMissingReceiver, "%s is required with %s", OptSMTPDest, OptSMTPHost)
			}

			return p, nil
		},
	}
}

type Plugin struct {
	bus      *bus.Bus
	cfg      model.Config
	sendMail SendMailFunc
	logger   zerolog.Logger
}

// Run drains the message bus and delivers the report. The final document is passed through.
func (p *Plugin) Run(_ context.Context, inputs ...*items.List) (*items.List, error) {
	report := Report(p.bus.Drain())

	p.logger.Info().Msg("sending status report")
	p.logger.Debug().Msg(report)

	if path := p.cfg.String(OptReport); path != "" {
		err := appendFile(path, report)
		if err != nil {
			return nil, err
		}
	}

	if p.cfg.String(OptSMTPHost) != "" {
		err := p.mail(report)
		if err != nil {
			// the document is done, a failed notification does not undo it
			p.logger.Error().Err(err).Msg("unable to send status report")
		}
	}

	if len(inputs) == 0 {
		return &items.List{}, nil
	}

	return inputs[0], nil
}

// Report formats the messages of a run, oldest first.
func Report(msgs []bus.Message) string {
	var sb strings.Builder
	sb.WriteString(header)
	for _, msg := range msgs {
		sb.WriteString("\n")
		sb.WriteString(msg.Producer)
		sb.WriteString(": ")
		sb.WriteString(msg.Text)
	}
	sb.WriteString("\n")

	return sb.String()
}

func (p *Plugin) mail(report string) error {
	host := p.cfg.String(OptSMTPHost)
	addr := net.JoinHostPort(host, strconv.Itoa(p.cfg.Int(OptSMTPPort)))
	from := p.cfg.String(OptSMTPLogin)

	var to []string
	for _, dest := range strings.Split(p.cfg.String(OptSMTPDest), ",") {
		if dest = strings.TrimSpace(dest); dest != "" {
			to = append(to, dest)
		}
	}

	var auth smtp.Auth
	if from != "" {
		auth = smtp.PlainAuth("", from, p.cfg.String(OptSMTPPassword), host)
	}

	msg := "From: " + from + "\r\n" +
		"To: " + strings.Join(to, ", ") + "\r\n" +
		"Subject: " + p.cfg.String(OptSubject) + "\r\n" +
		"\r\n" + strings.ReplaceAll(report, "\n", "\r\n")

	err := p.sendMail(addr, auth, from, to, []byte(msg))
	if err != nil {
		return errors.Wrapf(err, "unable to mail %s", addr)
	}

	return nil
}

func appendFile(path, content string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // reports are readable
	if err != nil {
		return errors.Wrapf(err, "unable to open report %s", path)
	}
	defer file.Close()

	_, err = file.WriteString(content)
	if err != nil {
		return errors.Wrapf(err, "unable to write report %s", path)
	}

	return nil
}
