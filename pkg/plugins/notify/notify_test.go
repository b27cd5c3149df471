package notify_test

import (
	"net/smtp"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-docflow/pkg/bus"
	"github.com/askiada/go-docflow/pkg/items"
	"github.com/askiada/go-docflow/pkg/pipeline/model"
	"github.com/askiada/go-docflow/pkg/plugins/notify"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newPlugin(t *testing.T, b *bus.Bus, cfg map[string]any, sent *[]sentMail, sendErr error) model.Plugin {
	t.Helper()

	f := notify.Factory(notify.WithSendMail(func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		*sent = append(*sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return sendErr
	}))
	conf, err := f.ResolveConfig(cfg)
	require.NoError(t, err)

	p, err := f.New(&model.Node{Name: f.Name, Stage: "clean", Config: conf}, model.Deps{Bus: b})
	require.NoError(t, err)

	return p
}

func document(t *testing.T) *items.List {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scan_ocr.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))

	return items.MustNew(path)
}

func TestReport(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "docflow processed\n", notify.Report(nil))
	assert.Equal(t, "docflow processed\ncleanup: done\nfiler: copied\n", notify.Report([]bus.Message{
		{Producer: "cleanup", Text: "done"},
		{Producer: "filer", Text: "copied"},
	}))
}

func TestRunReportFile(t *testing.T) {
	t.Parallel()

	b := bus.New()
	b.Publish("cleanup", "done")
	report := filepath.Join(t.TempDir(), "report.txt")
	var sent []sentMail

	doc := document(t)
	out, err := newPlugin(t, b, map[string]any{"report": report}, &sent, nil).Run(t.Context(), doc, doc)
	require.NoError(t, err)
	assert.Same(t, doc, out)
	assert.Zero(t, b.Len())
	assert.Empty(t, sent)

	content, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Equal(t, "docflow processed\ncleanup: done\n", string(content))
}

func TestRunMail(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		sendErr error
	}{
		"delivered": {},
		// a failed mail is logged, the run goes on
		"server down": {sendErr: assert.AnError},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			b := bus.New()
			b.Publish("cleanup", "done")
			var sent []sentMail

			p := newPlugin(t, b, map[string]any{
				"smtp_host":  "mail.example.com",
				"smtp_login": "scanner@example.com",
				"smtp_dest":  "me@example.com, archive@example.com",
			}, &sent, tc.sendErr)

			_, err := p.Run(t.Context(), document(t))
			require.NoError(t, err)
			require.Len(t, sent, 1)
			assert.Equal(t, "mail.example.com:587", sent[0].addr)
			assert.Equal(t, "scanner@example.com", sent[0].from)
			assert.Equal(t, []string{"me@example.com", "archive@example.com"}, sent[0].to)
			assert.Contains(t, sent[0].msg, "Subject: docflow processed\r\n")
			assert.Contains(t, sent[0].msg, "cleanup: done\r\n")
		})
	}
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	f := notify.Factory()
	_, err := f.New(&model.Node{Name: f.Name}, model.Deps{})
	require.ErrorIs(t, err, notify.ErrBusMustBeSet)

	conf, err := f.ResolveConfig(map[string]any{"smtp_host": "mail.example.com"})
	require.NoError(t, err)
	_, err = f.New(&model.Node{Name: f.Name, Config: conf}, model.Deps{Bus: bus.New()})
	require.ErrorIs(t, err, notify.ErrMissingReceiver)

	_, err = f.ResolveConfig(map[string]any{"smtp_server": "mail.example.com"})
	require.ErrorIs(t, err, model.ErrUnknownOption)
}
