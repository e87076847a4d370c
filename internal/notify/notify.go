package notify

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/containrrr/shoutrrr"
	"github.com/containrrr/shoutrrr/pkg/router"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// funcs are the template helpers available to the catastrophic-shutdown
// message template: Title, for title-casing the failed process name.
var funcs = template.FuncMap{
	"Title": cases.Title(language.AmericanEnglish).String,
}

const defaultTemplate = `Mercury is shutting down {{len .Processes}} process(es) after a catastrophic failure of {{Title .FailedProcess}}.

Affected processes, in shutdown order:
{{range .Processes}}  - {{.}}
{{end}}`

// CatastrophicShutdown is the data a catastrophic-shutdown notification
// template renders from.
type CatastrophicShutdown struct {
	FailedProcess string
	Processes     []string
}

// Notifier sends a catastrophic-shutdown notification through one or more
// shoutrrr service URLs.
type Notifier struct {
	router *router.ServiceRouter
	tmpl   *template.Template
	log    *logrus.Entry
}

// New builds a Notifier. urls are shoutrrr service URLs (e.g.
// "slack://token@channel"); an empty list is valid and makes every send a
// no-op, which is useful for deployments that haven't wired up alerting yet.
func New(urls []string) (*Notifier, error) {
	tmpl, err := template.New("catastrophic").Funcs(funcs).Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing catastrophic-shutdown template: %w", err)
	}

	n := &Notifier{
		tmpl: tmpl,
		log:  logrus.WithField("component", "notify"),
	}

	if len(urls) > 0 {
		sender, err := shoutrrr.CreateSender(urls...)
		if err != nil {
			return nil, fmt.Errorf("creating shoutrrr sender: %w", err)
		}

		n.router = sender
	}

	return n, nil
}

// Configured reports whether n has any notification URLs wired up.
func (n *Notifier) Configured() bool {
	return n.router != nil
}

// NotifyCatastrophic renders and sends the catastrophic-shutdown message.
// Send errors are logged and aggregated but never prevent the Recovery
// Engine's shutdown sequence from proceeding — a notification failure must
// never block the thing it's trying to report.
func (n *Notifier) NotifyCatastrophic(_ context.Context, failedProcess string, processes []string) error {
	if n.router == nil {
		n.log.Debug("no notification URLs configured, skipping catastrophic-shutdown alert")

		return nil
	}

	var buf bytes.Buffer

	if err := n.tmpl.Execute(&buf, CatastrophicShutdown{FailedProcess: failedProcess, Processes: processes}); err != nil {
		return fmt.Errorf("rendering catastrophic-shutdown message: %w", err)
	}

	sendErrs := n.router.Send(buf.String(), nil)

	var failures int

	for _, err := range sendErrs {
		if err != nil {
			failures++

			n.log.WithError(err).Warn("failed to send catastrophic-shutdown notification")
		}
	}

	if failures > 0 && failures == len(sendErrs) {
		return fmt.Errorf("all %d notification sends failed", failures)
	}

	return nil
}
