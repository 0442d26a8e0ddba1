package notify

import (
	"errors"
	"fmt"
	"sync"

	"github.com/osteele/liquid"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
)

var ErrUnknownKind = errors.New("notify: unknown notification kind")

type template struct {
	Subject string
	Body    string
}

var builtin = map[domain.NotificationKind]template{
	domain.NotifyPasswordResetCode: {
		Subject: "Your password reset code",
		Body: `Hi {{ name | default: "there" }},

Your password reset code is {{ code }}. It expires in {{ ttlMinutes }} minutes.

If you did not ask to reset your password you can ignore this email.`,
	},
	domain.NotifyPasswordResetConfirmation: {
		Subject: "Your password was changed",
		Body: `Hi {{ name | default: "there" }},

The password on your account was just reset. If this was not you, contact support immediately.`,
	},
	domain.NotifyEmailVerification: {
		Subject: "Verify your email address",
		Body: `Hi {{ name | default: "there" }},

Your verification code is {{ code }}. It expires in {{ ttlMinutes }} minutes.`,
	},
	domain.NotifyQuoteReceived: {
		Subject: "Quote request {{ quoteNumber }} received",
		Body: `Hi {{ name }},

We have received your request to ship from {{ origin }} to {{ destination }}.
Your quote number is {{ quoteNumber }}. We will send you a price shortly.`,
	},
	domain.NotifyQuotePriced: {
		Subject: "Your quote {{ quoteNumber }} is ready",
		Body: `Hi {{ name }},

Shipping from {{ origin }} to {{ destination }} will cost {{ price }}.
{% if estimatedDelivery %}Estimated delivery: {{ estimatedDelivery }}.
{% endif %}This quote is valid until {{ expiresAt }}.`,
	},
	domain.NotifyQuoteResponded: {
		Subject: "Quote {{ quoteNumber }} {{ status }}",
		Body: `Hi {{ name }},

We have recorded your decision on quote {{ quoteNumber }}: {{ status }}.`,
	},
	domain.NotifyShipmentCreated: {
		Subject: "Shipment {{ trackingNumber }} created",
		Body: `Hi {{ name }},

A shipment from {{ origin }} is on its way to you. Track it with number {{ trackingNumber }}.`,
	},
	domain.NotifyShipmentStatus: {
		Subject: "Shipment {{ trackingNumber }}: {{ status }}",
		Body: `Hi {{ name }},

Your shipment {{ trackingNumber }} is now {{ status }}{% if currentLocation != "" %} at {{ currentLocation }}{% endif %}.`,
	},
	domain.NotifyKYCApproved: {
		Subject: "Your identity has been verified",
		Body: `Hi {{ name | default: "there" }},

Your identity verification was approved. All account features are now available.`,
	},
	domain.NotifyKYCRejected: {
		Subject: "We could not verify your identity",
		Body: `Hi {{ name | default: "there" }},

Your identity verification was not approved. Please contact support for details.`,
	},
	domain.NotifyMFAEnabled: {
		Subject: "Two-factor authentication enabled",
		Body: `Hi {{ name | default: "there" }},

Two-factor authentication is now required when you sign in.`,
	},
	domain.NotifyContactMessage: {
		Subject: "[contact] {{ subject }}",
		Body: `From: {{ name }} <{{ email }}>

{{ message }}`,
	},
	domain.NotifyCustomerMessage: {
		Subject: `{{ subject | default: "A message from Freightdesk" }}`,
		Body: `{{ message }}

Freightdesk`,
	},
}

const htmlLayout = `<!doctype html><html><body><p>{{ body | escape | newline_to_br }}</p></body></html>`

// Templates renders notification kinds into messages with Liquid. Parsed
// templates are cached per kind.
type Templates struct {
	engine *liquid.Engine
	cache  sync.Map // key -> *liquid.Template

	mu        sync.RWMutex
	overrides map[domain.NotificationKind]template
}

func NewTemplates() *Templates {
	return &Templates{
		engine:    liquid.NewEngine(),
		overrides: make(map[domain.NotificationKind]template),
	}
}

// Known reports whether kind has a template.
func (t *Templates) Known(kind domain.NotificationKind) bool {
	_, ok := t.lookup(kind)
	return ok
}

// Override replaces the template for kind after checking that it parses.
func (t *Templates) Override(kind domain.NotificationKind, subject, body string) error {
	for _, src := range []string{subject, body} {
		if _, err := t.engine.ParseString(src); err != nil {
			return fmt.Errorf("parse %s template: %w", kind, err)
		}
	}
	t.mu.Lock()
	t.overrides[kind] = template{Subject: subject, Body: body}
	t.mu.Unlock()
	t.cache.Delete(string(kind) + "/subject")
	t.cache.Delete(string(kind) + "/body")
	return nil
}

func (t *Templates) lookup(kind domain.NotificationKind) (template, bool) {
	t.mu.RLock()
	tpl, ok := t.overrides[kind]
	t.mu.RUnlock()
	if ok {
		return tpl, true
	}
	tpl, ok = builtin[kind]
	return tpl, ok
}

// Render produces the message for kind addressed to to.
func (t *Templates) Render(kind domain.NotificationKind, to string, params map[string]any) (Message, error) {
	tpl, ok := t.lookup(kind)
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	subject, err := t.render(string(kind)+"/subject", tpl.Subject, params)
	if err != nil {
		return Message{}, err
	}
	text, err := t.render(string(kind)+"/body", tpl.Body, params)
	if err != nil {
		return Message{}, err
	}
	html, err := t.render("layout/html", htmlLayout, map[string]any{"body": text})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, Text: text, HTML: html}, nil
}

func (t *Templates) render(key, src string, params map[string]any) (string, error) {
	if cached, ok := t.cache.Load(key); ok {
		return cached.(*liquid.Template).RenderString(params)
	}
	tpl, err := t.engine.ParseString(src)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", key, err)
	}
	t.cache.Store(key, tpl)

	out, err := tpl.RenderString(params)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", key, err)
	}
	return out, nil
}
