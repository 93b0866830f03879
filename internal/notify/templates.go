package notify

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"
)

// Template bodies are parsed once on first use and the compiled set is
// immutable afterwards, so concurrent consumers share it without locking.
var (
	templatesOnce sync.Once
	templates     map[string]*template.Template
)

const (
	subjectCreated       = "We received your order {{.OrderNumber}}"
	subjectProofUploaded = "Payment proof received for {{.OrderNumber}}"
	subjectRejected      = "Payment proof rejected for {{.OrderNumber}}"
	subjectProcessing    = "Your order {{.OrderNumber}} is being prepared"
	subjectSettled       = "Payment confirmed for {{.OrderNumber}}"
	subjectShipped       = "Your order {{.OrderNumber}} is on its way"
	subjectConfirmed     = "Order {{.OrderNumber}} completed"
	subjectCancelled     = "Order {{.OrderNumber}} cancelled"
)

var bodies = map[string]string{
	"order.created": "Thanks for your order {{.OrderNumber}}. " +
		"Total: {{printf \"%.2f\" .Total}}. We'll let you know once payment is confirmed.",
	"order.payment_proof_uploaded": "We received your transfer proof for order {{.OrderNumber}} " +
		"and will review it shortly.",
	"order.payment_rejected": "Your transfer proof for order {{.OrderNumber}} was rejected. " +
		"Please upload a new one before the payment deadline.",
	"order.processing": "Payment confirmed. Order {{.OrderNumber}} is being prepared for shipment.",
	"order.payment_settled": "Your payment for order {{.OrderNumber}} has been settled.",
	"order.shipped":         "Order {{.OrderNumber}} has shipped.",
	"order.confirmed":       "Order {{.OrderNumber}} is complete. Thanks for shopping with us!",
	"order.cancelled": "Order {{.OrderNumber}} was cancelled" +
		"{{if .Reason}}: {{.Reason}}{{end}}.",
}

var subjects = map[string]string{
	"order.created":                subjectCreated,
	"order.payment_proof_uploaded": subjectProofUploaded,
	"order.payment_rejected":       subjectRejected,
	"order.processing":             subjectProcessing,
	"order.payment_settled":        subjectSettled,
	"order.shipped":                subjectShipped,
	"order.confirmed":              subjectConfirmed,
	"order.cancelled":              subjectCancelled,
}

func compiledTemplates() map[string]*template.Template {
	templatesOnce.Do(func() {
		templates = make(map[string]*template.Template, len(bodies)*2)
		for eventType, body := range bodies {
			templates[eventType] = template.Must(template.New(eventType).Parse(body))
			templates[eventType+":subject"] = template.Must(
				template.New(eventType + ":subject").Parse(subjects[eventType]))
		}
	})
	return templates
}

// render returns the subject and body for one event type, or an error for
// event types that carry no customer notification.
func render(eventType string, data OrderEvent) (string, string, error) {
	set := compiledTemplates()
	bodyTmpl, ok := set[eventType]
	if !ok {
		return "", "", fmt.Errorf("no notification template for event type %q", eventType)
	}

	var subject, body bytes.Buffer
	if err := set[eventType+":subject"].Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("render subject for %s: %w", eventType, err)
	}
	if err := bodyTmpl.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render body for %s: %w", eventType, err)
	}
	return subject.String(), body.String(), nil
}
