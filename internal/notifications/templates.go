package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/alrena-group/amqms-portal/internal/events"
	"github.com/alrena-group/amqms-portal/internal/models"
)

const brandName = "AM Quality Management Systems"

const layoutTemplate = `{{define "layout"}}<div style="font-family: Georgia, serif; max-width: 600px; margin: 0 auto; padding: 40px 20px; color: #1e293b;">
  <div style="border-left: 4px solid #0d9488; padding-left: 20px; margin-bottom: 32px;">
    <h1 style="margin: 0; font-size: 22px;">{{.Heading}}</h1>
    <p style="margin: 8px 0 0; color: #64748b; font-family: system-ui, sans-serif;">` + brandName + `</p>
  </div>
  <div style="font-family: system-ui, sans-serif; font-size: 14px; color: #475569;">
  {{template "body" .}}
  </div>
</div>{{end}}`

const rowStyle = `style="padding: 6px 0; font-weight: 600; color: #1e293b; width: 140px;"`

var bodyTemplates = map[string]string{
	"enrollment_admin": `{{define "body"}}<table style="width: 100%;">
    <tr><td ` + rowStyle + `>Course</td><td>{{.Data.CourseTitle}}</td></tr>
    <tr><td ` + rowStyle + `>Standard</td><td>{{.Data.CourseStandard}}</td></tr>
    <tr><td ` + rowStyle + `>Start Date</td><td>{{date .Data.CourseStartDate}}</td></tr>
    <tr><td ` + rowStyle + `>Price</td><td>{{money .Data.PriceUSD}}</td></tr>
    <tr><td ` + rowStyle + `>Seat</td><td>#{{.Data.SeatNumber}}</td></tr>
  </table>
  <hr/>
  <table style="width: 100%;">
    <tr><td ` + rowStyle + `>Name</td><td>{{.Data.Name}}</td></tr>
    <tr><td ` + rowStyle + `>Company</td><td>{{.Data.Company}}</td></tr>
    <tr><td ` + rowStyle + `>Email</td><td>{{.Data.Email}}</td></tr>
    <tr><td ` + rowStyle + `>Phone</td><td>{{.Data.Phone}}</td></tr>
  </table>
  <hr/>
  <p>Log in to your dashboard to confirm this enrollment and send an invoice.</p>{{end}}`,

	"enrollment_client": `{{define "body"}}<p>We have received your enrollment request for <strong>{{.Data.CourseTitle}}</strong>.</p>
  <p>Our team will contact you within 24 hours with payment details and next steps.</p>
  <p><strong>Course:</strong> {{.Data.CourseTitle}}<br/>
  <strong>Start Date:</strong> {{date .Data.CourseStartDate}}<br/>
  <strong>Investment:</strong> {{money .Data.PriceUSD}}<br/>
  <strong>Seat:</strong> #{{.Data.SeatNumber}}</p>
  <p>Best regards,<br/><strong>` + brandName + `</strong><br/>A subsidiary of Alrena Group</p>{{end}}`,

	"inquiry_admin": `{{define "body"}}<table style="width: 100%;">
    <tr><td ` + rowStyle + `>Name</td><td>{{.Data.Name}}</td></tr>
    <tr><td ` + rowStyle + `>Company</td><td>{{.Data.Company}}</td></tr>
    <tr><td ` + rowStyle + `>Email</td><td>{{.Data.Email}}</td></tr>
    <tr><td ` + rowStyle + `>Phone</td><td>{{if .Data.Phone}}{{.Data.Phone}}{{else}}Not provided{{end}}</td></tr>
    <tr><td ` + rowStyle + `>ISO Standard</td><td>{{.Data.Standard}}</td></tr>
  </table>
  <div style="background: #f8fafc; border-radius: 8px; padding: 16px; margin-top: 20px;">
    <p style="margin: 0;"><strong>Message:</strong><br/>{{range lines .Data.Message}}{{.}}<br/>{{end}}</p>
  </div>{{end}}`,

	"inquiry_client": `{{define "body"}}<p>We have received your enquiry regarding <strong>{{.Data.Standard}}</strong> certification support.
  Our team will review your requirements and get back to you within 24 hours.</p>
  {{if .WhatsApp}}<p>In the meantime, feel free to reach us directly on WhatsApp at
  <a href="https://wa.me/{{.WhatsApp}}" style="color: #0d9488;">{{whatsapp .WhatsApp}}</a>.</p>{{end}}
  <p>Best regards,<br/><strong>` + brandName + `</strong><br/>A subsidiary of Alrena Group</p>{{end}}`,

	"status_changed": `{{define "body"}}<p>The status of your enrollment in <strong>{{.Data.CourseTitle}}</strong>
  (starting {{date .Data.CourseStartDate}}) is now <strong>{{label .Data.To}}</strong>.</p>
  <p>If you have any questions, reply to this email and our team will help.</p>
  <p>Best regards,<br/><strong>` + brandName + `</strong></p>{{end}}`,

	"pending_digest": `{{define "body"}}{{if .Data.Items}}<p>{{len .Data.Items}} enrollment request(s) are awaiting confirmation.</p>
  <table style="width: 100%; border-collapse: collapse;">
    <tr><th align="left">Course</th><th align="left">Name</th><th align="left">Company</th><th align="left">Requested</th></tr>
    {{range .Data.Items}}<tr><td>{{.CourseTitle}}</td><td>{{.Name}}<br/>{{.Email}}</td><td>{{.Company}}</td><td>{{date .EnrolledAt}}</td></tr>
    {{end}}
  </table>{{else}}<p>No enrollment requests are awaiting confirmation.</p>{{end}}{{end}}`,

	"magic_link": `{{define "body"}}<p>Use the button below to sign in. The link expires at {{datetime .Data.ExpiresAt}} and can only be used once.</p>
  <p><a href="{{.Data.Link}}" style="display: inline-block; background: #0d9488; color: #ffffff; padding: 12px 20px; border-radius: 6px; text-decoration: none;">Sign in</a></p>
  <p>If you did not request this email you can ignore it.</p>{{end}}`,
}

// Renderer renders email bodies with contextual HTML escaping.
type Renderer struct {
	templates map[string]*template.Template
	whatsApp  string
	location  *time.Location
}

type templateData struct {
	Heading  string
	Data     interface{}
	WhatsApp string
}

func NewRenderer(whatsAppNumber string, location *time.Location) (*Renderer, error) {
	if location == nil {
		location = time.UTC
	}

	funcs := template.FuncMap{
		"date":     func(t time.Time) string { return t.In(location).Format("Monday, 2 January 2006") },
		"datetime": func(t time.Time) string { return t.In(location).Format("15:04 MST, 2 January 2006") },
		"money":    func(v float64) string { return fmt.Sprintf("$%.2f", v) },
		"lines":    func(s string) []string { return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") },
		"whatsapp": formatWhatsApp,
		"label":    statusLabel,
	}

	r := &Renderer{templates: make(map[string]*template.Template), whatsApp: whatsAppNumber, location: location}
	for name, body := range bodyTemplates {
		tmpl, err := template.New(name).Funcs(funcs).Parse(layoutTemplate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse layout: %w", err)
		}
		if _, err := tmpl.Parse(body); err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	return r, nil
}

func (r *Renderer) render(name, heading string, data interface{}) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", templateData{Heading: heading, Data: data, WhatsApp: r.whatsApp}); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (r *Renderer) EnrollmentAdmin(p events.EnrollmentRequested) (Message, error) {
	html, err := r.render("enrollment_admin", "New Enrollment Request", p)
	return Message{Subject: "New Enrollment Request — " + p.CourseTitle, HTML: html, ReplyTo: p.Email}, err
}

func (r *Renderer) EnrollmentClient(p events.EnrollmentRequested) (Message, error) {
	html, err := r.render("enrollment_client", "Thank you, "+p.Name+"!", p)
	return Message{To: []string{p.Email}, Subject: "Enrollment Request Received — " + p.CourseTitle, HTML: html}, err
}

func (r *Renderer) InquiryAdmin(p events.InquiryReceived) (Message, error) {
	html, err := r.render("inquiry_admin", "New Consulting Enquiry", p)
	return Message{
		Subject: fmt.Sprintf("New Consulting Enquiry — %s — %s", p.Standard, p.Company),
		HTML:    html,
		ReplyTo: p.Email,
	}, err
}

func (r *Renderer) InquiryClient(p events.InquiryReceived) (Message, error) {
	html, err := r.render("inquiry_client", "Thank you, "+p.Name, p)
	return Message{To: []string{p.Email}, Subject: "We received your enquiry — " + brandName, HTML: html}, err
}

func (r *Renderer) StatusChanged(p events.EnrollmentStatusChanged) (Message, error) {
	label := statusLabel(p.To)
	html, err := r.render("status_changed", "Enrollment "+label, p)
	return Message{To: []string{p.Email}, Subject: fmt.Sprintf("Enrollment %s — %s", label, p.CourseTitle), HTML: html}, err
}

func (r *Renderer) PendingDigest(p events.PendingDigest) (Message, error) {
	html, err := r.render("pending_digest", "Pending Enrollments", p)
	return Message{Subject: fmt.Sprintf("Pending enrollments — %d awaiting confirmation", len(p.Items)), HTML: html}, err
}

func (r *Renderer) MagicLink(p events.MagicLinkRequested) (Message, error) {
	heading := "Sign in"
	if p.Name != "" {
		heading = "Hello, " + p.Name
	}
	html, err := r.render("magic_link", heading, p)
	return Message{To: []string{p.Email}, Subject: "Your sign-in link — " + brandName, HTML: html}, err
}

// formatWhatsApp turns 256707068533 into +256 707 068 533.
func formatWhatsApp(number string) string {
	digits := strings.TrimPrefix(number, "+")
	if len(digits) != 12 {
		return "+" + digits
	}
	return fmt.Sprintf("+%s %s %s %s", digits[:3], digits[3:6], digits[6:9], digits[9:])
}

func statusLabel(status string) string {
	return models.EnrollmentStatus(status).Label()
}
