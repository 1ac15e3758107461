package mailer

import (
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

const layoutHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">{{.Subject}}</h2>
  <p>Hi {{.Name}},</p>
  {{template "body" .}}
  <p>Best regards,<br>The Skill Swap Team</p>
</div>`

var htmlBodies = map[string]string{
	"welcome": `<p>Welcome to Skill Swap Platform! We're excited to have you join our community.</p>
  <h3>Here's what you can do:</h3>
  <ul>
    <li>Complete your profile with your skills</li>
    <li>Search for other users to swap skills with</li>
    <li>Start building your network</li>
  </ul>
  <p>If you have any questions, feel free to reach out to our support team.</p>`,

	"password_reset": `<p>You requested a password reset for your Skill Swap Platform account.</p>
  <p>Please click the following button to reset your password:</p>
  <a href="{{.Link}}" style="background-color: #007bff; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; display: inline-block;">Reset Password</a>
  <p>This link will expire in 1 hour.</p>
  <p>If you didn't request this password reset, please ignore this email.</p>`,

	"swap_request": `<p><strong>{{.FromName}}</strong> wants to swap skills with you!</p>
  <div style="background-color: #f8f9fa; padding: 15px; border-radius: 4px; margin: 15px 0;">
    <p><strong>Skills offered:</strong> {{join .SkillsOffered}}</p>
    <p><strong>Skills requested:</strong> {{join .SkillsRequested}}</p>
    <p><strong>Message:</strong> {{.Message}}</p>
  </div>
  <p>Log in to your account to accept or reject this request.</p>`,

	"feedback": `<p><strong>{{.FromName}}</strong> left you feedback after your skill swap!</p>
  <div style="background-color: #f8f9fa; padding: 15px; border-radius: 4px; margin: 15px 0;">
    <p><strong>Rating:</strong> {{.Stars}} stars</p>
    <p><strong>Comment:</strong> {{.Message}}</p>
  </div>
  <p>Log in to your account to view all your feedback.</p>`,
}

var textBodies = map[string]string{
	"welcome": `Welcome to Skill Swap Platform! We're excited to have you join our community.

Here's what you can do:
- Complete your profile with your skills
- Search for other users to swap skills with
- Start building your network

If you have any questions, feel free to reach out to our support team.`,

	"password_reset": `You requested a password reset for your Skill Swap Platform account.

Please open the following link to reset your password:
{{.Link}}

This link will expire in 1 hour.

If you didn't request this password reset, please ignore this email.`,

	"swap_request": `{{.FromName}} wants to swap skills with you!

Skills offered: {{join .SkillsOffered}}
Skills requested: {{join .SkillsRequested}}
Message: {{.Message}}

Log in to your account to accept or reject this request.`,

	"feedback": `{{.FromName}} left you feedback after your skill swap!

Rating: {{.Stars}} stars
Comment: {{.Message}}

Log in to your account to view all your feedback.`,
}

const layoutText = `Hi {{.Name}},

{{template "body" .}}

Best regards,
The Skill Swap Team
`

var funcs = map[string]any{
	"join": func(items []string) string { return strings.Join(items, ", ") },
}

// templateData - данные, подставляемые в письма
type templateData struct {
	Subject         string
	Name            string
	FromName        string
	Link            string
	Message         string
	Stars           int
	SkillsOffered   []string
	SkillsRequested []string
}

type compiled struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

func compileTemplates() map[string]compiled {
	out := make(map[string]compiled, len(htmlBodies))
	for name, body := range htmlBodies {
		h := htmltemplate.Must(htmltemplate.New(name).Funcs(funcs).Parse(layoutHTML))
		htmltemplate.Must(h.New("body").Parse(body))

		t := texttemplate.Must(texttemplate.New(name).Funcs(funcs).Parse(layoutText))
		texttemplate.Must(t.New("body").Parse(textBodies[name]))

		out[name] = compiled{html: h, text: t}
	}
	return out
}
