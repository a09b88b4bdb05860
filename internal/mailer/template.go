package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
)

// subjects and bodies form the required 2x2 (kind x locale) matrix.
// Body HTML wraps a single <body dir="ltr"|"rtl">
// matching the locale.
var subjects = map[Kind]map[Locale]string{
	EmailVerification: {
		English: "Confirm your email address",
		Hebrew:  "אמתו את כתובת הדוא\"ל שלכם",
	},
	PasswordReset: {
		English: "Reset your password",
		Hebrew:  "איפוס הסיסמה שלכם",
	},
}

var textBodies = map[Kind]map[Locale]string{
	EmailVerification: {
		English: "Confirm your email address by visiting: {{.Link}}",
		Hebrew:  "אשרו את כתובת הדוא\"ל שלכם על ידי כניסה לקישור: {{.Link}}",
	},
	PasswordReset: {
		English: "Reset your password by visiting: {{.Link}}",
		Hebrew:  "אפסו את הסיסמה שלכם על ידי כניסה לקישור: {{.Link}}",
	},
}

var htmlBodies = map[Kind]map[Locale]string{
	EmailVerification: {
		English: `<body dir="ltr"><p>Confirm your email address by clicking <a href="{{.Link}}">here</a>.</p></body>`,
		Hebrew:  `<body dir="rtl"><p>אשרו את כתובת הדוא"ל שלכם בלחיצה <a href="{{.Link}}">כאן</a>.</p></body>`,
	},
	PasswordReset: {
		English: `<body dir="ltr"><p>Reset your password by clicking <a href="{{.Link}}">here</a>.</p></body>`,
		Hebrew:  `<body dir="rtl"><p>אפסו את הסיסמה שלכם בלחיצה <a href="{{.Link}}">כאן</a>.</p></body>`,
	},
}

type templateData struct {
	Link string
}

func renderTemplates(kind Kind, locale Locale, link string) (rendered, error) {
	subject, ok := subjects[kind][locale]
	if !ok {
		return rendered{}, fmt.Errorf("mailer: no subject template for kind=%v locale=%v", kind, locale)
	}

	text, err := execText(textBodies[kind][locale], link)
	if err != nil {
		return rendered{}, fmt.Errorf("mailer: rendering text body: %w", err)
	}
	html, err := execHTML(htmlBodies[kind][locale], link)
	if err != nil {
		return rendered{}, fmt.Errorf("mailer: rendering html body: %w", err)
	}

	return rendered{Subject: subject, Text: text, HTML: html}, nil
}

func execText(tpl, link string) (string, error) {
	t, err := template.New("text").Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, templateData{Link: link}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func execHTML(tpl, link string) (string, error) {
	t, err := htmltemplate.New("html").Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, templateData{Link: link}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
