package i18n

import (
	"strconv"
	"strings"
)

type EmailContent struct {
	Subject string
	Text    string
	HTML    string
}

type emailStrings struct {
	LoginCodeSubject string
	LoginCodeText    string
	LoginCodeHTML    string
}

var emailTranslations = map[string]emailStrings{
	"en": {
		LoginCodeSubject: "Your TuniShield Login Code",
		LoginCodeText: "Your TuniShield login code is {code}.\n" +
			"It expires in {minutes} minutes.\n" +
			"If you did not request this code, you can ignore this email.",
		LoginCodeHTML: "<div style=\"font-family:sans-serif;max-width:480px;margin:auto\">" +
			"<h2>TuniShield</h2>" +
			"<p>Use this code to sign in:</p>" +
			"<p style=\"font-size:32px;letter-spacing:6px\"><strong>{code}</strong></p>" +
			"<p>The code expires in {minutes} minutes.</p>" +
			"<p>If you did not request this code, you can ignore this email.</p>" +
			"</div>",
	},
	"fr": {
		LoginCodeSubject: "Votre code de connexion TuniShield",
		LoginCodeText: "Votre code de connexion TuniShield est {code}.\n" +
			"Il expire dans {minutes} minutes.\n" +
			"Si vous n'avez pas demandé ce code, ignorez cet e-mail.",
		LoginCodeHTML: "<div style=\"font-family:sans-serif;max-width:480px;margin:auto\">" +
			"<h2>TuniShield</h2>" +
			"<p>Utilisez ce code pour vous connecter :</p>" +
			"<p style=\"font-size:32px;letter-spacing:6px\"><strong>{code}</strong></p>" +
			"<p>Le code expire dans {minutes} minutes.</p>" +
			"<p>Si vous n'avez pas demandé ce code, ignorez cet e-mail.</p>" +
			"</div>",
	},
	"ar": {
		LoginCodeSubject: "رمز الدخول إلى TuniShield",
		LoginCodeText: "رمز الدخول الخاص بك: {code}\n" +
			"ينتهي بعد {minutes} دقائق.",
		LoginCodeHTML: "<div dir=\"rtl\" style=\"font-family:sans-serif;max-width:480px;margin:auto\">" +
			"<h2>TuniShield</h2>" +
			"<p>رمز الدخول الخاص بك:</p>" +
			"<p style=\"font-size:32px;letter-spacing:6px\"><strong>{code}</strong></p>" +
			"<p>ينتهي بعد {minutes} دقائق.</p>" +
			"</div>",
	},
}

func emailStringsForLocale(locale string) emailStrings {
	if val, ok := emailTranslations[NormalizeLocale(locale)]; ok {
		return val
	}
	return emailTranslations[DefaultLocale]
}

func renderTemplate(tmpl string, values map[string]string) string {
	if tmpl == "" || len(values) == 0 {
		return tmpl
	}

	replacements := make([]string, 0, len(values)*2)
	for key, value := range values {
		replacements = append(replacements, "{"+key+"}", value)
	}
	return strings.NewReplacer(replacements...).Replace(tmpl)
}

// LoginCodeEmail renders the one-time login code message.
func LoginCodeEmail(locale, code string, minutes int) EmailContent {
	templates := emailStringsForLocale(locale)
	values := map[string]string{
		"code":    code,
		"minutes": strconv.Itoa(minutes),
	}
	return EmailContent{
		Subject: templates.LoginCodeSubject,
		Text:    renderTemplate(templates.LoginCodeText, values),
		HTML:    renderTemplate(templates.LoginCodeHTML, values),
	}
}
