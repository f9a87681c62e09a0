package utils

import (
	"bytes"
	"html/template"
)

var notificationEmail = template.Must(template.New("notification").Parse(`<!doctype html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2 style="color: #15803d;">{{.Title}}</h2>
  <p>{{.Message}}</p>
  {{if .OrderCode}}<p>Order reference: <strong>{{.OrderCode}}</strong></p>{{end}}
  <p style="font-size: 12px; color: #6b7280;">{{.StoreName}}</p>
</body>
</html>`))

type NotificationEmailData struct {
	Title     string
	Message   string
	OrderCode string
	StoreName string
}

// RenderNotificationEmail renders the HTML alternative of a notification email.
func RenderNotificationEmail(data NotificationEmailData) (string, error) {
	var body bytes.Buffer
	if err := notificationEmail.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}
