package utils

import (
	"strings"

	"callnexy/models"
)

// RenderTemplate substitutes lead placeholders into a message template by
// literal replacement. Unknown placeholders are left untouched so a typo in
// a template is visible in the delivered text instead of silently eaten.
func RenderTemplate(template string, lead models.Lead) string {
	firstName := lead.Name
	if idx := strings.IndexByte(firstName, ' '); idx > 0 {
		firstName = firstName[:idx]
	}

	message := template
	message = strings.ReplaceAll(message, "{name}", lead.Name)
	message = strings.ReplaceAll(message, "{first_name}", firstName)
	message = strings.ReplaceAll(message, "{phone}", lead.Phone)
	return message
}
