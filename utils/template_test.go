package utils

import (
	"testing"

	"callnexy/models"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	lead := models.Lead{Name: "Ada Lovelace", Phone: "+254700000001"}

	cases := []struct {
		name     string
		template string
		want     string
	}{
		{
			"all placeholders",
			"Hi {first_name}, this is for {name} at {phone}",
			"Hi Ada, this is for Ada Lovelace at +254700000001",
		},
		{
			"repeated placeholder",
			"{first_name}, {first_name}!",
			"Ada, Ada!",
		},
		{
			"unknown placeholder left untouched",
			"Hello {nickname}",
			"Hello {nickname}",
		},
		{
			"no placeholders",
			"Just checking in",
			"Just checking in",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RenderTemplate(tc.template, lead))
		})
	}
}

func TestRenderTemplateSingleWordName(t *testing.T) {
	lead := models.Lead{Name: "Cher"}
	assert.Equal(t, "Hi Cher", RenderTemplate("Hi {first_name}", lead))
}

func TestRenderTemplateEmptyLead(t *testing.T) {
	assert.Equal(t, "Hi ", RenderTemplate("Hi {name}", models.Lead{}))
}
