package tagging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticket-tagger/backend/internal/models"
)

func TestParseTagsAcceptsKnownCategories(t *testing.T) {
	set := NewCategorySet(models.Categories)
	cases := []struct {
		raw  string
		want []models.Category
	}{
		{`["Account Access","Technical Problem","General Inquiry"]`, []models.Category{"Account Access", "Technical Problem", "General Inquiry"}},
		{`["Bug Report"]`, []models.Category{"Bug Report"}},
		{`["Refund Request","Billing Issue","Refund Request","Bug Report"]`, []models.Category{"Refund Request", "Billing Issue", "Refund Request", "Bug Report"}},
		{`  ["General Inquiry"]  `, []models.Category{"General Inquiry"}},
		{`[]`, []models.Category{}},
	}
	for _, tc := range cases {
		res := ParseTags(tc.raw, set)
		require.Equal(t, Parsed, res.Outcome, "raw %q: %s", tc.raw, res.Reason)
		assert.Equal(t, tc.want, res.Tags, "raw %q", tc.raw)
		assert.Equal(t, tc.want, res.TagsOrEmpty())
	}
}

func TestParseTagsRejectsMalformed(t *testing.T) {
	set := NewCategorySet(models.Categories)
	cases := []string{
		"not json at all",
		"",
		`{"tags":["Bug Report"]}`,
		`"Bug Report"`,
		`["Not A Real Category"]`,
		`["Bug Report","billing issue"]`,
		`["Bug Report", 3]`,
		"```json\n[\"Bug Report\"]\n```",
	}
	for _, raw := range cases {
		res := ParseTags(raw, set)
		assert.Equal(t, Malformed, res.Outcome, "raw %q", raw)
		assert.Equal(t, raw, res.Raw)
		assert.NotEmpty(t, res.Reason)
		assert.NotNil(t, res.TagsOrEmpty())
		assert.Empty(t, res.TagsOrEmpty())
	}
}

func TestEmptyParsedDiffersFromMalformed(t *testing.T) {
	set := NewCategorySet(models.Categories)
	assert.Equal(t, Parsed, ParseTags(`[]`, set).Outcome)
	assert.Equal(t, Malformed, ParseTags(`[`, set).Outcome)
}
