package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Half-Life 2", "halflife2"},
		{"Café São Paulo", "cafesaopaulo"},
		{"ÉLODIE", "elodie"},
		{"Widget Pro!!!", "widgetpro"},
		{"...", ""},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatName(tc.in), "FormatName(%q)", tc.in)
	}
}

func TestFormatNameIdempotent(t *testing.T) {
	for _, in := range []string{"Half-Life 2", "Café São Paulo", "Widget Pro", ""} {
		once := FormatName(in)
		assert.Equal(t, once, FormatName(once), "FormatName not idempotent for %q", in)
	}
}

func TestFormatRepackName(t *testing.T) {
	assert.Equal(t, "widgetpro", FormatRepackName("[DL] Widget Pro"))
	assert.Equal(t, "widgetpro", FormatRepackName("Widget Pro"))
	// only the first tag is stripped
	assert.Equal(t, "dlwidget", FormatRepackName("[DL] [DL] Widget"))
}

func TestBuildIndex(t *testing.T) {
	index := BuildIndex([]Entry{
		{ID: "1", Name: "Widget"},
		{ID: "2", Name: "Wonder Tool"},
		{ID: "3", Name: "Anvil"},
		{ID: "4", Name: "???"}, // formats to empty, dropped
	})

	assert.Len(t, index["w"], 2)
	assert.Len(t, index["a"], 1)
	assert.Equal(t, "widget", index["w"][0].FormattedName)
	assert.Equal(t, "wondertool", index["w"][1].FormattedName)

	total := 0
	for _, bucket := range index {
		total += len(bucket)
	}
	assert.Equal(t, 3, total)
}
