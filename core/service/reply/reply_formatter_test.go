package reply

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatGreetingBodySignature(t *testing.T) {
	got := Format("Hey there,\nBody line one.\nBody line two.\nCheers,\nAlex", "Alex")

	want := "Hey there,<div><br></div>\n" +
		"<div>Body line one.</div>\n" +
		"<div>Body line two.</div>\n" +
		"<div><br></div>Cheers,<div><br></div>Alex"
	assert.Equal(t, want, got)

	assert.Equal(t, 1, strings.Count(got, "Hey there,"+BlankBlock))
	assert.Contains(t, got, "Hey there,"+BlankBlock+"\n<div>Body line one.</div>")
	assert.Contains(t, got, "<div>Body line two.</div>\n"+BlankBlock+"Cheers,")
	assert.True(t, strings.HasSuffix(got, "Alex"))
	assert.NotContains(t, got, "<div>Alex</div>")
}

func TestClassifyLinesRoles(t *testing.T) {
	lines := ClassifyLines("Hi Sam,\n\n\nThanks for the note.\nCheers,\nalex", "Alex")
	require.Len(t, lines, 4)

	assert.Equal(t, LineGreeting, lines[0].Kind)
	assert.Equal(t, LineParagraph, lines[1].Kind)
	assert.Equal(t, LineSignatureOpen, lines[2].Kind)
	assert.Equal(t, LineSignatureName, lines[3].Kind)
	assert.Equal(t, "alex", lines[3].Text)
}

func TestFormatNameAfterOtherOpenerIsWrapped(t *testing.T) {
	tests := []struct {
		name   string
		opener string
	}{
		{"thanks", "Thanks,"},
		{"best", "Best,"},
		{"regards", "Regards,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := ClassifyLines("Hi Sam,\nThe fix is live.\n"+tt.opener+"\nAlex", "Alex")
			require.Len(t, lines, 4)
			assert.Equal(t, LineParagraph, lines[3].Kind)

			got := Format("Hi Sam,\nThe fix is live.\n"+tt.opener+"\nAlex", "Alex")
			assert.True(t, strings.HasSuffix(got, tt.opener+"\n<div>Alex</div>"), got)
		})
	}
}

func TestFormatNameAfterCheersInsideParagraph(t *testing.T) {
	// any previous unit containing "Cheers," qualifies, not only an opener line
	lines := ClassifyLines("Hi Jo,\nWe said Cheers, then left.\nAlex", "Alex")
	require.Len(t, lines, 3)
	assert.Equal(t, LineSignatureName, lines[2].Kind)
}

func TestFormatEmptyInput(t *testing.T) {
	assert.Equal(t, "", Format("", "Alex"))
	assert.Equal(t, "", Format(" \n\n \t", "Alex"))
	assert.Nil(t, ClassifyLines("", "Alex"))
}

func TestFormatStripsMarkup(t *testing.T) {
	got := Format("<p>Hello Jo,</p>\n<p>See <b>attached</b>.</p>", "Alex")
	assert.Equal(t, "Hello Jo,"+BlankBlock+"\n<div>See attached.</div>", got)
}

func TestFormatCollapsesDoubleBlankBlocks(t *testing.T) {
	// greeting emits a trailing blank block, signature opener a leading one
	got := Format("Hello Sam,\nRegards,\nAlex", "Alex")

	assert.NotContains(t, got, BlankBlock+"\n"+BlankBlock)
	assert.NotContains(t, got, BlankBlock+BlankBlock)
	assert.True(t, strings.HasPrefix(got, "Hello Sam,"+BlankBlock+"Regards,"))
}

func TestFormatFirstLineWithoutGreeting(t *testing.T) {
	got := Format("Quick update on the release.\nIt ships Monday.", "Alex")
	assert.Equal(t, "Quick update on the release.\n<div>It ships Monday.</div>", got)
}

func TestFormatInsertsBlankBetweenBareLines(t *testing.T) {
	// a signature opener as the first line leaves the next line unwrapped
	got := Format("Thanks, all\nSee you soon\nagain", "Alex")
	assert.Equal(t, BlankBlock+"Thanks, all"+BlankBlock+"See you soon\n<div>again</div>", got)
}

func TestFormatStripsBoilerplate(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"attention", "Hi Jo,\nThe fix is live. thank you for your attention to this matter.\nCheers,\nAlex"},
		{"consideration", "Hi Jo,\nThe fix is live. THANK YOU FOR YOUR CONSIDERATION.\nCheers,\nAlex"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.in, "Alex")
			lower := strings.ToLower(got)
			assert.NotContains(t, lower, "thank you for your attention to this matter.")
			assert.NotContains(t, lower, "thank you for your consideration.")
			assert.Contains(t, got, "The fix is live.")
		})
	}
}

func TestFormatNameOnSignatureLineIsNotSplit(t *testing.T) {
	lines := ClassifyLines("Hi Jo,\nAll good.\nCheers, Alex", "Alex")
	require.Len(t, lines, 3)
	assert.Equal(t, LineSignatureOpen, lines[2].Kind)
	assert.Equal(t, "Cheers, Alex", lines[2].Text)

	got := Format("Hi Jo,\nAll good.\nCheers, Alex", "Alex")
	assert.True(t, strings.HasSuffix(got, BlankBlock+"Cheers, Alex"))
}

func TestFormatNameWithoutOpenerIsParagraph(t *testing.T) {
	lines := ClassifyLines("Hi Jo,\nAll good.\nAlex", "Alex")
	require.Len(t, lines, 3)
	assert.Equal(t, LineParagraph, lines[2].Kind)
}

func TestLineKindString(t *testing.T) {
	assert.Equal(t, "greeting", LineGreeting.String())
	assert.Equal(t, "signature-open", LineSignatureOpen.String())
	assert.Equal(t, "signature-name", LineSignatureName.String())
	assert.Equal(t, "lead", LineLead.String())
	assert.Equal(t, "paragraph", LineParagraph.String())
}
