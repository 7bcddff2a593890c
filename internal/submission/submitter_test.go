package submission

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/applypilot/internal/browser"
	"github.com/jonathan/applypilot/internal/discovery"
	"github.com/jonathan/applypilot/internal/types"
)

const jobURL = "https://boards.greenhouse.io/acme/jobs/1"

const greenhouseForm = `<html><body>
<form action="/acme/confirmation">
	<input type="text" name="job_application[first_name]">
	<input type="text" name="job_application[last_name]">
	<input type="email" name="job_application[email]">
	<input type="tel" name="job_application[phone]">
	<input type="file" name="resume">
	<div><label for="q1">Why Acme?</label><textarea id="q1"></textarea></div>
	<div><label for="q2">Biggest project</label><textarea id="q2"></textarea></div>
	<div><textarea></textarea></div>
	<button type="submit">Submit Application</button>
</form>
</body></html>`

var identity = types.Identity{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.org", Phone: "+1-555-0100"}

func openForm(t *testing.T, l *browser.StaticLauncher) *browser.StaticPage {
	t.Helper()
	sess, err := l.Launch(context.Background())
	require.NoError(t, err)
	page := sess.Page().(*browser.StaticPage)
	require.NoError(t, page.Navigate(context.Background(), jobURL))
	return page
}

func launcher(form string, confirmation string) *browser.StaticLauncher {
	return &browser.StaticLauncher{Pages: map[string]string{
		jobURL: form,
		"https://boards.greenhouse.io/acme/confirmation": confirmation,
	}}
}

func discoverPrompts(t *testing.T, page browser.Page) []types.FormPrompt {
	t.Helper()
	prompts, err := discovery.New(false).Discover(context.Background(), page)
	require.NoError(t, err)
	return prompts
}

func filled(page *browser.StaticPage) map[string]string {
	values := map[string]string{}
	for _, a := range page.Actions() {
		if a.Kind == "fill" || a.Kind == "type" {
			values[a.Target] = a.Value
		}
	}
	return values
}

func TestFillAndSubmit_Confirmed(t *testing.T) {
	page := openForm(t, launcher(greenhouseForm, `<html><body><h2>Thank you for applying to Acme!</h2></body></html>`))
	prompts := discoverPrompts(t, page)
	require.Equal(t, []string{"Why Acme?", "Biggest project", "question_3"}, types.PromptKeys(prompts))

	resume := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(resume, []byte("%PDF-1.7"), 0644))

	out, err := New(nil, Options{}).FillAndSubmit(context.Background(), page, Request{
		Identity:   identity,
		ResumePath: resume,
		Prompts:    prompts,
		Answers: types.DraftedAnswers{
			"Why Acme?":       "I have shipped payment systems.",
			"biggest project": "A ledger migration.",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, types.StatusSubmitted, out.Status)
	assert.True(t, out.Clicked)
	assert.Equal(t, "Thank you for applying to Acme!", out.ConfirmationText)

	values := filled(page)
	assert.Equal(t, "Ada", values[`input[name*="first_name" i]`])
	assert.Equal(t, "Lovelace", values[`input[name*="last_name" i]`])
	assert.Equal(t, "ada@example.org", values[`input[type="email" i]`])
	assert.Equal(t, "+1-555-0100", values[`input[type="tel" i]`])
	assert.Equal(t, "I have shipped payment systems.", values[discovery.FieldQuery(1).String()])
	assert.Equal(t, "A ledger migration.", values[discovery.FieldQuery(2).String()])
	assert.Equal(t, `Ada has relevant experience for "question_3" and is happy to discuss it in detail.`,
		values[discovery.FieldQuery(3).String()])

	keys := []string{}
	for _, f := range out.Fields {
		keys = append(keys, f.Key)
		assert.Empty(t, f.Error, f.Key)
	}
	assert.Equal(t, []string{"resume", "first_name", "last_name", "email", "phone", "Why Acme?", "Biggest project", "question_3"}, keys)
}

func TestFillAndSubmit_IdentitySelectorsIgnoreCase(t *testing.T) {
	form := `<html><body><form action="/acme/confirmation">
	<input type="text" name="candidate[First_Name]">
	<input type="text" id="LAST_NAME_input">
	<input type="text" name="Email_Address">
	<input type="text" name="Phone_Number">
	</form></body></html>`
	page := openForm(t, launcher(form, ""))

	out, err := New(nil, Options{}).FillAndSubmit(context.Background(), page, Request{Identity: identity})
	require.NoError(t, err)

	values := filled(page)
	assert.Equal(t, "Ada", values[`input[name*="first_name" i]`])
	assert.Equal(t, "Lovelace", values[`input[id*="last_name" i]`])
	assert.Equal(t, "ada@example.org", values[`input[name*="email" i]`])
	assert.Equal(t, "+1-555-0100", values[`input[name*="phone" i]`])
	assert.Len(t, out.Fields, 4)
}

func TestFillAndSubmit_Unconfirmed(t *testing.T) {
	page := openForm(t, launcher(greenhouseForm, `<html><body><p>We received your details.</p></body></html>`))

	out, err := New(nil, Options{}).FillAndSubmit(context.Background(), page, Request{Identity: identity})
	require.NoError(t, err)
	assert.Equal(t, types.StatusSubmittedUnconfirmed, out.Status)
	assert.True(t, out.Clicked)
	assert.Empty(t, out.ConfirmationText)
}

func TestFillAndSubmit_NoSubmitControl(t *testing.T) {
	form := strings.Replace(greenhouseForm, `<button type="submit">Submit Application</button>`, "", 1)
	page := openForm(t, launcher(form, ""))

	out, err := New(nil, Options{}).FillAndSubmit(context.Background(), page, Request{Identity: identity})
	require.NoError(t, err)
	assert.Equal(t, types.StatusPreviewed, out.Status)
	assert.False(t, out.Clicked)
	for _, a := range page.Actions() {
		assert.NotEqual(t, "click", a.Kind)
	}
}

func TestFillAndSubmit_ProbeOrder(t *testing.T) {
	form := `<html><body><form>
		<input type="submit" value="Send">
		<button type="submit">Go</button>
		<button type="button">Apply now</button>
	</form></body></html>`
	page := openForm(t, launcher(form, ""))

	out, err := New(nil, Options{}).FillAndSubmit(context.Background(), page, Request{Identity: identity})
	require.NoError(t, err)
	assert.True(t, out.Clicked)

	var clicked []string
	for _, a := range page.Actions() {
		if a.Kind == "click" {
			clicked = append(clicked, a.Target)
		}
	}
	assert.Equal(t, []string{`button:has-text("Apply")`}, clicked)
}

func TestFillAndSubmit_TypedFallbackAndFailure(t *testing.T) {
	l := launcher(greenhouseForm, `<html><body><p>Application submitted</p></body></html>`)
	q2 := discovery.FieldQuery(2).String()
	q3 := discovery.FieldQuery(3).String()
	l.FillHook = func(q browser.Query) error {
		if q.String() == q2 || q.String() == q3 {
			return errors.New("rich text editor")
		}
		return nil
	}
	l.TypeHook = func(q browser.Query) error {
		if q.String() == q3 {
			return errors.New("not focusable")
		}
		return nil
	}
	page := openForm(t, l)
	prompts := discoverPrompts(t, page)

	out, err := New(nil, Options{}).FillAndSubmit(context.Background(), page, Request{Identity: identity, Prompts: prompts})
	require.NoError(t, err)
	assert.Equal(t, types.StatusSubmitted, out.Status)
	assert.Equal(t, "Application submitted", out.ConfirmationText)

	byKey := map[string]types.FieldDiagnostic{}
	for _, f := range out.Fields {
		byKey[f.Key] = f
	}
	assert.False(t, byKey["Why Acme?"].Typed)
	assert.True(t, byKey["Biggest project"].Typed)
	assert.Empty(t, byKey["Biggest project"].Error)
	assert.Equal(t, types.FieldFillFailed, byKey["question_3"].Error)
	assert.Equal(t, 3, byKey["question_3"].Ordinal)
}

func TestFillAndSubmit_MapsByDiscoveryOrdinal(t *testing.T) {
	page := openForm(t, launcher(greenhouseForm, ""))
	// Drafting was keyed on labels seen during discovery; the fill pass must use
	// them even if label resolution would now yield something else.
	prompts := []types.FormPrompt{
		{Key: "Motivation", Kind: types.PromptLongAnswer, Ordinal: 1},
		{Key: "Project", Kind: types.PromptLongAnswer, Ordinal: 2},
	}
	out, err := New(nil, Options{}).FillAndSubmit(context.Background(), page, Request{
		Identity: identity,
		Prompts:  prompts,
		Answers:  types.DraftedAnswers{"motivation": "Because.", "Biggest project": "Ledger."},
	})
	require.NoError(t, err)

	values := filled(page)
	assert.Equal(t, "Because.", values[discovery.FieldQuery(1).String()])
	assert.Equal(t, "Ledger.", values[discovery.FieldQuery(2).String()])
	assert.Equal(t, "Motivation", out.Fields[4].Key)
	assert.Equal(t, "Biggest project", out.Fields[5].Key)
}

func TestFillAndSubmit_Screenshots(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "debug")
	page := openForm(t, launcher(greenhouseForm, `<html><body><p>Thank you</p></body></html>`))

	out, err := New(nil, Options{DebugDir: dir}).FillAndSubmit(context.Background(), page, Request{Identity: identity, Tag: "42"})
	require.NoError(t, err)
	require.Contains(t, out.Screenshots, "before_submit")
	require.Contains(t, out.Screenshots, "after_submit")
	assert.FileExists(t, filepath.Join(dir, "42_before_submit.png"))
	assert.FileExists(t, filepath.Join(dir, "42_after_submit.png"))
}

func TestFillAndSubmit_NoPage(t *testing.T) {
	sess, err := (&browser.StaticLauncher{}).Launch(context.Background())
	require.NoError(t, err)
	_, err = New(nil, Options{}).FillAndSubmit(context.Background(), sess.Page(), Request{Identity: identity})
	assert.Error(t, err)
}

func TestExtractConfirmation(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"thank you", "Header\n  Thank you for applying!  \nFooter", "Thank you for applying!"},
		{"submitted", "APPLICATION SUBMITTED", "APPLICATION SUBMITTED"},
		{"confirmation", "Your confirmation number is 123", "Your confirmation number is 123"},
		{"first match wins", "confirmation\nthank you", "confirmation"},
		{"no phrase", "Please complete all required fields", ""},
		{"empty", "", ""},
		{"phrase split across lines", "thank\nyou", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, tt.want, ExtractConfirmation(tt.text))
			})
		})
	}
}

func TestExtractConfirmation_NonEmptyWhenPhrasePresent(t *testing.T) {
	for _, phrase := range []string{"thank you", "Application Submitted", "CONFIRMATION"} {
		for _, wrap := range []string{"%s", "prefix %s suffix", "line one\n\t%s.\nline three"} {
			text := strings.Replace(wrap, "%s", phrase, 1)
			assert.NotEmpty(t, ExtractConfirmation(text), text)
		}
	}
}

func TestFillerAnswer(t *testing.T) {
	assert.Equal(t, `Ada has relevant experience for "Why us?" and is happy to discuss it in detail.`, FillerAnswer("Ada", "Why us?"))
	assert.True(t, strings.HasPrefix(FillerAnswer("", "x"), "The applicant has"))
}
