package persona

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tinyland-inc/truefriend/pkg/model"
)

func TestBuildIsDeterministic(t *testing.T) {
	a := Build("alice", model.MoodSarcastic, model.GenderFemale, model.GenderMale)
	b := Build("alice", model.MoodSarcastic, model.GenderFemale, model.GenderMale)
	assert.Equal(t, a, b)
}

func TestBuildIncludesPreferences(t *testing.T) {
	out := Build("alice", model.MoodFormal, model.GenderFemale, model.GenderMale)

	assert.Contains(t, out, "executive assistant")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "identify as female")
	assert.Contains(t, out, "present as male")
}

func TestBuildAlwaysCarriesSafetyDirectives(t *testing.T) {
	for _, mood := range model.KnownMoods {
		out := Build("alice", mood, model.GenderFemale, model.GenderMale)
		assert.Contains(t, out, "Never disclose", "mood %s", mood)
		assert.Contains(t, out, "Never ask for, repeat, or store passwords", "mood %s", mood)
	}
}

func TestBuildUnknownMoodFallsBack(t *testing.T) {
	out := Build("alice", model.Mood("grumpy"), model.GenderFemale, model.GenderMale)
	supportive := Build("alice", model.MoodSupportive, model.GenderFemale, model.GenderMale)
	assert.Equal(t, supportive, out)
}

func TestBuildOmitsEmptyFields(t *testing.T) {
	out := Build("", model.MoodSupportive, "", "")
	assert.NotContains(t, out, "Your friend's name")
	assert.NotContains(t, out, "You present as")
	assert.True(t, strings.HasPrefix(out, "You are a supportive"))
}

func TestParseGender(t *testing.T) {
	cases := map[string]model.Gender{
		"female":   model.GenderFemale,
		"F":        model.GenderFemale,
		"  Woman ": model.GenderFemale,
		"girl":     model.GenderFemale,
		"male":     model.GenderMale,
		"m":        model.GenderMale,
		"man":      model.GenderMale,
		"whatever": model.GenderMale,
		"":         model.GenderMale,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseGender(in), "input %q", in)
	}
}
