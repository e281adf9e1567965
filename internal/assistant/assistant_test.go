package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplyFirstMatchWins(t *testing.T) {
	a := Default()

	tests := []struct {
		question string
		want     string
	}{
		{"How do I REGISTER to vote?", DefaultRules[0].Response},
		{"What documents do I need?", DefaultRules[1].Response},
		{"How does biometric verification work?", DefaultRules[2].Response},
		{"When is the next election?", DefaultRules[3].Response},
		{"How do I check my registration status?", DefaultRules[0].Response},
		{"check my status", DefaultRules[4].Response},
		{"how do I cast a ballot", DefaultRules[5].Response},
		{"is it safe", DefaultRules[7].Response},
		{"hey", DefaultRules[9].Response},
		{"xyz", DefaultFallback},
		{"", DefaultFallback},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Reply(tt.question))
		})
	}
}

func TestCustomRules(t *testing.T) {
	a := New([]Rule{
		{Keywords: []string{"b"}, Response: "second"},
		{Keywords: []string{"ab"}, Response: "never"},
	}, "none")

	assert.Equal(t, "second", a.Reply("AB"))
	assert.Equal(t, "none", a.Reply("c"))
}

func TestQuickQuestionsAllMatchARule(t *testing.T) {
	a := Default()
	for _, q := range QuickQuestions {
		assert.NotEqual(t, DefaultFallback, a.Reply(q), q)
	}
}
