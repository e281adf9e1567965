// Package assistant answers help questions from an ordered keyword table.
package assistant

import "strings"

// Rule answers with Response when the lower-cased question contains any of Keywords.
type Rule struct {
	Keywords []string
	Response string
}

// Assistant checks rules in order; the first match wins.
type Assistant struct {
	rules    []Rule
	fallback string
}

func New(rules []Rule, fallback string) *Assistant {
	return &Assistant{rules: rules, fallback: fallback}
}

// Default carries the portal's canned answers.
func Default() *Assistant {
	return New(DefaultRules, DefaultFallback)
}

func (a *Assistant) Reply(question string) string {
	q := strings.ToLower(question)
	for _, r := range a.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(q, kw) {
				return r.Response
			}
		}
	}
	return a.fallback
}

// Greeting opens a conversation.
const Greeting = "Hello! I'm your VoteSecure assistant. I can help you with voter registration, election schedules, voting procedures, and answer any questions about our platform. How can I assist you today?"

// QuickQuestions are suggested prompts.
var QuickQuestions = []string{
	"How do I register to vote?",
	"What documents do I need?",
	"When is the next election?",
	"How does biometric verification work?",
	"How do I check my registration status?",
}

const DefaultFallback = "I understand you're asking about voting or elections. Could you please be more specific? I can help with voter registration, election schedules, voting procedures, security features, or technical support. Try asking one of the quick questions below!"

// DefaultRules is order sensitive: "id" in the documents rule also matches words like
// "did", and "hi" matches "this".
var DefaultRules = []Rule{
	{
		Keywords: []string{"register", "registration"},
		Response: `To register to vote, click on "Register to Vote" on the homepage. You'll need to provide your full name, date of birth, address, and upload a valid ID document. After submission, an administrator will review and verify your registration within 2-3 business days.`,
	},
	{
		Keywords: []string{"document", "id"},
		Response: "You need a valid government-issued photo ID such as a driver's license, passport, or national ID card. The document should be clear, not expired, and match the information you provide in your registration form.",
	},
	{
		Keywords: []string{"biometric", "retina", "scan"},
		Response: "Our biometric verification uses retina scanning technology for secure voter authentication. On voting day, you'll be prompted to look into the scanner for 2-3 seconds. This ensures only verified voters can cast ballots and prevents duplicate voting.",
	},
	{
		Keywords: []string{"election", "when", "date"},
		Response: "The next major election is the Presidential Election scheduled for November 5, 2024. Local Council Elections are scheduled for August 15, 2024. You can view all upcoming elections and their schedules on our homepage.",
	},
	{
		Keywords: []string{"status", "check"},
		Response: `You can check your registration status by logging into your voter account. Your status will show as "Pending" (under review), "Verified" (approved for voting), or "Rejected" (needs correction). You'll also receive email notifications about status changes.`,
	},
	{
		Keywords: []string{"vote", "voting", "cast"},
		Response: "To vote, log in to your verified voter account during the scheduled voting period. Complete the biometric verification, then you'll see the ballot with all candidates. Select your choices and confirm your vote. You can only vote once per election.",
	},
	{
		Keywords: []string{"admin", "administrator"},
		Response: "Administrators are booth officers who manage the voting process. They review voter registrations, verify identities, register candidates, set voting schedules, and publish results. Only authorized personnel have admin access.",
	},
	{
		Keywords: []string{"secure", "security", "safe"},
		Response: "VoteSecure uses multiple security layers: JWT authentication, biometric verification, encrypted data transmission, immutable vote records, and regular security audits. Your vote is completely anonymous and cannot be traced back to you.",
	},
	{
		Keywords: []string{"help", "support"},
		Response: "I'm here to help! You can ask me about voter registration, election schedules, voting procedures, security features, or any technical issues. For complex problems, you can also contact our support team through the Help Center.",
	},
	{
		Keywords: []string{"hello", "hi", "hey"},
		Response: "Hello! Welcome to VoteSecure. I'm here to help you with any questions about voting, registration, or our platform. What would you like to know?",
	},
}
