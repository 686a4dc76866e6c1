// Package reply picks the canned response the honeypot sends back to a
// caller. Selection is a fixed substring dispatch into small literal lists
// followed by a uniform random pick.
package reply

import (
	"math/rand"
	"strings"
)

// Category names a reply list.
type Category string

const (
	CategoryCredential Category = "credential"
	CategoryPayment    Category = "payment"
	CategoryAccount    Category = "account"
	CategoryPrize      Category = "prize"
	CategoryLink       Category = "link"
	CategoryGeneric    Category = "generic"
)

// rule routes text containing any of its cues to a category.
type rule struct {
	category Category
	cues     []string
}

// dispatch is evaluated top to bottom; the first matching rule wins.
var dispatch = []rule{
	{CategoryCredential, []string{"otp", "cvv", "atm pin", "password"}},
	{CategoryPayment, []string{"upi", "transfer", "payment", "refund"}},
	{CategoryAccount, []string{"bank", "account", "kyc", "blocked", "suspended"}},
	{CategoryPrize, []string{"lottery", "prize", "winner", "reward"}},
	{CategoryLink, []string{"link", "click", "http"}},
}

var replies = map[Category][]string{
	CategoryCredential: {
		"I got a code just now but it has too many digits, which part do you need?",
		"My son set up the phone, I don't know where the OTP goes. Can you call me instead?",
		"Is the PIN the one on the back of the card or the one I use at the ATM?",
		"Hold on, I am looking for my reading glasses to see the message.",
	},
	CategoryPayment: {
		"My UPI app is asking me to update. Should I do that first?",
		"How much should I send? My daily limit is very small.",
		"The transfer failed, it says server busy. Can you send me your account number again?",
		"Can I pay by cheque? I don't trust these apps.",
	},
	CategoryAccount: {
		"Oh no, which bank is this? I have accounts in two banks.",
		"Why is my account blocked? I used it yesterday at the market.",
		"Can I come to the branch tomorrow and do the KYC there?",
		"Please don't close my account, my pension comes into it.",
	},
	CategoryPrize: {
		"Really? I never win anything! What do I have to do?",
		"Which lottery is this? I don't remember buying a ticket.",
		"Can you send the prize to my grandson instead? He handles my money.",
	},
	CategoryLink: {
		"The link is not opening on my phone, it shows a blank page.",
		"My antivirus says the website is dangerous. Is that normal?",
		"Can you send the link again? I think I deleted it by mistake.",
	},
	CategoryGeneric: {
		"Sorry, who is this? I don't have this number saved.",
		"I'm not sure I understand. Can you explain again slowly?",
		"Let me ask my son when he comes home and get back to you.",
		"Okay, what should I do next?",
	},
}

// Picker selects replies.
type Picker struct {
	intn func(n int) int
}

// Option configures a Picker.
type Option func(*Picker)

// WithIntn overrides the random source. intn must return a value in [0, n).
func WithIntn(intn func(n int) int) Option {
	return func(p *Picker) { p.intn = intn }
}

// NewPicker returns a Picker backed by math/rand/v2 unless overridden.
func NewPicker(opts ...Option) *Picker {
	p := &Picker{intn: rand.Intn}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Classify returns the reply category for text.
func Classify(text string) Category {
	lower := strings.ToLower(text)
	for _, r := range dispatch {
		for _, cue := range r.cues {
			if strings.Contains(lower, cue) {
				return r.category
			}
		}
	}
	return CategoryGeneric
}

// Pick returns a reply for text.
func (p *Picker) Pick(text string) string {
	return p.From(Classify(text))
}

// From returns a random reply from the given category, falling back to the
// generic list for unknown categories.
func (p *Picker) From(c Category) string {
	list, ok := replies[c]
	if !ok || len(list) == 0 {
		list = replies[CategoryGeneric]
	}
	return list[p.intn(len(list))]
}

// Replies returns a copy of the reply list for a category.
func Replies(c Category) []string {
	return append([]string(nil), replies[c]...)
}

// Categories returns every category in dispatch order, generic last.
func Categories() []Category {
	out := make([]Category, 0, len(dispatch)+1)
	for _, r := range dispatch {
		out = append(out, r.category)
	}
	return append(out, CategoryGeneric)
}
