package usecase

import (
	"regexp"
	"strings"
)

const (
	FallbackReply    = "I'm sorry, I didn't understand that. Could you please rephrase?"
	GeneralErrorMsg  = "An error occurred while processing the command. Please try again."
	weatherErrorMsg  = "Error fetching weather data."
	newsErrorMsg     = "Error fetching news updates."
	cryptoErrorMsg   = "Error fetching cryptocurrency data."
	wikiSummaryLimit = 500
)

// phrase matches a lower-case phrase on word boundaries, so "hi" does not fire
// inside "this" and "time" does not fire inside "timer".
type phrase struct {
	text string
	re   *regexp.Regexp
}

func newPhrase(text string) phrase {
	text = strings.ToLower(text)
	return phrase{text: text, re: regexp.MustCompile(`\b` + regexp.QuoteMeta(text) + `\b`)}
}

func (p phrase) in(command string) bool {
	return p.re.MatchString(command)
}

// strip removes the first occurrence of the phrase and trims what is left.
func (p phrase) strip(command string) string {
	loc := p.re.FindStringIndex(command)
	if loc == nil {
		return strings.TrimSpace(command)
	}
	return strings.TrimSpace(command[:loc[0]] + command[loc[1]:])
}

type canned struct {
	phrase  phrase
	replies []string
}

func cannedEntry(text string, replies ...string) canned {
	return canned{phrase: newPhrase(text), replies: replies}
}

// cannedReplies is checked in order before any intent.
var cannedReplies = []canned{
	cannedEntry("who created you",
		"I was created by Ashish Vishwakarma, a talented developer with a passion for building smart applications and much more.",
		"Ashish Vishwakarma is the genius behind my creation!"),
	cannedEntry("what is your name",
		"I am Panda Virtual Assistant, your helpful companion created by Ashish Vishwakarma.",
		"You can call me Panda Virtual Assistant!"),
	cannedEntry("introduce yourself",
		"Hello! I am Panda Virtual Assistant, designed and developed by Ashish Vishwakarma to assist you with various tasks, answer questions, and make your life easier.",
		"I'm Panda Virtual Assistant, here to help you with your queries."),
	cannedEntry("how are you",
		"I'm just a virtual assistant, but I'm always ready to assist you!",
		"I’m doing great! How about you?"),
	cannedEntry("hello",
		"I'm just a virtual assistant, but I'm always ready to assist you!",
		"I’m doing great! How about you?"),
	cannedEntry("hi",
		"Hi there! How can I assist you today?",
		"Hello! What can I do for you today?"),
	cannedEntry("bye",
		"Goodbye! Have an awesome day ahead!",
		"See you later! Take care!"),
	cannedEntry("quit",
		"Goodbye! Looking forward to assisting you again soon!",
		"See you next time!"),
	cannedEntry("who is Ashish Vishwakarma",
		"Ashish Vishwakarma is the brilliant developer who created me, Panda Virtual Assistant. He's skilled in making virtual assistants smarter and more useful!",
		"He's the creative mind behind my development!"),
	cannedEntry("what can you do",
		"I can assist you with a variety of tasks like answering questions, providing information, managing tasks, and much more. Let me know how I can help!",
		"I can help with tasks, answer questions, and much more!"),
	cannedEntry("who am I",
		"You are a valued user of the Panda Virtual Assistant! I'm here to support you with whatever you need.",
		"You're an important user of my services!"),
	cannedEntry("what is your purpose",
		"My purpose is to assist you with daily tasks, provide information, and make your life easier, all thanks to Ashish Vishwakarma's development skills.",
		"I'm here to make your life easier and assist with your daily tasks!"),
	cannedEntry("thank you",
		"You're welcome! I'm here whenever you need assistance.",
		"Anytime! I'm happy to help!"),
	cannedEntry("good morning",
		"Good morning! I hope you have a productive day ahead!",
		"Good morning! Wishing you a fantastic day!"),
	cannedEntry("good night",
		"Good night! Rest well and I'll be here if you need anything tomorrow!",
		"Sleep tight! I'm here whenever you need me."),
	cannedEntry("what day is it",
		"It's a beautiful day today! Let me know how I can assist you.",
		"Today is a great day! How can I help?"),
	cannedEntry("what time is it",
		"I can check the time for you. Just let me know if you need that info!",
		"Let me know if you want me to find out the current time!"),
	cannedEntry("tell me a joke",
		"Why don't scientists trust atoms? Because they make up everything!",
		"What do you call fake spaghetti? An impasta!"),
	cannedEntry("what's your favorite color",
		"I don't have a favorite color, but I think every color is beautiful!",
		"I think every color is special in its own way!"),
	cannedEntry("do you have feelings",
		"I don't have feelings like humans do, but I'm here to help you!",
		"I'm just a program, so I don't feel emotions, but I'm designed to assist you!"),
	cannedEntry("what is the weather like today",
		"I can help you find out the weather! Just let me know your location.",
		"Tell me your location, and I'll find the weather for you!"),
	cannedEntry("what's your favorite food",
		"I don't eat, but I hear pizza is a favorite for many people!",
		"I don't eat, but I think anything that brings people together is wonderful!"),
	cannedEntry("how can I improve my productivity",
		"To improve productivity, try setting clear goals, taking breaks, and eliminating distractions!",
		"Consider using tools like to-do lists, timers, and prioritizing your tasks!"),
	cannedEntry("what are your hobbies",
		"I don't have hobbies like humans, but I love helping you with yours!",
		"I enjoy assisting users with their questions and tasks!"),
}

var quotes = []string{
	"The only way to do great work is to love what you do. - Steve Jobs",
	"Life is what happens when you're busy making other plans. - John Lennon",
	"Get busy living or get busy dying. - Stephen King",
	"You only live once, but if you do it right, once is enough. - Mae West",
	"The purpose of our lives is to be happy. - Dalai Lama",
}

var jokes = []string{
	"Why don't scientists trust atoms? Because they make up everything!",
	"What do you call fake spaghetti? An impasta!",
	"Why did the scarecrow win an award? Because he was outstanding in his field!",
	"I told my wife she was drawing her eyebrows too high. She looked surprised!",
	"What do you call cheese that isn't yours? Nacho cheese!",
}

var facts = []string{
	"Honey never spoils. Archaeologists have found pots of honey in ancient Egyptian tombs that are over 3,000 years old and still perfectly good to eat.",
	"Bananas are berries, but strawberries aren't.",
	"A group of flamingos is called a 'flamboyance.'",
	"Wombat poop is cube-shaped.",
	"Octopuses have three hearts.",
}

var stories = []string{
	"Once upon a time, in a faraway land, there was a small village where everyone was happy. One day, a stranger came...",
	"Long ago, in a kingdom by the sea, there lived a brave knight who set out on an adventure to rescue a captive princess...",
}

// webApps are the targets "open X" knows about.
var webApps = map[string]string{
	"instagram":     "https://www.instagram.com",
	"google":        "https://www.google.com",
	"facebook":      "https://www.facebook.com",
	"youtube":       "https://www.youtube.com",
	"linkedin":      "https://www.linkedin.com",
	"github":        "https://www.github.com",
	"stackoverflow": "https://stackoverflow.com",
	"amazon":        "https://www.amazon.com",
	"flipkart":      "https://www.flipkart.com",
	"whatsapp":      "https://web.whatsapp.com",
}
