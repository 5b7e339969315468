package core

import (
	"fmt"
	"strings"
)

// demoReplies is ordered: substring matching returns the first entry found.
var demoReplies = []struct {
	phrase string
	reply  string
}{
	{"hello", "Hello! How can I help you today? (Demo Mode)"},
	{"hi", "Hi there! I'm ready to assist you. (Demo Mode)"},
	{"how are you", "I'm doing great! Thanks for asking. (Demo Mode)"},
	{"what is your name", "I'm your AI assistant powered by Gemini! (Demo Mode)"},
	{"what can you do", "I can help you with various tasks like answering questions, creative writing, coding help, and more! (Demo Mode)"},
	{"bye", "Goodbye! Have a great day! (Demo Mode)"},
	{"goodbye", "See you later! Feel free to come back anytime. (Demo Mode)"},
	{"help", "I'm here to help! You can ask me questions, request explanations, or chat about various topics. (Demo Mode)"},
	{"test", "This is a test response. Everything is working correctly! (Demo Mode)"},
}

// DemoReply answers from the canned table without touching cache or network.
// An exact (case-insensitive, trimmed) match wins over substring matches.
func DemoReply(message string) string {
	normalized := strings.ToLower(strings.TrimSpace(message))

	for _, entry := range demoReplies {
		if normalized == entry.phrase {
			return entry.reply
		}
	}
	for _, entry := range demoReplies {
		if strings.Contains(normalized, entry.phrase) {
			return entry.reply
		}
	}
	return fmt.Sprintf("Demo Mode: I received your message '%s'. In real mode, I would provide an intelligent AI response using Gemini!", message)
}
