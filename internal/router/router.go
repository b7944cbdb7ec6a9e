// Package router classifies a student message into a course topic.
package router

import (
	"regexp"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

// Rule maps a keyword pattern to a topic.
type Rule struct {
	Topic   domain.Topic
	Pattern *regexp.Regexp
}

// Rules are tested in order; the first match wins. Short tokens such as "ai",
// "er", "ip" are matched on word boundaries so they do not fire inside other
// words ("explain", "server", "zip").
var rules = []Rule{
	{domain.TopicDSA, regexp.MustCompile(`(?i)\b(stacks?|queues?|trees?|graphs?|complexity|dp|dynamic programming|linked lists?|heaps?|sort(ing)?|recursion|big[- ]o|binary search|hash ?maps?|arrays?)\b`)},
	{domain.TopicAI, regexp.MustCompile(`(?i)\b(ai|ml|machine learning|neural|networks? training|regression|loss|gradients?|epochs?|backprop(agation)?|classifiers?|llms?)\b`)},
	{domain.TopicDBMS, regexp.MustCompile(`(?i)\b(sql|index(es|ing)?|er|normal(ization|ize|[1-5]?nf)?|acid|transactions?|joins?|primary key|foreign key|database)\b`)},
	{domain.TopicOS, regexp.MustCompile(`(?i)\b(process(es)?|threads?|schedul(e|ing|er)|deadlocks?|paging|memory|semaphores?|mutex(es)?|kernel|virtual memory)\b`)},
	{domain.TopicNet, regexp.MustCompile(`(?i)\b(tcp|udp|https?|dns|ip(v[46])?|osi|routing|sockets?|subnet(s|ting)?|packets?)\b`)},
}

// Classify returns the topic of text. It is pure and total: empty or
// unmatched input yields GENERAL.
func Classify(text string) domain.Topic {
	if text == "" {
		return domain.TopicGeneral
	}
	for _, r := range rules {
		if r.Pattern.MatchString(text) {
			return r.Topic
		}
	}
	return domain.TopicGeneral
}

// Rules returns a copy of the ordered rule table.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}
