// Package spaced_repetition turns a recall rating into a card's next due
// time and scheduling state. Answer is a pure function: no I/O, no clock
// access, no mutation of its input. Callers persist the returned card.
package spaced_repetition

import (
	"time"

	"github.com/example/memodeck/pkg/models"
)

// Rating is the user's recall quality for one answer.
type Rating int

const (
	Again Rating = 1
	Hard  Rating = 2
	Good  Rating = 3
	Easy  Rating = 4
)

// Valid reports whether the rating lies in the accepted 1..4 domain.
// Answer itself does not validate; the session boundary must.
func (r Rating) Valid() bool {
	return r >= Again && r <= Easy
}

const (
	minute = int64(60 * 1000)
	day    = int64(24 * 60 * 60 * 1000)

	// minFactor is the ease floor in thousandths.
	minFactor = 1300
	// graduateEasyDays is the interval given when a new card is rated
	// Easy and skips the learning steps entirely.
	graduateEasyDays = 4
	// firstReviewJump is the fixed interval step applied to a review
	// card whose interval is exactly one day.
	firstReviewJump = 6
)

// Answer applies one rating to a card at the given instant and returns the
// rescheduled card. Every answer increments reps; Again increments lapses.
// Due times are wall-clock offsets from now in Unix milliseconds; no
// calendar normalization is performed.
func Answer(card models.Card, rating Rating, now time.Time) models.Card {
	nowMs := now.UnixMilli()
	next := card
	next.Reps++
	if rating == Again {
		next.Lapses++
	}

	switch card.Queue {
	case models.QueueNew:
		return answerNew(next, rating, nowMs)
	case models.QueueLearning:
		return answerLearning(next, rating, nowMs)
	case models.QueueReview:
		return answerReview(next, rating, nowMs)
	case models.QueueDayLearning:
		return answerRelearning(next, rating, nowMs)
	}
	return next
}

func answerNew(c models.Card, rating Rating, now int64) models.Card {
	c.Type = models.CardTypeLearning
	c.Queue = models.QueueLearning
	c.Interval = 0

	switch rating {
	case Again:
		c.Due = now + 1*minute
	case Hard:
		c.Due = now + 6*minute
	case Good:
		c.Due = now + 10*minute
	case Easy:
		// Skip the learning steps and graduate straight to review.
		c.Type = models.CardTypeReview
		c.Queue = models.QueueReview
		c.Interval = graduateEasyDays
		c.Due = now + graduateEasyDays*day
	}
	return c
}

func answerLearning(c models.Card, rating Rating, now int64) models.Card {
	switch {
	case rating == Again:
		// Back to the first step.
		c.Due = now + 1*minute
	case rating >= Good:
		c.Type = models.CardTypeReview
		c.Queue = models.QueueReview
		c.Interval = 1
		c.Due = now + day
	default:
		// Hard repeats the current step.
		c.Due = now + 10*minute
	}
	return c
}

func answerReview(c models.Card, rating Rating, now int64) models.Card {
	if rating == Again {
		// Lapse: regress to relearning and punish the ease.
		c.Type = models.CardTypeRelearning
		c.Queue = models.QueueDayLearning
		c.Interval = 1
		c.Factor = maxInt(minFactor, c.Factor-200)
		c.Due = now + day
		return c
	}

	var ease int
	switch rating {
	case Hard:
		ease = -150
	case Easy:
		ease = 150
	}
	c.Factor = maxInt(minFactor, c.Factor+ease)

	switch {
	case c.Interval == 0:
		c.Interval = 1
	case c.Interval == 1:
		c.Interval = firstReviewJump
	default:
		var modifier float64
		switch rating {
		case Hard:
			modifier = 1.2
		case Good:
			modifier = float64(c.Factor) / 1000
		case Easy:
			modifier = float64(c.Factor) / 1000 * 1.3
		}
		c.Interval = ceilInt(float64(c.Interval) * modifier)
	}

	c.Due = now + int64(c.Interval)*day
	return c
}

// answerRelearning drives a lapsed card back toward review. The transition
// table mirrors the learning steps: success returns the card to review at
// the post-lapse interval.
func answerRelearning(c models.Card, rating Rating, now int64) models.Card {
	switch {
	case rating == Again:
		c.Due = now + 1*minute
	case rating >= Good:
		c.Type = models.CardTypeReview
		c.Queue = models.QueueReview
		if c.Interval < 1 {
			c.Interval = 1
		}
		c.Due = now + int64(c.Interval)*day
	default:
		c.Due = now + 10*minute
	}
	return c
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func ceilInt(f float64) int {
	n := int(f)
	if f > float64(n) {
		n++
	}
	return n
}
