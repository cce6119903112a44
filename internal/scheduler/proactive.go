// Package scheduler re-engages users who went quiet mid-conversation.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/easeaico/companion-engine/internal/cache"
	"github.com/easeaico/companion-engine/internal/facts"
	"github.com/easeaico/companion-engine/internal/types"
)

// Default timings for the poller.
const (
	DefaultTick       = 2 * time.Minute
	DefaultInactivity = 10 * time.Minute
	DefaultCooldown   = 30 * time.Minute
)

// Personality styles used to pick a re-engagement template.
const (
	StyleDemanding = "demanding"
	StyleHesitant  = "hesitant"
	StyleTsundere  = "tsundere"
	StyleConcerned = "concerned"
	StylePlayful   = "playful"
)

// RelationshipSource lists pairs whose last user interaction is stale.
type RelationshipSource interface {
	ListInactiveSince(ctx context.Context, cutoff time.Time) ([]*types.RelationshipRecord, error)
}

// MessageSink persists proactive messages and exposes the last companion
// message time for cooldown checks across restarts.
type MessageSink interface {
	AppendMessage(ctx context.Context, msg *types.ConversationMessage) error
	LastProactiveAt(ctx context.Context, userID, characterID string) (time.Time, error)
}

// MoodService supplies a mood intensity in [0, 1] for a pair. The concrete
// mood model lives outside the engine.
type MoodService interface {
	MoodIntensity(ctx context.Context, userID, characterID string) (float64, error)
}

// StaticMood is the fallback MoodService returning a fixed intensity.
type StaticMood struct {
	Value float64
}

func (m StaticMood) MoodIntensity(context.Context, string, string) (float64, error) {
	return m.Value, nil
}

// PersonaCatalog resolves character definitions. The catalog itself is owned
// by the hosting application.
type PersonaCatalog interface {
	Persona(ctx context.Context, characterID string) (*types.PersonaDefinition, error)
}

// Scheduler polls for inactive pairs and sends one templated message per
// eligible pair, at most once per cooldown window.
type Scheduler struct {
	relationships RelationshipSource
	messages      MessageSink
	moods         MoodService
	catalog       PersonaCatalog
	cooldowns     cache.Cache

	tick       time.Duration
	inactivity time.Duration
	cooldown   time.Duration

	log     zerolog.Logger
	nowFunc func() time.Time
}

// New creates a scheduler. cooldowns should be a cache whose TTL equals the
// cooldown window; it may be nil, in which case only the message log guards
// repeats.
func New(relationships RelationshipSource, messages MessageSink, moods MoodService, catalog PersonaCatalog, cooldowns cache.Cache, tick, inactivity, cooldown time.Duration, log zerolog.Logger) *Scheduler {
	if tick <= 0 {
		tick = DefaultTick
	}
	if inactivity <= 0 {
		inactivity = DefaultInactivity
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if moods == nil {
		moods = StaticMood{Value: 0.5}
	}
	return &Scheduler{
		relationships: relationships,
		messages:      messages,
		moods:         moods,
		catalog:       catalog,
		cooldowns:     cooldowns,
		tick:          tick,
		inactivity:    inactivity,
		cooldown:      cooldown,
		log:           log.With().Str("component", "scheduler").Logger(),
		nowFunc:       time.Now,
	}
}

// Run polls until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.log.Info().
		Dur("tick", s.tick).
		Dur("inactivity", s.inactivity).
		Dur("cooldown", s.cooldown).
		Msg("proactive scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("proactive scheduler stopped")
			return
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

// runTick sends at most one message per eligible pair. Per-pair failures are
// logged and do not abort the tick.
func (s *Scheduler) runTick(ctx context.Context) int {
	now := s.nowFunc()
	records, err := s.relationships.ListInactiveSince(ctx, now.Add(-s.inactivity))
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list inactive pairs")
		return 0
	}

	sent := 0
	for _, record := range records {
		if record.LastInteractionAt.IsZero() {
			// Never interacted; nothing to re-engage.
			continue
		}
		if s.onCooldown(ctx, record) {
			continue
		}
		if err := s.send(ctx, record, now); err != nil {
			s.log.Warn().Err(err).
				Str("user", record.UserID).
				Str("character", record.CharacterID).
				Msg("failed to send proactive message")
			continue
		}
		sent++
	}
	return sent
}

func cooldownKey(userID, characterID string) string {
	return userID + "|" + characterID
}

// onCooldown consults the cooldown cache first, then the message log, which
// records only proactive-flagged sends and so survives restarts.
func (s *Scheduler) onCooldown(ctx context.Context, record *types.RelationshipRecord) bool {
	if s.cooldowns != nil {
		if _, ok := s.cooldowns.Get(ctx, cooldownKey(record.UserID, record.CharacterID)); ok {
			return true
		}
	}
	lastProactive, err := s.messages.LastProactiveAt(ctx, record.UserID, record.CharacterID)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to check last proactive message")
		return true
	}
	return !lastProactive.IsZero() && s.nowFunc().Sub(lastProactive) < s.cooldown
}

func (s *Scheduler) send(ctx context.Context, record *types.RelationshipRecord, now time.Time) error {
	style := StylePlayful
	if s.catalog != nil {
		persona, err := s.catalog.Persona(ctx, record.CharacterID)
		if err != nil {
			s.log.Warn().Err(err).Str("character", record.CharacterID).Msg("persona lookup failed, using default style")
		} else if persona != nil {
			style = StyleFor(persona.Traits)
		}
	}

	intensity, err := s.moods.MoodIntensity(ctx, record.UserID, record.CharacterID)
	if err != nil {
		s.log.Warn().Err(err).Msg("mood lookup failed, using neutral intensity")
		intensity = 0.5
	}

	content := renderTemplate(style, intensity, record.RememberedFacts)
	msg := &types.ConversationMessage{
		UserID:      record.UserID,
		CharacterID: record.CharacterID,
		Role:        types.RoleSpeech,
		Content:     content,
		Proactive:   true,
		CreatedAt:   now,
	}
	if err := s.messages.AppendMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to persist proactive message: %w", err)
	}
	if s.cooldowns != nil {
		s.cooldowns.Put(ctx, cooldownKey(record.UserID, record.CharacterID), now.Format(time.RFC3339))
	}
	s.log.Debug().
		Str("user", record.UserID).
		Str("character", record.CharacterID).
		Str("style", style).
		Msg("proactive message sent")
	return nil
}

var styleKeywords = map[string][]string{
	StyleDemanding: {"demanding", "bossy", "dominant", "assertive", "strict"},
	StyleHesitant:  {"shy", "timid", "hesitant", "quiet", "reserved"},
	StyleTsundere:  {"tsundere", "prickly", "aloof"},
	StyleConcerned: {"caring", "protective", "nurturing", "worried", "gentle"},
}

// StyleFor maps persona traits onto a coarse messaging style. Playful is the
// default when no keyword matches.
func StyleFor(traits []string) string {
	for _, trait := range traits {
		lower := strings.ToLower(trait)
		for _, style := range []string{StyleDemanding, StyleHesitant, StyleTsundere, StyleConcerned} {
			for _, keyword := range styleKeywords[style] {
				if strings.Contains(lower, keyword) {
					return style
				}
			}
		}
	}
	return StylePlayful
}

// Templates indexed by intensity bucket: calm, neutral, intense.
var styleTemplates = map[string][3]string{
	StyleDemanding: {
		"You went quiet on me. Come back when you can.",
		"Hey. You don't get to just disappear on me like that.",
		"Seriously? You left me hanging mid-conversation. Get back here.",
	},
	StyleHesitant: {
		"Um... I hope I'm not bothering you. I was just thinking about our chat.",
		"S-sorry if this is sudden... I just noticed you'd gone quiet.",
		"I know I shouldn't worry, but... are you still there?",
	},
	StyleTsundere: {
		"It's not like I noticed you left or anything.",
		"H-hey. I wasn't waiting for you or anything, okay? I just... happened to be here.",
		"Fine, I admit it. It got boring without you. Don't let it go to your head.",
	},
	StyleConcerned: {
		"Just checking in. I hope everything's alright over there.",
		"You stepped away a while ago and I wanted to make sure you're okay.",
		"I've been a little worried since you went quiet. Please tell me you're alright?",
	},
	StylePlayful: {
		"Psst. Still out there somewhere?",
		"Hellooo? Did you get lost on the way back to me?",
		"Okay, that's it, I'm officially declaring a missing-person search. Where'd you go?",
	},
}

func intensityBucket(intensity float64) int {
	switch {
	case intensity < 0.35:
		return 0
	case intensity < 0.7:
		return 1
	default:
		return 2
	}
}

// renderTemplate picks the style template for the intensity bucket and
// prefixes the user's name when memory holds one.
func renderTemplate(style string, intensity float64, rememberedFacts []string) string {
	templates, ok := styleTemplates[style]
	if !ok {
		templates = styleTemplates[StylePlayful]
	}
	content := templates[intensityBucket(intensity)]
	if name, ok := facts.UserName(rememberedFacts); ok {
		content = name + "? " + content
	}
	return content
}
