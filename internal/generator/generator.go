// Package generator writes channel posts with a completion API: it rotates
// prompt templates, link formats and bonuses, validates and repairs the
// output and falls back to a plain post when every attempt fails.
package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/channel-agent/internal/ai"
	"github.com/channel-agent/internal/config"
	"github.com/channel-agent/internal/models"
	"github.com/channel-agent/pkg/logger"
)

// ErrAllAttemptsFailed is returned when no attempt produced a valid post
// and the fallback is disabled
var ErrAllAttemptsFailed = errors.New("all generation attempts failed")

// FallbackTemplate is the template name recorded for fallback posts
const FallbackTemplate = "fallback"

// Result is a generated post with how it was made
type Result struct {
	Text       string
	Template   string
	Format     models.LinkFormat
	Bonus      models.Bonus
	Attempts   int
	Fallback   bool
	Rejections []string
}

// Generator produces one post per Generate call. Calls are serialised so
// completion requests are never concurrent.
type Generator struct {
	completer   ai.Completer
	validator   *Validator
	cfg         config.GeneratorConfig
	temperature float64
	maxTokens   int

	bonuses   []models.Bonus
	formats   []models.LinkFormat
	templates []Template

	recentTemplates *Recent[string]
	recentFormats   *Recent[models.LinkFormat]
	recentBonuses   *Recent[string]
	history         []string

	rnd   *rand.Rand
	sleep func(ctx context.Context, d time.Duration) error
	mu    sync.Mutex
	log   *logger.Logger
}

// New creates a generator
func New(
	completer ai.Completer,
	aiConfig config.AIConfig,
	genConfig config.GeneratorConfig,
	bonuses []models.Bonus,
	log *logger.Logger,
) (*Generator, error) {
	if len(bonuses) == 0 {
		return nil, fmt.Errorf("no bonuses configured")
	}
	for i, b := range bonuses {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("bonuses[%d]: %w", i, err)
		}
	}

	formats, err := resolveFormats(genConfig.LinkFormats)
	if err != nil {
		return nil, err
	}

	if genConfig.MaxAttempts < 1 {
		genConfig.MaxAttempts = 1
	}

	return &Generator{
		completer:       completer,
		validator:       NewValidator(genConfig),
		cfg:             genConfig,
		temperature:     aiConfig.Temperature,
		maxTokens:       aiConfig.MaxTokens,
		bonuses:         bonuses,
		formats:         formats,
		templates:       Templates,
		recentTemplates: NewRecent[string](genConfig.RecentTemplates),
		recentFormats:   NewRecent[models.LinkFormat](genConfig.RecentFormats),
		recentBonuses:   NewRecent[string](genConfig.RecentBonuses),
		rnd:             rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:           sleepContext,
		log:             log.WithComponent("generator"),
	}, nil
}

// Seed loads rotation state and the dedup history from stored posts,
// newest first
func (g *Generator) Seed(posts []*models.GeneratedPost) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := len(posts) - 1; i >= 0; i-- {
		p := posts[i]
		g.remember(p.Content, p.Template, p.LinkFormat, p.BonusName)
	}

	g.log.Debug().
		Int("posts", len(posts)).
		Strs("recent_templates", g.recentTemplates.Items()).
		Msg("Rotation seeded from history")
}

// Generate writes one post
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	bonus := g.pickBonus()
	format := Pick(g.formats, g.recentFormats, nil, g.rnd)
	block := FormatBonus(bonus, format, CallsToAction[g.rnd.Intn(len(CallsToAction))])
	system := BuildSystemPrompt(g.cfg.ChannelName)

	g.log.Info().
		Str("bonus", bonus.Name).
		Str("link_format", string(format)).
		Msg("Generating post")

	tried := make(map[string]bool)
	var rejections []string
	var lastErr error

	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		log := g.log.WithAttempt(attempt)

		if attempt > 1 {
			if err := g.sleep(ctx, g.cfg.RetryDelay); err != nil {
				return nil, err
			}
		}

		tmpl := g.pickTemplate(tried)
		tried[tmpl.Name] = true

		raw, err := g.completer.Complete(ctx, ai.CompletionRequest{
			System:      system,
			User:        BuildUserPrompt(tmpl, bonus.Name, bonus.Text, rejections),
			Temperature: g.temperature,
			MaxTokens:   g.maxTokens,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			log.Warn().Err(err).Str("template", tmpl.Name).Msg("Completion failed")
			continue
		}

		text, err := g.validator.Process(raw, block, g.history)
		if err != nil {
			lastErr = err
			rejections = append(rejections, Reason(err))
			log.Warn().Err(err).Str("template", tmpl.Name).Msg("Post rejected")
			continue
		}

		result := &Result{
			Text:       text,
			Template:   tmpl.Name,
			Format:     format,
			Bonus:      bonus,
			Attempts:   attempt,
			Rejections: rejections,
		}
		g.remember(result.Text, result.Template, format, bonus.Name)

		log.Info().Str("template", tmpl.Name).Int("length", visibleLength(text)).Msg("Post generated")
		return result, nil
	}

	if !g.cfg.FallbackEnabled {
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrAllAttemptsFailed, g.cfg.MaxAttempts, lastErr)
	}

	g.log.Warn().Err(lastErr).Int("attempts", g.cfg.MaxAttempts).Msg("Using fallback post")

	body := fmt.Sprintf(fallbackTexts[g.rnd.Intn(len(fallbackTexts))], bonus.Name)
	result := &Result{
		Text:       assemble(body, block),
		Template:   FallbackTemplate,
		Format:     format,
		Bonus:      bonus,
		Attempts:   g.cfg.MaxAttempts,
		Fallback:   true,
		Rejections: rejections,
	}
	g.remember(result.Text, "", format, bonus.Name)

	return result, nil
}

// remember records a post in the rotation state and the dedup history
func (g *Generator) remember(text, template string, format models.LinkFormat, bonusName string) {
	if _, ok := g.templateByName(template); ok {
		g.recentTemplates.Add(template)
	}
	if format != "" && format != models.LinkFormatNone {
		g.recentFormats.Add(format)
	}
	if bonusName != "" {
		g.recentBonuses.Add(bonusName)
	}

	if text == "" || g.cfg.HistorySize <= 0 {
		return
	}
	g.history = append([]string{text}, g.history...)
	if len(g.history) > g.cfg.HistorySize {
		g.history = g.history[:g.cfg.HistorySize]
	}
}

func (g *Generator) pickBonus() models.Bonus {
	names := make([]string, len(g.bonuses))
	for i, b := range g.bonuses {
		names[i] = b.Name
	}

	name := Pick(names, g.recentBonuses, nil, g.rnd)
	for _, b := range g.bonuses {
		if b.Name == name {
			return b
		}
	}
	return g.bonuses[0]
}

func (g *Generator) pickTemplate(tried map[string]bool) Template {
	names := make([]string, len(g.templates))
	for i, t := range g.templates {
		names[i] = t.Name
	}

	if t, ok := g.templateByName(Pick(names, g.recentTemplates, tried, g.rnd)); ok {
		return t
	}
	return g.templates[0]
}

// templateByName looks a template up among the rotating ones. Fallback
// posts and retired templates are not found.
func (g *Generator) templateByName(name string) (Template, bool) {
	for _, t := range g.templates {
		if t.Name == name {
			return t, true
		}
	}
	return Template{}, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
