package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/channel-agent/internal/config"
	"github.com/channel-agent/internal/corpus"
	"github.com/channel-agent/internal/generator"
	"github.com/channel-agent/internal/models"
	"github.com/channel-agent/internal/storage"
	"github.com/channel-agent/pkg/logger"
)

// Channel publishes a text and returns the message ID
type Channel interface {
	Publish(ctx context.Context, text string) (int, error)
}

// Tracker mirrors post state to an external log
type Tracker interface {
	TrackGenerated(ctx context.Context, post *models.GeneratedPost) error
	MarkPublished(ctx context.Context, post *models.GeneratedPost) error
	MarkFailed(ctx context.Context, post *models.GeneratedPost) error
}

// Generator writes one post per call
type Generator interface {
	Generate(ctx context.Context) (*generator.Result, error)
}

// Agent handles post generation, history and publishing to the channel
type Agent struct {
	generator  Generator
	repository storage.Repository
	channel    Channel
	tracker    Tracker
	corpus     config.CorpusConfig
	now        func() time.Time
	log        *logger.Logger
}

// NewAgent creates a new publisher agent
func NewAgent(
	gen Generator,
	repository storage.Repository,
	corpusConfig config.CorpusConfig,
	log *logger.Logger,
) *Agent {
	return &Agent{
		generator:  gen,
		repository: repository,
		corpus:     corpusConfig,
		now:        time.Now,
		log:        log.WithComponent("publisher"),
	}
}

// SetChannel enables publishing
func (a *Agent) SetChannel(ch Channel) {
	a.channel = ch
}

// SetTracker enables the external post log
func (a *Agent) SetTracker(t Tracker) {
	a.tracker = t
}

// RunOptions controls a generation run
type RunOptions struct {
	Count   int
	Publish bool
	DryRun  bool // generate only, nothing is stored or sent
}

// GenerateResult contains one generated post
type GenerateResult struct {
	Post      *models.GeneratedPost
	Result    *generator.Result
	Published bool
}

// Run generates opts.Count posts one after the other. A failed post does
// not stop the run; its error is collected.
func (a *Agent) Run(ctx context.Context, opts RunOptions) ([]*GenerateResult, []error) {
	if opts.Count < 1 {
		opts.Count = 1
	}

	var results []*GenerateResult
	var errs []error

	for i := 0; i < opts.Count; i++ {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		res, err := a.generateOne(ctx, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("post %d/%d: %w", i+1, opts.Count, err))
			continue
		}
		results = append(results, res)
	}

	return results, errs
}

func (a *Agent) generateOne(ctx context.Context, opts RunOptions) (*GenerateResult, error) {
	gen, err := a.generator.Generate(ctx)
	if err != nil {
		return nil, err
	}

	post := &models.GeneratedPost{
		Content:    gen.Text,
		Template:   gen.Template,
		LinkFormat: gen.Format,
		BonusName:  gen.Bonus.Name,
		BonusURL:   gen.Bonus.URL,
		Attempts:   gen.Attempts,
		Fallback:   gen.Fallback,
		Status:     models.GeneratedStatusDraft,
	}
	result := &GenerateResult{Post: post, Result: gen}

	if opts.DryRun {
		return result, nil
	}

	if err := a.repository.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to save post: %w", err)
	}

	log := a.log.WithPostID(post.ID)
	log.Info().
		Str("template", post.Template).
		Str("bonus", post.BonusName).
		Bool("fallback", post.Fallback).
		Msg("Post saved")

	if a.corpus.AppendGenerated && a.corpus.Path != "" {
		if _, err := corpus.Append(a.corpus.Path, post.Content, a.now()); err != nil {
			log.Warn().Err(err).Str("path", a.corpus.Path).Msg("Failed to append post to corpus")
		}
	}

	if a.tracker != nil {
		if err := a.tracker.TrackGenerated(ctx, post); err != nil {
			log.Warn().Err(err).Msg("Failed to track post")
		}
	}

	if opts.Publish {
		if _, err := a.publish(ctx, post); err != nil {
			return result, fmt.Errorf("post %d saved but not published: %w", post.ID, err)
		}
		result.Published = true
	}

	return result, nil
}

// PublishResult contains the result of publishing
type PublishResult struct {
	PostID    uint
	MessageID int
	Published bool
}

// Publish sends a stored post to the channel
func (a *Agent) Publish(ctx context.Context, postID uint) (*PublishResult, error) {
	post, err := a.repository.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	if !post.CanPublish() {
		return nil, fmt.Errorf("post %d already published", postID)
	}

	messageID, err := a.publish(ctx, post)
	if err != nil {
		return nil, err
	}

	return &PublishResult{PostID: post.ID, MessageID: messageID, Published: true}, nil
}

// PublishDrafts publishes every stored draft, oldest first
func (a *Agent) PublishDrafts(ctx context.Context) (int, []error) {
	draft := models.GeneratedStatusDraft
	posts, err := a.repository.ListPosts(ctx, storage.PostFilter{Status: &draft, OrderBy: "created_at"})
	if err != nil {
		return 0, []error{err}
	}

	var errs []error
	published := 0
	for _, post := range posts {
		if _, err := a.publish(ctx, post); err != nil {
			errs = append(errs, fmt.Errorf("post %d: %w", post.ID, err))
			continue
		}
		published++
	}

	return published, errs
}

func (a *Agent) publish(ctx context.Context, post *models.GeneratedPost) (int, error) {
	if a.channel == nil {
		return 0, fmt.Errorf("publishing is not configured")
	}

	log := a.log.WithPostID(post.ID)
	log.Info().Msg("Publishing post")

	messageID, err := a.channel.Publish(ctx, post.Content)
	if err != nil {
		post.Status = models.GeneratedStatusFailed
		post.ErrorMessage = err.Error()
		if uerr := a.repository.UpdatePost(ctx, post); uerr != nil {
			log.Warn().Err(uerr).Msg("Failed to record publish failure")
		}
		if a.tracker != nil {
			if terr := a.tracker.MarkFailed(ctx, post); terr != nil {
				log.Warn().Err(terr).Msg("Failed to update tracker")
			}
		}

		log.Error().Err(err).Msg("Failed to publish post")
		return 0, err
	}

	now := a.now()
	post.Status = models.GeneratedStatusPublished
	post.TelegramMessageID = messageID
	post.ErrorMessage = ""
	post.PublishedAt = &now
	if err := a.repository.UpdatePost(ctx, post); err != nil {
		return messageID, fmt.Errorf("published as message %d but failed to save: %w", messageID, err)
	}

	if a.tracker != nil {
		if err := a.tracker.MarkPublished(ctx, post); err != nil {
			log.Warn().Err(err).Msg("Failed to update tracker")
		}
	}

	log.Info().Int("message_id", messageID).Msg("Post published successfully")
	return messageID, nil
}
