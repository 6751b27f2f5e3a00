package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/sync/singleflight"
)

// ErrNoInformation indicates the corpus has nothing relevant to the question.
var ErrNoInformation = errors.New("no relevant faq information")

// Synthesizer turns retrieved passages into a short grounded answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, passages []string) (string, error)
}

// SystemConfig tunes retrieval.
type SystemConfig struct {
	// TopK is how many passages to retrieve. 0 means 3.
	TopK int32
	// Threshold is the minimum cosine similarity for a passage to count as
	// relevant. 0 means 0.3.
	Threshold float32
	// CacheSize bounds the answer cache. 0 means 256 entries.
	CacheSize int
}

func (c *SystemConfig) applyDefaults() {
	if c.TopK <= 0 {
		c.TopK = 3
	}
	if c.Threshold <= 0 {
		c.Threshold = 0.3
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 256
	}
}

// System answers client questions over the FAQ store. Identical concurrent
// questions collapse into one retrieval via singleflight, and answers are
// cached because clients tend to ask the same things.
//
// Safe for concurrent use.
type System struct {
	store       *Store
	synthesizer Synthesizer
	cfg         SystemConfig
	logger      *slog.Logger

	group singleflight.Group

	mu    sync.Mutex
	cache map[string]string
	order []string
}

// NewSystem creates a System. A nil logger uses slog.Default().
func NewSystem(store *Store, synthesizer Synthesizer, cfg SystemConfig, logger *slog.Logger) *System {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &System{
		store:       store,
		synthesizer: synthesizer,
		cfg:         cfg,
		logger:      logger,
		cache:       make(map[string]string),
	}
}

// Ask retrieves the passages closest to the question and synthesizes an
// answer from them. Returns ErrNoInformation when nothing clears the
// relevance threshold.
func (s *System) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: empty question", ErrNoInformation)
	}

	if answer, ok := s.cached(question); ok {
		return answer, nil
	}

	v, err, _ := s.group.Do(question, func() (any, error) {
		return s.ask(ctx, question)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *System) ask(ctx context.Context, question string) (string, error) {
	results, err := s.store.Search(ctx, question, WithTopK(s.cfg.TopK))
	if err != nil {
		return "", fmt.Errorf("searching faq: %w", err)
	}

	var passages []string
	for _, r := range results {
		if r.Similarity < s.cfg.Threshold {
			continue
		}
		passages = append(passages, r.Document.Content)
	}
	if len(passages) == 0 {
		return "", ErrNoInformation
	}

	answer, err := s.synthesizer.Synthesize(ctx, question, passages)
	if err != nil {
		return "", fmt.Errorf("synthesizing answer: %w", err)
	}

	s.remember(question, answer)
	return answer, nil
}

// HasRelevant reports whether the corpus has at least one passage clearing
// the relevance threshold for the query. Cheaper than Ask: no synthesis.
func (s *System) HasRelevant(ctx context.Context, query string) (bool, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return false, nil
	}
	results, err := s.store.Search(ctx, query, WithTopK(1))
	if err != nil {
		return false, fmt.Errorf("searching faq: %w", err)
	}
	for _, r := range results {
		if r.Similarity >= s.cfg.Threshold {
			return true, nil
		}
	}
	return false, nil
}

func (s *System) cached(question string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	answer, ok := s.cache[question]
	return answer, ok
}

// remember stores the answer, evicting the oldest entry at capacity.
func (s *System) remember(question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cache[question]; !exists {
		if len(s.order) >= s.cfg.CacheSize {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.cache, oldest)
		}
		s.order = append(s.order, question)
	}
	s.cache[question] = answer
}

// synthesisPrompt instructs the model to stay inside the retrieved passages.
const synthesisPrompt = `Answer the client's question using only the reference material below. Answer in the language of the question, briefly. If the material does not cover the question, say so in one sentence.`

// GenkitSynthesizer synthesizes answers with a text model.
type GenkitSynthesizer struct {
	g     *genkit.Genkit
	model string
}

// NewGenkitSynthesizer creates a synthesizer bound to a model name.
func NewGenkitSynthesizer(g *genkit.Genkit, model string) *GenkitSynthesizer {
	return &GenkitSynthesizer{g: g, model: model}
}

// Synthesize implements Synthesizer.
func (gs *GenkitSynthesizer) Synthesize(ctx context.Context, question string, passages []string) (string, error) {
	var b strings.Builder
	b.WriteString("Reference material:\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, p)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)

	resp, err := genkit.Generate(ctx, gs.g,
		ai.WithModelName(gs.model),
		ai.WithMessages(
			ai.NewSystemMessage(ai.NewTextPart(synthesisPrompt)),
			ai.NewUserMessage(ai.NewTextPart(b.String())),
		),
	)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("model returned empty answer")
	}
	return text, nil
}
