package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/llm"
	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/tools"
)

type Hook func(ctx context.Context, step int, agentCtx *Context, messages *[]llm.Message) error

type Option func(*Engine)

func WithHook(h Hook) Option {
	return func(e *Engine) {
		if h != nil {
			e.hooks = append(e.hooks, h)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithPromptBuilder(fn func(*tools.Registry, string) string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.promptBuilder = fn
		}
	}
}

func WithParamsBuilder(fn func(RunOptions) map[string]any) Option {
	return func(e *Engine) {
		if fn != nil {
			e.paramsBuilder = fn
		}
	}
}

// WithFallbackFinal sets the reply used when the model cannot be coaxed
// into a final response. Runs never surface an empty hole to the user.
func WithFallbackFinal(fn func() *Final) Option {
	return func(e *Engine) {
		if fn != nil {
			e.fallbackFinal = fn
		}
	}
}

type Config struct {
	MaxSteps       int
	MaxTokenBudget int
	ParseRetries   int
}

type Engine struct {
	client   llm.Client
	registry *tools.Registry
	config   Config
	spec     PromptSpec
	hooks    []Hook
	log      *slog.Logger
	logOpts  LogOptions
	locks    *userLocks

	promptBuilder func(registry *tools.Registry, task string) string
	paramsBuilder func(opts RunOptions) map[string]any
	fallbackFinal func() *Final
}

func New(client llm.Client, registry *tools.Registry, cfg Config, spec PromptSpec, opts ...Option) *Engine {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 10
	}
	if cfg.ParseRetries < 0 {
		cfg.ParseRetries = 0
	}
	if spec.Identity == "" {
		spec = DefaultPromptSpec()
	}
	e := &Engine{
		client:   client,
		registry: registry,
		config:   cfg,
		spec:     spec,
		log:      slog.Default(),
		logOpts:  DefaultLogOptions(),
		locks:    newUserLocks(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Run drives one consultation turn to a final reply. Each run starts from
// a fresh conversation; anything the model should know about the user
// arrives through opts.Context.
func (e *Engine) Run(ctx context.Context, task string, opts RunOptions) (*Final, *Context, error) {
	if userID := strings.TrimSpace(opts.UserID); userID != "" {
		release := e.locks.acquire(userID)
		defer release()
	}

	agentCtx := NewContext(task, e.config.MaxSteps)

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}

	runID := newRunID()
	log := e.log.With("run_id", runID, "model", model)
	log.Info("run_start", "user_id", opts.UserID, "task_len", len(task))

	var systemPrompt string
	if e.promptBuilder != nil {
		systemPrompt = e.promptBuilder(e.registry, task)
	} else {
		spec := e.spec
		if len(opts.Context) > 0 {
			blocks := make([]PromptBlock, 0, len(spec.Blocks)+len(opts.Context))
			blocks = append(blocks, spec.Blocks...)
			blocks = append(blocks, opts.Context...)
			spec.Blocks = blocks
		}
		systemPrompt = BuildSystemPrompt(e.registry, spec)
	}

	messages := []llm.Message{{Role: "system", Content: systemPrompt}}
	for _, m := range opts.History {
		if strings.TrimSpace(strings.ToLower(m.Role)) == "system" {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		messages = append(messages, m)
	}
	messages = append(messages, llm.Message{Role: "user", Content: task})

	var extraParams map[string]any
	if e.paramsBuilder != nil {
		extraParams = e.paramsBuilder(opts)
	}

	return e.runLoop(ctx, &engineLoopState{
		runID:       runID,
		model:       model,
		log:         log,
		messages:    messages,
		agentCtx:    agentCtx,
		extraParams: extraParams,
		tools:       e.registry.Specs(),
		nextStep:    0,
	})
}
